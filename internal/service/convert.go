package service

import (
	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/calculator"
	"github.com/mmynk/spendwise/internal/models"
)

func toAPIUser(u *models.User) api.User {
	return api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Phone:       u.Phone,
		PhotoPath:   u.PhotoPath,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPICategory(c *models.Category) api.Category {
	return api.Category{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

func toAPIExpense(e *models.Expense) api.Expense {
	return api.Expense{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		Amount:      e.Amount,
		Date:        e.Date,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		PhotoPath:   e.PhotoPath,
		CreatedAt:   e.CreatedAt,
	}
}

func toAPIGoal(g *models.Goal) api.Goal {
	return api.Goal{
		ID:        g.ID,
		Month:     g.Month,
		MinAmount: g.MinAmount,
		MaxAmount: g.MaxAmount,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func toAPIGoalProgress(p calculator.GoalProgress) api.GoalProgress {
	return api.GoalProgress{
		Month:        p.Month,
		Spent:        p.Spent,
		Min:          p.Min,
		Max:          p.Max,
		Remaining:    p.Remaining,
		Status:       string(p.Status),
		PercentOfMax: p.PercentOfMax,
		Angle:        p.Angle,
	}
}

// toAPIRace converts a race. leaderboard may be nil when it was not computed.
func toAPIRace(r *models.RaceChallenge, leaderboard []calculator.LeaderboardEntry) api.Race {
	out := api.Race{
		ID:           r.ID,
		Name:         r.Name,
		CreatorID:    r.CreatorID,
		Budget:       r.Budget,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Status:       string(r.Status),
		InviteCode:   r.InviteCode,
		Participants: make([]api.Participant, 0, len(r.Participants)),
		CreatedAt:    r.CreatedAt,
	}
	for _, p := range r.Participants {
		out.Participants = append(out.Participants, api.Participant{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			JoinedAt:    p.JoinedAt,
		})
	}
	for _, e := range leaderboard {
		out.Leaderboard = append(out.Leaderboard, api.LeaderboardEntry{
			Rank:        e.Rank,
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			TotalSpent:  e.TotalSpent,
			Remaining:   e.Remaining,
			OverBudget:  e.OverBudget,
		})
	}
	return out
}

// toAPICollabGoal converts a collaborative goal along with its progress.
func toAPICollabGoal(g *models.CollaborativeGoal) api.CollabGoal {
	progress := calculator.CollaborativeProgress(*g)
	out := api.CollabGoal{
		ID:         g.ID,
		Name:       g.Name,
		OwnerID:    g.OwnerID,
		InviteCode: g.InviteCode,
		Members:    append([]string{}, g.Members...),
		Categories: make([]api.GoalCategory, 0, len(progress.Categories)),
		Progress: &api.CollabProgress{
			Current: progress.Current,
			Target:  progress.Target,
			Percent: progress.Percent,
			Angle:   progress.Angle,
		},
		CreatedAt: g.CreatedAt,
	}
	for _, c := range progress.Categories {
		out.Categories = append(out.Categories, api.GoalCategory{
			ID:            c.CategoryID,
			Name:          c.Name,
			TargetAmount:  c.Target,
			CurrentAmount: c.Current,
			Percent:       c.Percent,
			Angle:         c.Angle,
			Complete:      c.Complete,
		})
	}
	return out
}

func toAPIContribution(c *models.GoalContribution) api.Contribution {
	return api.Contribution{
		ID:         c.ID,
		CategoryID: c.CategoryID,
		UserID:     c.UserID,
		Amount:     c.Amount,
		Note:       c.Note,
		CreatedAt:  c.CreatedAt,
	}
}
