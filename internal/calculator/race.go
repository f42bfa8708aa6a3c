package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/models"
)

// LeaderboardEntry is one participant's standing in a race.
type LeaderboardEntry struct {
	Rank        int
	UserID      string
	DisplayName string
	TotalSpent  decimal.Decimal
	Remaining   decimal.Decimal
	OverBudget  bool
}

// RaceStatusAt derives a race's status for the given YYYY-MM-DD date.
// Cancelled is terminal and never recomputed.
func RaceStatusAt(race models.RaceChallenge, today string) models.RaceStatus {
	if race.Status == models.RaceStatusCancelled {
		return models.RaceStatusCancelled
	}
	switch {
	case today < race.StartDate:
		return models.RaceStatusPending
	case today > race.EndDate:
		return models.RaceStatusCompleted
	default:
		return models.RaceStatusActive
	}
}

// RankRace orders participants for the leaderboard.
//
// Participants within budget rank ahead of those over it. Inside each group
// lower spend ranks higher; ties go to whoever joined first, then to the
// lower user ID so the order is stable.
func RankRace(budget decimal.Decimal, participants []models.RaceParticipant) []LeaderboardEntry {
	sorted := make([]models.RaceParticipant, len(participants))
	copy(sorted, participants)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		aOver, bOver := a.TotalSpent.GreaterThan(budget), b.TotalSpent.GreaterThan(budget)
		if aOver != bOver {
			return !aOver
		}
		if c := a.TotalSpent.Cmp(b.TotalSpent); c != 0 {
			return c < 0
		}
		if a.JoinedAt != b.JoinedAt {
			return a.JoinedAt < b.JoinedAt
		}
		return a.UserID < b.UserID
	})

	entries := make([]LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			TotalSpent:  p.TotalSpent,
			Remaining:   budget.Sub(p.TotalSpent),
			OverBudget:  p.TotalSpent.GreaterThan(budget),
		}
	}
	return entries
}
