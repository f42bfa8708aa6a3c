package unified

import (
	"context"

	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/models"
)

// Races and collaborative goals are shared between users, so a write is only
// meaningful once the remote store has it. There is no offline path: remote
// failures surface as storage.ErrUnavailable.

func (r *Repository) remoteWrite(ctx context.Context, op string, err error) error {
	if err != nil && isOffline(ctx, err) {
		return unavailable(op, err)
	}
	return err
}

// refreshRace re-reads a race from the remote store into the cache and
// notifies its participants.
func (r *Repository) refreshRace(ctx context.Context, raceID string) {
	race, err := r.remote.GetRace(ctx, raceID)
	if err != nil {
		r.mirror("RefreshRace", err)
		return
	}
	r.mirror("RefreshRace", r.cache.PutRace(ctx, race))
	r.notify(ctx, events.New(events.RaceChanged, race.ID, nil, participantIDs(race)...))
}

func participantIDs(race *models.RaceChallenge) []string {
	ids := make([]string, 0, len(race.Participants))
	for _, p := range race.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (r *Repository) CreateRace(ctx context.Context, race *models.RaceChallenge) error {
	if err := r.remote.CreateRace(ctx, race); err != nil {
		return r.remoteWrite(ctx, "create race", err)
	}
	r.mirror("CreateRace", r.cache.PutRace(ctx, race))
	r.notify(ctx, events.New(events.RaceChanged, race.ID, nil, participantIDs(race)...))
	return nil
}

func (r *Repository) GetRace(ctx context.Context, id string) (*models.RaceChallenge, error) {
	race, err := r.remote.GetRace(ctx, id)
	if err == nil {
		r.mirror("GetRace", r.cache.PutRace(ctx, race))
		return race, nil
	}
	if !r.fallback(ctx, "GetRace", err) {
		return nil, err
	}
	return r.cache.GetRace(ctx, id)
}

func (r *Repository) GetRaceByInviteCode(ctx context.Context, code string) (*models.RaceChallenge, error) {
	race, err := r.remote.GetRaceByInviteCode(ctx, code)
	if err == nil {
		r.mirror("GetRaceByInviteCode", r.cache.PutRace(ctx, race))
		return race, nil
	}
	if !r.fallback(ctx, "GetRaceByInviteCode", err) {
		return nil, err
	}
	return r.cache.GetRaceByInviteCode(ctx, code)
}

func (r *Repository) ListRacesByUser(ctx context.Context, userID string) ([]*models.RaceChallenge, error) {
	races, err := r.remote.ListRacesByUser(ctx, userID)
	if err == nil {
		for _, race := range races {
			r.mirror("ListRacesByUser", r.cache.PutRace(ctx, race))
		}
		return races, nil
	}
	if !r.fallback(ctx, "ListRacesByUser", err) {
		return nil, err
	}
	return r.cache.ListRacesByUser(ctx, userID)
}

func (r *Repository) UpdateRace(ctx context.Context, race *models.RaceChallenge) error {
	if err := r.remote.UpdateRace(ctx, race); err != nil {
		return r.remoteWrite(ctx, "update race", err)
	}
	r.refreshRace(ctx, race.ID)
	return nil
}

func (r *Repository) AddRaceParticipant(ctx context.Context, p *models.RaceParticipant) error {
	if err := r.remote.AddRaceParticipant(ctx, p); err != nil {
		return r.remoteWrite(ctx, "join race", err)
	}
	r.refreshRace(ctx, p.RaceID)
	return nil
}

func (r *Repository) RemoveRaceParticipant(ctx context.Context, raceID, userID string) error {
	if err := r.remote.RemoveRaceParticipant(ctx, raceID, userID); err != nil {
		return r.remoteWrite(ctx, "leave race", err)
	}
	r.refreshRace(ctx, raceID)
	return nil
}

// refreshCollab re-reads a collaborative goal into the cache and notifies its members.
func (r *Repository) refreshCollab(ctx context.Context, goalID string) {
	goal, err := r.remote.GetCollabGoal(ctx, goalID)
	if err != nil {
		r.mirror("RefreshCollabGoal", err)
		return
	}
	r.mirror("RefreshCollabGoal", r.cache.PutCollabGoal(ctx, goal))
	r.notify(ctx, events.New(events.CollabGoalChanged, goal.ID, nil, goal.Members...))
}

func (r *Repository) CreateCollabGoal(ctx context.Context, goal *models.CollaborativeGoal) error {
	if err := r.remote.CreateCollabGoal(ctx, goal); err != nil {
		return r.remoteWrite(ctx, "create collaborative goal", err)
	}
	r.mirror("CreateCollabGoal", r.cache.PutCollabGoal(ctx, goal))
	r.notify(ctx, events.New(events.CollabGoalChanged, goal.ID, nil, goal.Members...))
	return nil
}

func (r *Repository) GetCollabGoal(ctx context.Context, id string) (*models.CollaborativeGoal, error) {
	goal, err := r.remote.GetCollabGoal(ctx, id)
	if err == nil {
		r.mirror("GetCollabGoal", r.cache.PutCollabGoal(ctx, goal))
		return goal, nil
	}
	if !r.fallback(ctx, "GetCollabGoal", err) {
		return nil, err
	}
	return r.cache.GetCollabGoal(ctx, id)
}

func (r *Repository) GetCollabGoalByInviteCode(ctx context.Context, code string) (*models.CollaborativeGoal, error) {
	goal, err := r.remote.GetCollabGoalByInviteCode(ctx, code)
	if err == nil {
		r.mirror("GetCollabGoalByInviteCode", r.cache.PutCollabGoal(ctx, goal))
		return goal, nil
	}
	if !r.fallback(ctx, "GetCollabGoalByInviteCode", err) {
		return nil, err
	}
	return r.cache.GetCollabGoalByInviteCode(ctx, code)
}

func (r *Repository) ListCollabGoalsByUser(ctx context.Context, userID string) ([]*models.CollaborativeGoal, error) {
	goals, err := r.remote.ListCollabGoalsByUser(ctx, userID)
	if err == nil {
		for _, goal := range goals {
			r.mirror("ListCollabGoalsByUser", r.cache.PutCollabGoal(ctx, goal))
		}
		return goals, nil
	}
	if !r.fallback(ctx, "ListCollabGoalsByUser", err) {
		return nil, err
	}
	return r.cache.ListCollabGoalsByUser(ctx, userID)
}

func (r *Repository) DeleteCollabGoal(ctx context.Context, id string) error {
	if err := r.remote.DeleteCollabGoal(ctx, id); err != nil {
		return r.remoteWrite(ctx, "delete collaborative goal", err)
	}
	r.mirror("DeleteCollabGoal", r.cache.DeleteCollabGoal(ctx, id))
	r.notify(ctx, events.New(events.CollabGoalDeleted, id, nil))
	return nil
}

func (r *Repository) AddCollabMember(ctx context.Context, goalID, userID string) error {
	if err := r.remote.AddCollabMember(ctx, goalID, userID); err != nil {
		return r.remoteWrite(ctx, "join collaborative goal", err)
	}
	r.refreshCollab(ctx, goalID)
	return nil
}

func (r *Repository) RemoveCollabMember(ctx context.Context, goalID, userID string) error {
	if err := r.remote.RemoveCollabMember(ctx, goalID, userID); err != nil {
		return r.remoteWrite(ctx, "leave collaborative goal", err)
	}
	r.refreshCollab(ctx, goalID)
	return nil
}

func (r *Repository) AddGoalCategory(ctx context.Context, c *models.GoalCategory) error {
	if err := r.remote.AddGoalCategory(ctx, c); err != nil {
		return r.remoteWrite(ctx, "add goal category", err)
	}
	r.refreshCollab(ctx, c.GoalID)
	return nil
}

func (r *Repository) UpdateGoalCategory(ctx context.Context, c *models.GoalCategory) error {
	if err := r.remote.UpdateGoalCategory(ctx, c); err != nil {
		return r.remoteWrite(ctx, "update goal category", err)
	}
	r.refreshCollab(ctx, c.GoalID)
	return nil
}

func (r *Repository) RemoveGoalCategory(ctx context.Context, goalID, categoryID string) error {
	if err := r.remote.RemoveGoalCategory(ctx, goalID, categoryID); err != nil {
		return r.remoteWrite(ctx, "remove goal category", err)
	}
	r.refreshCollab(ctx, goalID)
	return nil
}

func (r *Repository) AddContribution(ctx context.Context, c *models.GoalContribution) error {
	if err := r.remote.AddContribution(ctx, c); err != nil {
		return r.remoteWrite(ctx, "contribute", err)
	}
	r.refreshCollab(ctx, c.GoalID)
	r.mirror("AddContribution", r.cache.PutContribution(ctx, c))
	r.notify(ctx, events.New(events.ContributionCreated, c.ID, c))
	return nil
}

func (r *Repository) ListContributions(ctx context.Context, goalID string) ([]*models.GoalContribution, error) {
	contributions, err := r.remote.ListContributions(ctx, goalID)
	if err == nil {
		for _, c := range contributions {
			r.mirror("ListContributions", r.cache.PutContribution(ctx, c))
		}
		return contributions, nil
	}
	if !r.fallback(ctx, "ListContributions", err) {
		return nil, err
	}
	return r.cache.ListContributions(ctx, goalID)
}
