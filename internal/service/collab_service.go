package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

// maxNoteLength caps contribution notes.
const maxNoteLength = 500

var _ api.CollabServiceHandler = (*CollabService)(nil)

// CollabService implements the CollabService RPC interface.
type CollabService struct {
	deps
}

// NewCollabService creates a CollabService over the given store.
func NewCollabService(store storage.Store, notifier events.Notifier, logger *slog.Logger) *CollabService {
	return &CollabService{deps: newDeps(store, notifier, logger)}
}

// memberGoal loads a goal the caller belongs to.
func (s *CollabService) memberGoal(ctx context.Context, userID, goalID string) (*models.CollaborativeGoal, error) {
	if goalID == "" {
		return nil, invalid("goal_id is required")
	}
	goal, err := s.store.GetCollabGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if !goal.HasMember(userID) {
		return nil, denied("not a member of goal %s", goalID)
	}
	return goal, nil
}

// ownedGoal loads a goal the caller owns.
func (s *CollabService) ownedGoal(ctx context.Context, userID, goalID string) (*models.CollaborativeGoal, error) {
	goal, err := s.memberGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.OwnerID != userID {
		return nil, denied("only the owner can change goal %s", goalID)
	}
	return goal, nil
}

// reload fetches the goal again after a write and wraps it in a response.
func (s *CollabService) reload(ctx context.Context, op, goalID string) (*connect.Response[api.CollabGoalResponse], error) {
	goal, err := s.store.GetCollabGoal(ctx, goalID)
	if err != nil {
		return nil, toConnectError(s.logger, op, err)
	}
	return connect.NewResponse(&api.CollabGoalResponse{Goal: toAPICollabGoal(goal)}), nil
}

// CreateCollabGoal creates a shared goal owned by the caller, optionally with
// its first categories.
func (s *CollabService) CreateCollabGoal(ctx context.Context, req *connect.Request[api.CreateCollabGoalRequest]) (*connect.Response[api.CollabGoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	name, err := validateName("name", req.Msg.Name)
	if err != nil {
		return nil, toConnectError(s.logger, "CreateCollabGoal", err)
	}
	goal := &models.CollaborativeGoal{
		Name:      name,
		OwnerID:   userID,
		Members:   []string{userID},
		CreatedAt: s.now().Unix(),
	}
	for _, c := range req.Msg.Categories {
		catName, err := validateName("category name", c.Name)
		if err != nil {
			return nil, toConnectError(s.logger, "CreateCollabGoal", err)
		}
		if err := validatePositive("target_amount", c.TargetAmount); err != nil {
			return nil, toConnectError(s.logger, "CreateCollabGoal", err)
		}
		goal.Categories = append(goal.Categories, models.GoalCategory{Name: catName, TargetAmount: c.TargetAmount})
	}

	for attempt := 1; ; attempt++ {
		goal.ID = ""
		goal.InviteCode = newInviteCode()
		err = s.store.CreateCollabGoal(ctx, goal)
		if err == nil || !errors.Is(err, storage.ErrAlreadyExists) || attempt == inviteCodeAttempts {
			break
		}
		s.logger.Warn("Invite code collision, retrying", "attempt", attempt)
	}
	if err != nil {
		return nil, toConnectError(s.logger, "CreateCollabGoal", err)
	}

	s.logger.Info("Collaborative goal created", "goal_id", goal.ID, "owner_id", userID, "categories", len(goal.Categories))
	return connect.NewResponse(&api.CollabGoalResponse{Goal: toAPICollabGoal(goal)}), nil
}

// JoinCollabGoal adds the caller to the goal with the given invite code.
func (s *CollabService) JoinCollabGoal(ctx context.Context, req *connect.Request[api.JoinCollabGoalRequest]) (*connect.Response[api.CollabGoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	code := normalizeInviteCode(req.Msg.InviteCode)
	if code == "" {
		return nil, toConnectError(s.logger, "JoinCollabGoal", invalid("invite_code is required"))
	}

	goal, err := s.store.GetCollabGoalByInviteCode(ctx, code)
	if err != nil {
		return nil, toConnectError(s.logger, "JoinCollabGoal", err)
	}
	if goal.HasMember(userID) {
		return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("already a member"))
	}
	if err := s.store.AddCollabMember(ctx, goal.ID, userID); err != nil {
		return nil, toConnectError(s.logger, "JoinCollabGoal", err)
	}

	s.logger.Info("Joined collaborative goal", "goal_id", goal.ID, "user_id", userID)
	return s.reload(ctx, "JoinCollabGoal", goal.ID)
}

// LeaveCollabGoal removes the caller from a goal. The owner cannot leave.
func (s *CollabService) LeaveCollabGoal(ctx context.Context, req *connect.Request[api.LeaveCollabGoalRequest]) (*connect.Response[api.LeaveCollabGoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.memberGoal(ctx, userID, req.Msg.GoalID)
	if err != nil {
		return nil, toConnectError(s.logger, "LeaveCollabGoal", err)
	}
	if goal.OwnerID == userID {
		return nil, toConnectError(s.logger, "LeaveCollabGoal", precondition("the owner cannot leave goal %s", goal.ID))
	}
	if err := s.store.RemoveCollabMember(ctx, goal.ID, userID); err != nil {
		return nil, toConnectError(s.logger, "LeaveCollabGoal", err)
	}

	s.logger.Info("Left collaborative goal", "goal_id", goal.ID, "user_id", userID)
	return connect.NewResponse(&api.LeaveCollabGoalResponse{}), nil
}

// DeleteCollabGoal removes a goal with all its categories and contributions. Owner only.
func (s *CollabService) DeleteCollabGoal(ctx context.Context, req *connect.Request[api.DeleteCollabGoalRequest]) (*connect.Response[api.DeleteCollabGoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.ownedGoal(ctx, userID, req.Msg.GoalID)
	if err != nil {
		return nil, toConnectError(s.logger, "DeleteCollabGoal", err)
	}
	if err := s.store.DeleteCollabGoal(ctx, goal.ID); err != nil {
		return nil, toConnectError(s.logger, "DeleteCollabGoal", err)
	}

	s.logger.Info("Collaborative goal deleted", "goal_id", goal.ID)
	return connect.NewResponse(&api.DeleteCollabGoalResponse{}), nil
}

// AddGoalCategory adds a sub-target to a goal. Owner only.
func (s *CollabService) AddGoalCategory(ctx context.Context, req *connect.Request[api.AddGoalCategoryRequest]) (*connect.Response[api.CollabGoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	name, err := validateName("name", msg.Name)
	if err != nil {
		return nil, toConnectError(s.logger, "AddGoalCategory", err)
	}
	if err := validatePositive("target_amount", msg.TargetAmount); err != nil {
		return nil, toConnectError(s.logger, "AddGoalCategory", err)
	}

	goal, err := s.ownedGoal(ctx, userID, msg.GoalID)
	if err != nil {
		return nil, toConnectError(s.logger, "AddGoalCategory", err)
	}
	category := &models.GoalCategory{GoalID: goal.ID, Name: name, TargetAmount: msg.TargetAmount}
	if err := s.store.AddGoalCategory(ctx, category); err != nil {
		return nil, toConnectError(s.logger, "AddGoalCategory", err)
	}

	s.logger.Info("Goal category added", "goal_id", goal.ID, "category_id", category.ID)
	return s.reload(ctx, "AddGoalCategory", goal.ID)
}

// UpdateGoalCategory renames a category or changes its target. Owner only.
func (s *CollabService) UpdateGoalCategory(ctx context.Context, req *connect.Request[api.UpdateGoalCategoryRequest]) (*connect.Response[api.CollabGoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	name, err := validateName("name", msg.Name)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateGoalCategory", err)
	}
	if err := validatePositive("target_amount", msg.TargetAmount); err != nil {
		return nil, toConnectError(s.logger, "UpdateGoalCategory", err)
	}

	goal, err := s.ownedGoal(ctx, userID, msg.GoalID)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateGoalCategory", err)
	}
	category := goal.Category(msg.CategoryID)
	if category == nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("category not found in goal"))
	}
	category.Name = name
	category.TargetAmount = msg.TargetAmount
	if err := s.store.UpdateGoalCategory(ctx, category); err != nil {
		return nil, toConnectError(s.logger, "UpdateGoalCategory", err)
	}

	s.logger.Info("Goal category updated", "goal_id", goal.ID, "category_id", category.ID)
	return s.reload(ctx, "UpdateGoalCategory", goal.ID)
}

// RemoveGoalCategory deletes a category that has no contributions. Owner only.
func (s *CollabService) RemoveGoalCategory(ctx context.Context, req *connect.Request[api.RemoveGoalCategoryRequest]) (*connect.Response[api.CollabGoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.ownedGoal(ctx, userID, req.Msg.GoalID)
	if err != nil {
		return nil, toConnectError(s.logger, "RemoveGoalCategory", err)
	}
	if goal.Category(req.Msg.CategoryID) == nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("category not found in goal"))
	}
	if err := s.store.RemoveGoalCategory(ctx, goal.ID, req.Msg.CategoryID); err != nil {
		return nil, toConnectError(s.logger, "RemoveGoalCategory", err)
	}

	s.logger.Info("Goal category removed", "goal_id", goal.ID, "category_id", req.Msg.CategoryID)
	return s.reload(ctx, "RemoveGoalCategory", goal.ID)
}

// Contribute records money the caller put toward one of the goal's categories.
func (s *CollabService) Contribute(ctx context.Context, req *connect.Request[api.ContributeRequest]) (*connect.Response[api.ContributeResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	if err := validatePositive("amount", msg.Amount); err != nil {
		return nil, toConnectError(s.logger, "Contribute", err)
	}
	note := strings.TrimSpace(msg.Note)
	if len([]rune(note)) > maxNoteLength {
		return nil, toConnectError(s.logger, "Contribute", invalid("note must be at most %d characters", maxNoteLength))
	}

	goal, err := s.memberGoal(ctx, userID, msg.GoalID)
	if err != nil {
		return nil, toConnectError(s.logger, "Contribute", err)
	}
	if goal.Category(msg.CategoryID) == nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("category not found in goal"))
	}

	contribution := &models.GoalContribution{
		GoalID:     goal.ID,
		CategoryID: msg.CategoryID,
		UserID:     userID,
		Amount:     msg.Amount,
		Note:       note,
		CreatedAt:  s.now().Unix(),
	}
	if err := s.store.AddContribution(ctx, contribution); err != nil {
		return nil, toConnectError(s.logger, "Contribute", err)
	}

	updated, err := s.store.GetCollabGoal(ctx, goal.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "Contribute", err)
	}

	s.logger.Info("Contribution recorded",
		"goal_id", goal.ID,
		"category_id", contribution.CategoryID,
		"user_id", userID,
		"amount", contribution.Amount,
	)
	return connect.NewResponse(&api.ContributeResponse{
		Contribution: toAPIContribution(contribution),
		Goal:         toAPICollabGoal(updated),
	}), nil
}

// ListContributions returns a goal's contributions, newest first. Members only.
func (s *CollabService) ListContributions(ctx context.Context, req *connect.Request[api.ListContributionsRequest]) (*connect.Response[api.ListContributionsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.memberGoal(ctx, userID, req.Msg.GoalID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListContributions", err)
	}
	contributions, err := s.store.ListContributions(ctx, goal.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListContributions", err)
	}

	resp := &api.ListContributionsResponse{Contributions: make([]api.Contribution, 0, len(contributions))}
	for _, c := range contributions {
		resp.Contributions = append(resp.Contributions, toAPIContribution(c))
	}
	return connect.NewResponse(resp), nil
}

// GetCollabGoal returns a goal with its progress. Members only.
func (s *CollabService) GetCollabGoal(ctx context.Context, req *connect.Request[api.GetCollabGoalRequest]) (*connect.Response[api.CollabGoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.memberGoal(ctx, userID, req.Msg.GoalID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetCollabGoal", err)
	}
	return connect.NewResponse(&api.CollabGoalResponse{Goal: toAPICollabGoal(goal)}), nil
}

// ListCollabGoals returns every goal the caller belongs to.
func (s *CollabService) ListCollabGoals(ctx context.Context, req *connect.Request[api.ListCollabGoalsRequest]) (*connect.Response[api.ListCollabGoalsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	goals, err := s.store.ListCollabGoalsByUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListCollabGoals", err)
	}
	resp := &api.ListCollabGoalsResponse{Goals: make([]api.CollabGoal, 0, len(goals))}
	for _, g := range goals {
		resp.Goals = append(resp.Goals, toAPICollabGoal(g))
	}
	return connect.NewResponse(resp), nil
}
