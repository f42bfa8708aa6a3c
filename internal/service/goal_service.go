package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/calculator"
	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

var _ api.GoalServiceHandler = (*GoalService)(nil)

// GoalService implements the GoalService RPC interface.
type GoalService struct {
	deps
}

// NewGoalService creates a GoalService over the given store.
func NewGoalService(store storage.Store, notifier events.Notifier, logger *slog.Logger) *GoalService {
	return &GoalService{deps: newDeps(store, notifier, logger)}
}

// SetGoal creates or replaces the caller's goal for a month.
func (s *GoalService) SetGoal(ctx context.Context, req *connect.Request[api.SetGoalRequest]) (*connect.Response[api.GoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	msg := req.Msg
	if err := validateMonth(msg.Month); err != nil {
		return nil, toConnectError(s.logger, "SetGoal", err)
	}
	switch {
	case msg.MinAmount.IsNegative():
		return nil, toConnectError(s.logger, "SetGoal", invalid("min_amount must not be negative"))
	case msg.MaxAmount.LessThan(msg.MinAmount):
		return nil, toConnectError(s.logger, "SetGoal", invalid("max_amount must not be less than min_amount"))
	case !msg.MinAmount.Equal(msg.MinAmount.Round(2)), !msg.MaxAmount.Equal(msg.MaxAmount.Round(2)):
		return nil, toConnectError(s.logger, "SetGoal", invalid("amounts must have at most 2 decimal places"))
	}

	g := &models.Goal{
		UserID:    userID,
		Month:     msg.Month,
		MinAmount: msg.MinAmount,
		MaxAmount: msg.MaxAmount,
		UpdatedAt: s.now().Unix(),
	}
	if err := s.store.UpsertGoal(ctx, g); err != nil {
		return nil, toConnectError(s.logger, "SetGoal", err)
	}

	s.logger.Info("Goal set", "user_id", userID, "month", g.Month, "min", g.MinAmount, "max", g.MaxAmount)
	return connect.NewResponse(&api.GoalResponse{Goal: toAPIGoal(g)}), nil
}

// GetGoal returns the caller's goal for a month.
func (s *GoalService) GetGoal(ctx context.Context, req *connect.Request[api.GetGoalRequest]) (*connect.Response[api.GoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMonth(req.Msg.Month); err != nil {
		return nil, toConnectError(s.logger, "GetGoal", err)
	}

	g, err := s.store.GetGoal(ctx, userID, req.Msg.Month)
	if err != nil {
		return nil, toConnectError(s.logger, "GetGoal", err)
	}
	return connect.NewResponse(&api.GoalResponse{Goal: toAPIGoal(g)}), nil
}

// ListGoals returns all of the caller's goals, newest month first.
func (s *GoalService) ListGoals(ctx context.Context, req *connect.Request[api.ListGoalsRequest]) (*connect.Response[api.ListGoalsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListGoals", err)
	}
	resp := &api.ListGoalsResponse{Goals: make([]api.Goal, 0, len(goals))}
	for _, g := range goals {
		resp.Goals = append(resp.Goals, toAPIGoal(g))
	}
	return connect.NewResponse(resp), nil
}

// DeleteGoal removes the caller's goal for a month.
func (s *GoalService) DeleteGoal(ctx context.Context, req *connect.Request[api.DeleteGoalRequest]) (*connect.Response[api.DeleteGoalResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMonth(req.Msg.Month); err != nil {
		return nil, toConnectError(s.logger, "DeleteGoal", err)
	}

	if err := s.store.DeleteGoal(ctx, userID, req.Msg.Month); err != nil {
		return nil, toConnectError(s.logger, "DeleteGoal", err)
	}
	s.logger.Info("Goal deleted", "user_id", userID, "month", req.Msg.Month)
	return connect.NewResponse(&api.DeleteGoalResponse{}), nil
}

// GetGoalProgress compares the month's spend against the goal.
func (s *GoalService) GetGoalProgress(ctx context.Context, req *connect.Request[api.GetGoalProgressRequest]) (*connect.Response[api.GetGoalProgressResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMonth(req.Msg.Month); err != nil {
		return nil, toConnectError(s.logger, "GetGoalProgress", err)
	}

	g, err := s.store.GetGoal(ctx, userID, req.Msg.Month)
	if err != nil {
		return nil, toConnectError(s.logger, "GetGoalProgress", err)
	}
	from, to, _ := calculator.MonthBounds(g.Month)
	spent, err := s.store.SumExpenses(ctx, storage.ExpenseFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return nil, toConnectError(s.logger, "GetGoalProgress", err)
	}

	return connect.NewResponse(&api.GetGoalProgressResponse{
		Goal:     toAPIGoal(g),
		Progress: toAPIGoalProgress(calculator.EvaluateGoal(*g, spent)),
	}), nil
}
