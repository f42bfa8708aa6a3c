package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/calculator"
)

func TestSetGoalUpserts(t *testing.T) {
	srv := setupTestServer(t, nil)
	ctx := context.Background()
	alice := srv.register(t, "alice@example.com", "Alice")

	first, err := srv.goal.SetGoal(ctx, as(alice, &api.SetGoalRequest{Month: "2026-04", MinAmount: dec("100"), MaxAmount: dec("500")}))
	require.NoError(t, err)

	second, err := srv.goal.SetGoal(ctx, as(alice, &api.SetGoalRequest{Month: "2026-04", MinAmount: dec("0"), MaxAmount: dec("400")}))
	require.NoError(t, err)
	assert.Equal(t, first.Msg.Goal.ID, second.Msg.Goal.ID, "one goal per month")
	assert.True(t, dec("400").Equal(second.Msg.Goal.MaxAmount))

	_, err = srv.goal.SetGoal(ctx, as(alice, &api.SetGoalRequest{Month: "2026-05", MinAmount: dec("10"), MaxAmount: dec("20")}))
	require.NoError(t, err)

	list, err := srv.goal.ListGoals(ctx, as(alice, &api.ListGoalsRequest{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Goals, 2)
	assert.Equal(t, "2026-05", list.Msg.Goals[0].Month)

	got, err := srv.goal.GetGoal(ctx, as(alice, &api.GetGoalRequest{Month: "2026-04"}))
	require.NoError(t, err)
	assert.True(t, dec("0").Equal(got.Msg.Goal.MinAmount))

	_, err = srv.goal.DeleteGoal(ctx, as(alice, &api.DeleteGoalRequest{Month: "2026-04"}))
	require.NoError(t, err)
	_, err = srv.goal.GetGoal(ctx, as(alice, &api.GetGoalRequest{Month: "2026-04"}))
	assertCode(t, connect.CodeNotFound, err)
	_, err = srv.goal.DeleteGoal(ctx, as(alice, &api.DeleteGoalRequest{Month: "2026-04"}))
	assertCode(t, connect.CodeNotFound, err)
}

func TestSetGoalValidation(t *testing.T) {
	srv := setupTestServer(t, nil)
	alice := srv.register(t, "alice@example.com", "Alice")

	tests := []struct {
		name string
		req  *api.SetGoalRequest
	}{
		{"bad month", &api.SetGoalRequest{Month: "April", MinAmount: dec("0"), MaxAmount: dec("1")}},
		{"negative min", &api.SetGoalRequest{Month: "2026-04", MinAmount: dec("-1"), MaxAmount: dec("1")}},
		{"max below min", &api.SetGoalRequest{Month: "2026-04", MinAmount: dec("50"), MaxAmount: dec("10")}},
		{"too precise", &api.SetGoalRequest{Month: "2026-04", MinAmount: dec("0"), MaxAmount: dec("10.001")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.goal.SetGoal(context.Background(), as(alice, tt.req))
			assertCode(t, connect.CodeInvalidArgument, err)
		})
	}
}

func TestGoalProgress(t *testing.T) {
	srv := setupTestServer(t, nil)
	ctx := context.Background()
	alice := srv.register(t, "alice@example.com", "Alice")
	bob := srv.register(t, "bob@example.com", "Bob")
	food := createCategory(t, srv, alice, "Food")

	_, err := srv.goal.SetGoal(ctx, as(alice, &api.SetGoalRequest{Month: "2026-06", MinAmount: dec("100"), MaxAmount: dec("200")}))
	require.NoError(t, err)
	createExpense(t, srv, alice, food.ID, "50", "2026-06-01")
	createExpense(t, srv, alice, food.ID, "500", "2026-07-01")

	resp, err := srv.goal.GetGoalProgress(ctx, as(alice, &api.GetGoalProgressRequest{Month: "2026-06"}))
	require.NoError(t, err)
	p := resp.Msg.Progress
	assert.True(t, dec("50").Equal(p.Spent))
	assert.True(t, dec("150").Equal(p.Remaining))
	assert.Equal(t, string(calculator.GoalUnder), p.Status)
	assert.True(t, dec("25").Equal(p.PercentOfMax))
	assert.InDelta(t, 90.0, p.Angle, 0.001)

	_, err = srv.goal.GetGoalProgress(ctx, as(bob, &api.GetGoalProgressRequest{Month: "2026-06"}))
	assertCode(t, connect.CodeNotFound, err)
}
