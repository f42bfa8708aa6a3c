package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/calculator"
	"github.com/mmynk/spendwise/internal/events"
)

func createCategory(t *testing.T, srv *testServer, a account, name string) api.Category {
	t.Helper()
	resp, err := srv.expense.CreateCategory(context.Background(), as(a, &api.CreateCategoryRequest{Name: name}))
	require.NoError(t, err)
	return resp.Msg.Category
}

func createExpense(t *testing.T, srv *testServer, a account, categoryID, amount, date string) *api.ExpenseResponse {
	t.Helper()
	resp, err := srv.expense.CreateExpense(context.Background(), as(a, &api.CreateExpenseRequest{
		CategoryID: categoryID,
		Amount:     dec(amount),
		Date:       date,
	}))
	require.NoError(t, err)
	return resp.Msg
}

func TestCategoryLifecycle(t *testing.T) {
	srv := setupTestServer(t, nil)
	ctx := context.Background()
	alice := srv.register(t, "alice@example.com", "Alice")

	food := createCategory(t, srv, alice, "  Food ")
	assert.Equal(t, "Food", food.Name)
	createCategory(t, srv, alice, "Rent")

	_, err := srv.expense.CreateCategory(ctx, as(alice, &api.CreateCategoryRequest{Name: "food"}))
	assertCode(t, connect.CodeAlreadyExists, err)

	renamed, err := srv.expense.RenameCategory(ctx, as(alice, &api.RenameCategoryRequest{
		CategoryID: food.ID,
		Name:       "Groceries",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Groceries", renamed.Msg.Category.Name)

	list, err := srv.expense.ListCategories(ctx, as(alice, &api.ListCategoriesRequest{}))
	require.NoError(t, err)
	assert.Len(t, list.Msg.Categories, 2)

	createExpense(t, srv, alice, food.ID, "12.50", day(0))
	_, err = srv.expense.DeleteCategory(ctx, as(alice, &api.DeleteCategoryRequest{CategoryID: food.ID}))
	assertCode(t, connect.CodeFailedPrecondition, err)
}

func TestCategoryOwnership(t *testing.T) {
	srv := setupTestServer(t, nil)
	ctx := context.Background()
	alice := srv.register(t, "alice@example.com", "Alice")
	bob := srv.register(t, "bob@example.com", "Bob")

	food := createCategory(t, srv, alice, "Food")

	_, err := srv.expense.RenameCategory(ctx, as(bob, &api.RenameCategoryRequest{CategoryID: food.ID, Name: "Mine"}))
	assertCode(t, connect.CodePermissionDenied, err)

	_, err = srv.expense.CreateExpense(ctx, as(bob, &api.CreateExpenseRequest{
		CategoryID: food.ID,
		Amount:     dec("5"),
		Date:       day(0),
	}))
	assertCode(t, connect.CodePermissionDenied, err)

	_, err = srv.expense.DeleteCategory(ctx, as(bob, &api.DeleteCategoryRequest{CategoryID: "missing"}))
	assertCode(t, connect.CodeNotFound, err)
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := setupTestServer(t, nil)
	alice := srv.register(t, "alice@example.com", "Alice")
	food := createCategory(t, srv, alice, "Food")

	tests := []struct {
		name string
		req  *api.CreateExpenseRequest
	}{
		{"zero amount", &api.CreateExpenseRequest{CategoryID: food.ID, Amount: dec("0"), Date: day(0)}},
		{"negative amount", &api.CreateExpenseRequest{CategoryID: food.ID, Amount: dec("-3"), Date: day(0)}},
		{"too precise", &api.CreateExpenseRequest{CategoryID: food.ID, Amount: dec("1.005"), Date: day(0)}},
		{"bad date", &api.CreateExpenseRequest{CategoryID: food.ID, Amount: dec("1"), Date: "2026/01/01"}},
		{"bad time", &api.CreateExpenseRequest{CategoryID: food.ID, Amount: dec("1"), Date: day(0), StartTime: "25:00"}},
		{"end before start", &api.CreateExpenseRequest{
			CategoryID: food.ID, Amount: dec("1"), Date: day(0), StartTime: "13:00", EndTime: "12:00",
		}},
		{"unpadded end before start", &api.CreateExpenseRequest{
			CategoryID: food.ID, Amount: dec("1"), Date: day(0), StartTime: "10:00", EndTime: "9:05",
		}},
		{"no category", &api.CreateExpenseRequest{Amount: dec("1"), Date: day(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.expense.CreateExpense(context.Background(), as(alice, tt.req))
			assertCode(t, connect.CodeInvalidArgument, err)
		})
	}
}

func TestExpenseTimesAreNormalized(t *testing.T) {
	srv := setupTestServer(t, nil)
	alice := srv.register(t, "alice@example.com", "Alice")
	food := createCategory(t, srv, alice, "Food")

	resp, err := srv.expense.CreateExpense(context.Background(), as(alice, &api.CreateExpenseRequest{
		CategoryID: food.ID,
		Amount:     dec("4.20"),
		Date:       day(0),
		StartTime:  "9:05",
		EndTime:    "10:00",
	}))
	require.NoError(t, err)
	assert.Equal(t, "09:05", resp.Msg.Expense.StartTime)
	assert.Equal(t, "10:00", resp.Msg.Expense.EndTime)
}

func TestExpenseLifecycle(t *testing.T) {
	srv := setupTestServer(t, nil)
	ctx := context.Background()
	alice := srv.register(t, "alice@example.com", "Alice")
	food := createCategory(t, srv, alice, "Food")
	travel := createCategory(t, srv, alice, "Travel")

	created := createExpense(t, srv, alice, food.ID, "12.50", "2026-03-04")
	assert.Nil(t, created.Goal)
	createExpense(t, srv, alice, food.ID, "7.50", "2026-03-10")

	updated, err := srv.expense.UpdateExpense(ctx, as(alice, &api.UpdateExpenseRequest{
		ExpenseID:   created.Expense.ID,
		CategoryID:  travel.ID,
		Amount:      dec("40"),
		Date:        "2026-03-05",
		Description: " train ",
		StartTime:   "08:15",
		EndTime:     "09:00",
	}))
	require.NoError(t, err)
	assert.Equal(t, travel.ID, updated.Msg.Expense.CategoryID)
	assert.Equal(t, "train", updated.Msg.Expense.Description)

	list, err := srv.expense.ListExpenses(ctx, as(alice, &api.ListExpensesRequest{From: "2026-03-01", To: "2026-03-31"}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Expenses, 2)
	assert.Equal(t, "2026-03-10", list.Msg.Expenses[0].Date, "newest first")
	assert.True(t, dec("47.50").Equal(list.Msg.Total))

	byCategory, err := srv.expense.ListExpenses(ctx, as(alice, &api.ListExpensesRequest{CategoryID: travel.ID}))
	require.NoError(t, err)
	assert.Len(t, byCategory.Msg.Expenses, 1)

	_, err = srv.expense.ListExpenses(ctx, as(alice, &api.ListExpensesRequest{From: "2026-03-31", To: "2026-03-01"}))
	assertCode(t, connect.CodeInvalidArgument, err)

	_, err = srv.expense.DeleteExpense(ctx, as(alice, &api.DeleteExpenseRequest{ExpenseID: created.Expense.ID}))
	require.NoError(t, err)
	_, err = srv.expense.DeleteExpense(ctx, as(alice, &api.DeleteExpenseRequest{ExpenseID: created.Expense.ID}))
	assertCode(t, connect.CodeNotFound, err)
}

func TestExpenseOwnership(t *testing.T) {
	srv := setupTestServer(t, nil)
	ctx := context.Background()
	alice := srv.register(t, "alice@example.com", "Alice")
	bob := srv.register(t, "bob@example.com", "Bob")
	food := createCategory(t, srv, alice, "Food")
	e := createExpense(t, srv, alice, food.ID, "10", day(0))

	_, err := srv.expense.DeleteExpense(ctx, as(bob, &api.DeleteExpenseRequest{ExpenseID: e.Expense.ID}))
	assertCode(t, connect.CodePermissionDenied, err)

	list, err := srv.expense.ListExpenses(ctx, as(bob, &api.ListExpensesRequest{}))
	require.NoError(t, err)
	assert.Empty(t, list.Msg.Expenses)
	assert.True(t, list.Msg.Total.IsZero())
}

func TestSpendingSummary(t *testing.T) {
	srv := setupTestServer(t, nil)
	ctx := context.Background()
	alice := srv.register(t, "alice@example.com", "Alice")
	food := createCategory(t, srv, alice, "Food")
	rent := createCategory(t, srv, alice, "Rent")

	createExpense(t, srv, alice, food.ID, "25", "2026-02-03")
	createExpense(t, srv, alice, food.ID, "25", "2026-02-20")
	createExpense(t, srv, alice, rent.ID, "150", "2026-02-01")
	createExpense(t, srv, alice, rent.ID, "999", "2026-03-01")

	resp, err := srv.expense.GetSpendingSummary(ctx, as(alice, &api.GetSpendingSummaryRequest{Month: "2026-02"}))
	require.NoError(t, err)
	msg := resp.Msg
	assert.Equal(t, "2026-02-01", msg.From)
	assert.Equal(t, "2026-02-28", msg.To)
	assert.True(t, dec("200").Equal(msg.Total))
	assert.Equal(t, 3, msg.Count)
	require.Len(t, msg.Categories, 2)
	assert.Equal(t, "Rent", msg.Categories[0].Name)
	assert.True(t, dec("75").Equal(msg.Categories[0].Percent))
	assert.Equal(t, "Food", msg.Categories[1].Name)
	assert.Equal(t, 2, msg.Categories[1].Count)

	_, err = srv.expense.GetSpendingSummary(ctx, as(alice, &api.GetSpendingSummaryRequest{Month: "2026-13"}))
	assertCode(t, connect.CodeInvalidArgument, err)

	current, err := srv.expense.GetSpendingSummary(ctx, as(alice, &api.GetSpendingSummaryRequest{}))
	require.NoError(t, err)
	month, _ := calculator.MonthOf(day(0))
	from, to, _ := calculator.MonthBounds(month)
	assert.Equal(t, from, current.Msg.From)
	assert.Equal(t, to, current.Msg.To)
}

func TestBudgetExceededEvent(t *testing.T) {
	srv := setupTestServer(t, nil)
	ctx := context.Background()
	alice := srv.register(t, "alice@example.com", "Alice")
	food := createCategory(t, srv, alice, "Food")

	month, err := calculator.MonthOf(day(0))
	require.NoError(t, err)
	_, err = srv.goal.SetGoal(ctx, as(alice, &api.SetGoalRequest{
		Month:     month,
		MinAmount: dec("20"),
		MaxAmount: dec("100"),
	}))
	require.NoError(t, err)

	first := createExpense(t, srv, alice, food.ID, "60", day(0))
	require.NotNil(t, first.Goal)
	assert.Equal(t, string(calculator.GoalWithin), first.Goal.Status)
	assert.Empty(t, srv.events.ofType(events.BudgetExceeded))

	second := createExpense(t, srv, alice, food.ID, "50", day(0))
	require.NotNil(t, second.Goal)
	assert.Equal(t, string(calculator.GoalOver), second.Goal.Status)
	assert.True(t, dec("-10").Equal(second.Goal.Remaining))

	exceeded := srv.events.ofType(events.BudgetExceeded)
	require.Len(t, exceeded, 1)
	assert.Equal(t, []string{alice.ID}, exceeded[0].UserIDs)

	createExpense(t, srv, alice, food.ID, "5", day(0))
	assert.Len(t, srv.events.ofType(events.BudgetExceeded), 1, "already over, no second event")
}
