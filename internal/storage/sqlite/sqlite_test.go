package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("alice@example.com", "Alice", "hash")
	require.NoError(t, store.CreateUser(ctx, user))

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup := models.NewUser("alice@example.com", "Other", "hash")
		err := store.CreateUser(ctx, dup)
		if !errors.Is(err, storage.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("lookup by email and id", func(t *testing.T) {
		byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byID, err := store.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", byID.DisplayName)
	})

	t.Run("missing user is ErrNotFound", func(t *testing.T) {
		_, err := store.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("update profile", func(t *testing.T) {
		user.DisplayName = "Alice B"
		user.Phone = "555-0100"
		require.NoError(t, store.UpdateUser(ctx, user))

		got, err := store.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice B", got.DisplayName)
		assert.Equal(t, "555-0100", got.Phone)
	})

	t.Run("batch lookup omits unknown ids", func(t *testing.T) {
		users, err := store.GetUsersByIDs(ctx, []string{user.ID, "missing"})
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Contains(t, users, user.ID)
	})
}

func TestCategoriesAndExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food := &models.Category{UserID: "u1", Name: "Food"}
	require.NoError(t, store.CreateCategory(ctx, food))
	travel := &models.Category{UserID: "u1", Name: "Travel"}
	require.NoError(t, store.CreateCategory(ctx, travel))

	t.Run("category names are unique per user ignoring case", func(t *testing.T) {
		err := store.CreateCategory(ctx, &models.Category{UserID: "u1", Name: "food"})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		// Another user may reuse the name.
		require.NoError(t, store.CreateCategory(ctx, &models.Category{UserID: "u2", Name: "Food"}))
	})

	expenses := []*models.Expense{
		{UserID: "u1", CategoryID: food.ID, Amount: dec("12.50"), Date: "2026-03-01"},
		{UserID: "u1", CategoryID: food.ID, Amount: dec("7.25"), Date: "2026-03-15"},
		{UserID: "u1", CategoryID: travel.ID, Amount: dec("100"), Date: "2026-04-02"},
		{UserID: "u2", CategoryID: "other", Amount: dec("1"), Date: "2026-03-10"},
	}
	for _, e := range expenses {
		require.NoError(t, store.CreateExpense(ctx, e))
	}

	t.Run("list filters by user and date range", func(t *testing.T) {
		got, err := store.ListExpenses(ctx, storage.ExpenseFilter{UserID: "u1", From: "2026-03-01", To: "2026-03-31"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		// Newest first.
		assert.Equal(t, "2026-03-15", got[0].Date)
		assert.Equal(t, "2026-03-01", got[1].Date)
	})

	t.Run("sum is exact", func(t *testing.T) {
		total, err := store.SumExpenses(ctx, storage.ExpenseFilter{UserID: "u1", CategoryID: food.ID})
		require.NoError(t, err)
		assert.True(t, total.Equal(dec("19.75")), "got %s", total)
	})

	t.Run("category in use cannot be deleted", func(t *testing.T) {
		err := store.DeleteCategory(ctx, travel.ID)
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("update and delete expense", func(t *testing.T) {
		e := expenses[2]
		e.Amount = dec("80")
		e.Description = "train"
		require.NoError(t, store.UpdateExpense(ctx, e))

		got, err := store.GetExpense(ctx, e.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(dec("80")))
		assert.Equal(t, "train", got.Description)

		require.NoError(t, store.DeleteExpense(ctx, e.ID))
		_, err = store.GetExpense(ctx, e.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, store.DeleteCategory(ctx, travel.ID))
	})

	t.Run("rename category", func(t *testing.T) {
		food.Name = "Groceries"
		require.NoError(t, store.UpdateCategory(ctx, food))
		got, err := store.GetCategory(ctx, food.ID)
		require.NoError(t, err)
		assert.Equal(t, "Groceries", got.Name)
	})
}

func TestGoals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	goal := &models.Goal{UserID: "u1", Month: "2026-03", MinAmount: dec("100"), MaxAmount: dec("500")}
	require.NoError(t, store.UpsertGoal(ctx, goal))
	firstID := goal.ID

	replacement := &models.Goal{UserID: "u1", Month: "2026-03", MinAmount: dec("50"), MaxAmount: dec("400")}
	require.NoError(t, store.UpsertGoal(ctx, replacement))
	assert.Equal(t, firstID, replacement.ID, "upsert must keep the existing id")

	got, err := store.GetGoal(ctx, "u1", "2026-03")
	require.NoError(t, err)
	assert.True(t, got.MaxAmount.Equal(dec("400")))

	require.NoError(t, store.UpsertGoal(ctx, &models.Goal{UserID: "u1", Month: "2026-04", MinAmount: dec("0"), MaxAmount: dec("10")}))
	goals, err := store.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "2026-04", goals[0].Month)

	require.NoError(t, store.DeleteGoal(ctx, "u1", "2026-03"))
	_, err = store.GetGoal(ctx, "u1", "2026-03")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	race := &models.RaceChallenge{
		Name:       "Frugal March",
		CreatorID:  "u1",
		Budget:     dec("300"),
		StartDate:  "2026-03-01",
		EndDate:    "2026-03-31",
		Status:     models.RaceStatusPending,
		InviteCode: "ABC123",
		Participants: []models.RaceParticipant{
			{UserID: "u1", DisplayName: "Alice", JoinedAt: 1},
		},
	}
	require.NoError(t, store.CreateRace(ctx, race))

	require.NoError(t, store.AddRaceParticipant(ctx, &models.RaceParticipant{
		RaceID: race.ID, UserID: "u2", DisplayName: "Bob", JoinedAt: 2,
	}))

	t.Run("joining twice is rejected", func(t *testing.T) {
		err := store.AddRaceParticipant(ctx, &models.RaceParticipant{RaceID: race.ID, UserID: "u2", DisplayName: "Bob"})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	})

	t.Run("joining a missing race is ErrNotFound", func(t *testing.T) {
		err := store.AddRaceParticipant(ctx, &models.RaceParticipant{RaceID: "nope", UserID: "u3"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("lookup by invite code loads participants in join order", func(t *testing.T) {
		got, err := store.GetRaceByInviteCode(ctx, "ABC123")
		require.NoError(t, err)
		require.Len(t, got.Participants, 2)
		assert.Equal(t, "u1", got.Participants[0].UserID)
		assert.Equal(t, "Bob", got.Participants[1].DisplayName)
	})

	t.Run("list by participant", func(t *testing.T) {
		races, err := store.ListRacesByUser(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, races, 1)
		assert.Len(t, races[0].Participants, 2)

		none, err := store.ListRacesByUser(ctx, "u9")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update and leave", func(t *testing.T) {
		race.Status = models.RaceStatusCancelled
		require.NoError(t, store.UpdateRace(ctx, race))
		require.NoError(t, store.RemoveRaceParticipant(ctx, race.ID, "u2"))

		got, err := store.GetRace(ctx, race.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RaceStatusCancelled, got.Status)
		assert.Len(t, got.Participants, 1)

		err = store.RemoveRaceParticipant(ctx, race.ID, "u2")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestCollabGoals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	goal := &models.CollaborativeGoal{
		Name:       "Ski trip",
		OwnerID:    "u1",
		InviteCode: "SKI001",
		Members:    []string{"u1"},
		Categories: []models.GoalCategory{
			{Name: "Lodging", TargetAmount: dec("800")},
			{Name: "Lift passes", TargetAmount: dec("400")},
		},
	}
	require.NoError(t, store.CreateCollabGoal(ctx, goal))
	require.NoError(t, store.AddCollabMember(ctx, goal.ID, "u2"))

	lodging := goal.Categories[0].ID

	t.Run("contributions increment the running total", func(t *testing.T) {
		require.NoError(t, store.AddContribution(ctx, &models.GoalContribution{
			GoalID: goal.ID, CategoryID: lodging, UserID: "u1", Amount: dec("150.50"),
		}))
		require.NoError(t, store.AddContribution(ctx, &models.GoalContribution{
			GoalID: goal.ID, CategoryID: lodging, UserID: "u2", Amount: dec("49.50"), Note: "deposit",
		}))

		got, err := store.GetCollabGoal(ctx, goal.ID)
		require.NoError(t, err)
		require.Len(t, got.Categories, 2)
		assert.Equal(t, "Lodging", got.Categories[0].Name)
		assert.True(t, got.Categories[0].CurrentAmount.Equal(dec("200")), "got %s", got.Categories[0].CurrentAmount)
		assert.True(t, got.Categories[1].CurrentAmount.IsZero())
		assert.Equal(t, []string{"u1", "u2"}, got.Members)

		contributions, err := store.ListContributions(ctx, goal.ID)
		require.NoError(t, err)
		assert.Len(t, contributions, 2)
	})

	t.Run("contribution to unknown category is ErrNotFound", func(t *testing.T) {
		err := store.AddContribution(ctx, &models.GoalContribution{
			GoalID: goal.ID, CategoryID: "missing", UserID: "u1", Amount: dec("1"),
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("category with contributions cannot be removed", func(t *testing.T) {
		err := store.RemoveGoalCategory(ctx, goal.ID, lodging)
		assert.ErrorIs(t, err, storage.ErrConflict)

		require.NoError(t, store.RemoveGoalCategory(ctx, goal.ID, goal.Categories[1].ID))
	})

	t.Run("update keeps running total", func(t *testing.T) {
		require.NoError(t, store.UpdateGoalCategory(ctx, &models.GoalCategory{
			ID: lodging, GoalID: goal.ID, Name: "Cabin", TargetAmount: dec("900"),
		}))
		got, err := store.GetCollabGoalByInviteCode(ctx, "SKI001")
		require.NoError(t, err)
		require.Len(t, got.Categories, 1)
		assert.Equal(t, "Cabin", got.Categories[0].Name)
		assert.True(t, got.Categories[0].CurrentAmount.Equal(dec("200")))
	})

	t.Run("delete cascades", func(t *testing.T) {
		goals, err := store.ListCollabGoalsByUser(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, goals, 1)

		require.NoError(t, store.RemoveCollabMember(ctx, goal.ID, "u2"))
		require.NoError(t, store.DeleteCollabGoal(ctx, goal.ID))

		_, err = store.GetCollabGoal(ctx, goal.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		contributions, err := store.ListContributions(ctx, goal.ID)
		require.NoError(t, err)
		assert.Empty(t, contributions)
	})
}

func TestJournal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	localCat := &models.Category{ID: storage.NewLocalID(), UserID: "u1", Name: "Food"}
	require.NoError(t, store.CreateCategory(ctx, localCat))
	localExp := &models.Expense{ID: storage.NewLocalID(), UserID: "u1", CategoryID: localCat.ID, Amount: dec("5"), Date: "2026-03-01"}
	require.NoError(t, store.CreateExpense(ctx, localExp))

	catPayload, _ := json.Marshal(localCat)
	expPayload, _ := json.Marshal(localExp)
	require.NoError(t, store.AppendPendingOp(ctx, &storage.PendingOp{
		Kind: storage.KindCategory, OperationType: storage.OpCreate, TargetID: localCat.ID, Payload: string(catPayload),
	}))
	require.NoError(t, store.AppendPendingOp(ctx, &storage.PendingOp{
		Kind: storage.KindExpense, OperationType: storage.OpCreate, TargetID: localExp.ID, Payload: string(expPayload),
	}))

	n, err := store.CountPendingOps(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ops, err := store.ListPendingOps(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, storage.KindCategory, ops[0].Kind, "ops are replayed in append order")

	t.Run("remap rewrites references", func(t *testing.T) {
		require.NoError(t, store.RemapID(ctx, storage.KindCategory, localCat.ID, "remote-cat"))

		_, err := store.GetCategory(ctx, localCat.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.GetCategory(ctx, "remote-cat")
		require.NoError(t, err)

		exp, err := store.GetExpense(ctx, localExp.ID)
		require.NoError(t, err)
		assert.Equal(t, "remote-cat", exp.CategoryID)

		ops, err := store.ListPendingOps(ctx)
		require.NoError(t, err)
		assert.Equal(t, "remote-cat", ops[0].TargetID)

		var queued models.Expense
		require.NoError(t, json.Unmarshal([]byte(ops[1].Payload), &queued))
		assert.Equal(t, "remote-cat", queued.CategoryID)
	})

	t.Run("complete and fail leave the pending list", func(t *testing.T) {
		require.NoError(t, store.CompletePendingOp(ctx, ops[0].ID))
		require.NoError(t, store.FailPendingOp(ctx, ops[1].ID, "rejected"))

		n, err := store.CountPendingOps(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		err = store.CompletePendingOp(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("unknown kind", func(t *testing.T) {
		assert.Error(t, store.RemapID(ctx, "bill", "a", "b"))
	})
}

func TestMirror(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("put is an upsert", func(t *testing.T) {
		cat := &models.Category{ID: "c1", UserID: "u1", Name: "Food", CreatedAt: 1}
		require.NoError(t, store.PutCategory(ctx, cat))
		cat.Name = "Dining"
		require.NoError(t, store.PutCategory(ctx, cat))

		got, err := store.GetCategory(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "Dining", got.Name)
	})

	t.Run("put goal replaces a stale local slot", func(t *testing.T) {
		require.NoError(t, store.UpsertGoal(ctx, &models.Goal{
			ID: storage.NewLocalID(), UserID: "u1", Month: "2026-05", MinAmount: dec("1"), MaxAmount: dec("2"),
		}))
		require.NoError(t, store.PutGoal(ctx, &models.Goal{
			ID: "g-remote", UserID: "u1", Month: "2026-05", MinAmount: dec("10"), MaxAmount: dec("20"), CreatedAt: 5, UpdatedAt: 5,
		}))

		got, err := store.GetGoal(ctx, "u1", "2026-05")
		require.NoError(t, err)
		assert.Equal(t, "g-remote", got.ID)
		assert.True(t, got.MaxAmount.Equal(dec("20")))
	})

	t.Run("put race replaces participants", func(t *testing.T) {
		race := &models.RaceChallenge{
			ID: "r1", Name: "R", CreatorID: "u1", Budget: dec("10"), StartDate: "2026-01-01", EndDate: "2026-01-31",
			Status: models.RaceStatusActive, InviteCode: "R1",
			Participants: []models.RaceParticipant{{UserID: "u1", DisplayName: "A", JoinedAt: 1}, {UserID: "u2", DisplayName: "B", JoinedAt: 2}},
		}
		require.NoError(t, store.PutRace(ctx, race))
		race.Participants = race.Participants[:1]
		require.NoError(t, store.PutRace(ctx, race))

		got, err := store.GetRace(ctx, "r1")
		require.NoError(t, err)
		assert.Len(t, got.Participants, 1)
	})

	t.Run("put collab goal prunes categories", func(t *testing.T) {
		goal := &models.CollaborativeGoal{
			ID: "cg1", Name: "Trip", OwnerID: "u1", InviteCode: "T1", Members: []string{"u1", "u2"}, CreatedAt: 10,
			Categories: []models.GoalCategory{
				{ID: "gc1", Name: "Food", TargetAmount: dec("100"), CurrentAmount: dec("25")},
				{ID: "gc2", Name: "Fuel", TargetAmount: dec("50")},
			},
		}
		require.NoError(t, store.PutCollabGoal(ctx, goal))
		goal.Categories = goal.Categories[:1]
		goal.Members = []string{"u1"}
		require.NoError(t, store.PutCollabGoal(ctx, goal))

		got, err := store.GetCollabGoal(ctx, "cg1")
		require.NoError(t, err)
		require.Len(t, got.Categories, 1)
		assert.True(t, got.Categories[0].CurrentAmount.Equal(dec("25")))
		assert.Equal(t, []string{"u1"}, got.Members)

		c := &models.GoalContribution{ID: "k1", GoalID: "cg1", CategoryID: "gc1", UserID: "u1", Amount: dec("25"), CreatedAt: 11}
		require.NoError(t, store.PutContribution(ctx, c))
		require.NoError(t, store.PutContribution(ctx, c))
		contributions, err := store.ListContributions(ctx, "cg1")
		require.NoError(t, err)
		assert.Len(t, contributions, 1)
	})
}
