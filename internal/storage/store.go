// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a uniqueness constraint would be violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict is returned when a write is refused because of related records.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// IsDomainError reports whether err describes the data rather than the
// transport: the same call would fail the same way against any healthy store.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrConflict)
}

// ExpenseFilter narrows ListExpenses and SumExpenses.
// Empty fields are not applied. From and To are inclusive YYYY-MM-DD dates.
type ExpenseFilter struct {
	UserID     string
	CategoryID string
	From       string
	To         string
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// CategoryStore persists expense categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context, userID string) ([]*models.Category, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*models.Expense, error)
	SumExpenses(ctx context.Context, filter ExpenseFilter) (decimal.Decimal, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

// GoalStore persists monthly spending goals.
type GoalStore interface {
	// UpsertGoal creates or replaces the goal for (goal.UserID, goal.Month).
	// On replace, goal.ID and goal.CreatedAt are set from the existing row.
	UpsertGoal(ctx context.Context, goal *models.Goal) error
	GetGoal(ctx context.Context, userID, month string) (*models.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]*models.Goal, error)
	DeleteGoal(ctx context.Context, userID, month string) error
}

// RaceStore persists race challenges and their participants.
type RaceStore interface {
	// CreateRace persists the race and every participant already on it.
	CreateRace(ctx context.Context, race *models.RaceChallenge) error
	GetRace(ctx context.Context, id string) (*models.RaceChallenge, error)
	GetRaceByInviteCode(ctx context.Context, code string) (*models.RaceChallenge, error)
	ListRacesByUser(ctx context.Context, userID string) ([]*models.RaceChallenge, error)
	// UpdateRace overwrites name, budget, dates and status.
	UpdateRace(ctx context.Context, race *models.RaceChallenge) error
	AddRaceParticipant(ctx context.Context, participant *models.RaceParticipant) error
	RemoveRaceParticipant(ctx context.Context, raceID, userID string) error
}

// CollabStore persists collaborative goals, their categories and contributions.
type CollabStore interface {
	// CreateCollabGoal persists the goal, its members and its categories.
	CreateCollabGoal(ctx context.Context, goal *models.CollaborativeGoal) error
	GetCollabGoal(ctx context.Context, id string) (*models.CollaborativeGoal, error)
	GetCollabGoalByInviteCode(ctx context.Context, code string) (*models.CollaborativeGoal, error)
	ListCollabGoalsByUser(ctx context.Context, userID string) ([]*models.CollaborativeGoal, error)
	DeleteCollabGoal(ctx context.Context, id string) error
	AddCollabMember(ctx context.Context, goalID, userID string) error
	RemoveCollabMember(ctx context.Context, goalID, userID string) error
	AddGoalCategory(ctx context.Context, category *models.GoalCategory) error
	// UpdateGoalCategory overwrites name and target; the running total is untouched.
	UpdateGoalCategory(ctx context.Context, category *models.GoalCategory) error
	RemoveGoalCategory(ctx context.Context, goalID, categoryID string) error
	// AddContribution records the contribution and increments the category's
	// running total atomically.
	AddContribution(ctx context.Context, contribution *models.GoalContribution) error
	ListContributions(ctx context.Context, goalID string) ([]*models.GoalContribution, error)
}

// Store defines the full set of persistence operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, the
// unified remote+cache repository) without changing the service layer.
type Store interface {
	UserStore
	CategoryStore
	ExpenseStore
	GoalStore
	RaceStore
	CollabStore

	// Close releases any resources held by the store.
	Close() error
}
