package unified

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/metrics"
	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
	"github.com/mmynk/spendwise/internal/storage/sqlite"
)

var errConnRefused = errors.New("dial tcp 10.0.0.1:5432: connection refused")

// flakyStore fails the wrapped calls with a transport error while down is set.
type flakyStore struct {
	storage.Store
	down atomic.Bool
}

func (f *flakyStore) fail() error {
	if f.down.Load() {
		return errConnRefused
	}
	return nil
}

func (f *flakyStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.GetUserByID(ctx, id)
}

func (f *flakyStore) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.CreateCategory(ctx, c)
}

func (f *flakyStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.GetCategory(ctx, id)
}

func (f *flakyStore) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.ListCategories(ctx, userID)
}

func (f *flakyStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.UpdateCategory(ctx, c)
}

func (f *flakyStore) DeleteCategory(ctx context.Context, id string) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.DeleteCategory(ctx, id)
}

func (f *flakyStore) CreateExpense(ctx context.Context, e *models.Expense) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.CreateExpense(ctx, e)
}

func (f *flakyStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.GetExpense(ctx, id)
}

func (f *flakyStore) ListExpenses(ctx context.Context, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.ListExpenses(ctx, filter)
}

func (f *flakyStore) SumExpenses(ctx context.Context, filter storage.ExpenseFilter) (decimal.Decimal, error) {
	if err := f.fail(); err != nil {
		return decimal.Zero, err
	}
	return f.Store.SumExpenses(ctx, filter)
}

func (f *flakyStore) UpdateExpense(ctx context.Context, e *models.Expense) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.UpdateExpense(ctx, e)
}

func (f *flakyStore) DeleteExpense(ctx context.Context, id string) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.DeleteExpense(ctx, id)
}

func (f *flakyStore) UpsertGoal(ctx context.Context, g *models.Goal) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.UpsertGoal(ctx, g)
}

func (f *flakyStore) GetGoal(ctx context.Context, userID, month string) (*models.Goal, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.GetGoal(ctx, userID, month)
}

func (f *flakyStore) ListGoals(ctx context.Context, userID string) ([]*models.Goal, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.ListGoals(ctx, userID)
}

func (f *flakyStore) DeleteGoal(ctx context.Context, userID, month string) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.DeleteGoal(ctx, userID, month)
}

func (f *flakyStore) CreateRace(ctx context.Context, race *models.RaceChallenge) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.CreateRace(ctx, race)
}

func (f *flakyStore) GetRace(ctx context.Context, id string) (*models.RaceChallenge, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Store.GetRace(ctx, id)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Notify(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []string
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

type fixture struct {
	repo     *Repository
	remote   *sqlite.SQLiteStore
	cache    *sqlite.SQLiteStore
	flaky    *flakyStore
	recorder *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	remote, err := sqlite.New(filepath.Join(t.TempDir(), "remote.db"))
	require.NoError(t, err)
	cache, err := sqlite.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)

	f := &fixture{
		remote:   remote,
		cache:    cache,
		flaky:    &flakyStore{Store: remote},
		recorder: &recorder{},
	}
	f.repo = New(f.flaky, cache, WithNotifier(f.recorder), WithMetrics(metrics.New()))
	t.Cleanup(func() { f.repo.Close() })
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOnlineWritesMirrorIntoCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := &models.Category{UserID: "u1", Name: "Food"}
	require.NoError(t, f.repo.CreateCategory(ctx, c))
	assert.False(t, storage.IsLocalID(c.ID))

	remote, err := f.remote.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food", remote.Name)

	cached, err := f.cache.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food", cached.Name)

	n, err := f.repo.PendingOps(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{events.CategoryChanged}, f.recorder.types())
}

func TestDomainErrorsAreNotMasked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repo.GetCategory(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, f.repo.CreateCategory(ctx, &models.Category{UserID: "u1", Name: "Food"}))
	err = f.repo.CreateCategory(ctx, &models.Category{UserID: "u1", Name: "food"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	n, err := f.repo.PendingOps(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a rejected write must not be queued")
}

func TestReadsFallBackToCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := &models.Category{UserID: "u1", Name: "Food"}
	require.NoError(t, f.repo.CreateCategory(ctx, c))
	e := &models.Expense{UserID: "u1", CategoryID: c.ID, Amount: dec("12.50"), Date: "2026-10-01"}
	require.NoError(t, f.repo.CreateExpense(ctx, e))

	f.flaky.down.Store(true)

	expenses, err := f.repo.ListExpenses(ctx, storage.ExpenseFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, e.ID, expenses[0].ID)

	total, err := f.repo.SumExpenses(ctx, storage.ExpenseFilter{UserID: "u1", From: "2026-10-01", To: "2026-10-31"})
	require.NoError(t, err)
	assert.True(t, dec("12.50").Equal(total))

	got, err := f.repo.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food", got.Name)
}

func TestOfflineWritesAreReplayed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.flaky.down.Store(true)

	c := &models.Category{UserID: "u1", Name: "Travel"}
	require.NoError(t, f.repo.CreateCategory(ctx, c))
	localCategoryID := c.ID
	require.True(t, storage.IsLocalID(localCategoryID))

	e := &models.Expense{UserID: "u1", CategoryID: c.ID, Amount: dec("40"), Date: "2026-10-03"}
	require.NoError(t, f.repo.CreateExpense(ctx, e))
	require.True(t, storage.IsLocalID(e.ID))

	g := &models.Goal{UserID: "u1", Month: "2026-10", MinAmount: dec("100"), MaxAmount: dec("500")}
	require.NoError(t, f.repo.UpsertGoal(ctx, g))

	n, err := f.repo.PendingOps(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	categories, err := f.repo.ListCategories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, localCategoryID, categories[0].ID)

	goal, err := f.repo.GetGoal(ctx, "u1", "2026-10")
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(goal.MaxAmount))

	f.flaky.down.Store(false)

	// Before Sync the remote store has nothing, but local records are overlaid.
	categories, err = f.repo.ListCategories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, categories, 1)

	report, err := f.repo.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Applied: 3}, report)

	remoteCategories, err := f.remote.ListCategories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, remoteCategories, 1)
	remoteCategoryID := remoteCategories[0].ID
	assert.False(t, storage.IsLocalID(remoteCategoryID))

	remoteExpenses, err := f.remote.ListExpenses(ctx, storage.ExpenseFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, remoteExpenses, 1)
	assert.Equal(t, remoteCategoryID, remoteExpenses[0].CategoryID)

	cachedExpenses, err := f.cache.ListExpenses(ctx, storage.ExpenseFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, cachedExpenses, 1)
	assert.Equal(t, remoteExpenses[0].ID, cachedExpenses[0].ID)
	assert.Equal(t, remoteCategoryID, cachedExpenses[0].CategoryID)

	remoteGoal, err := f.remote.GetGoal(ctx, "u1", "2026-10")
	require.NoError(t, err)
	cachedGoal, err := f.cache.GetGoal(ctx, "u1", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, remoteGoal.ID, cachedGoal.ID)

	// Callers holding the local ID still reach the record.
	got, err := f.repo.GetCategory(ctx, localCategoryID)
	require.NoError(t, err)
	assert.Equal(t, remoteCategoryID, got.ID)

	n, err = f.repo.PendingOps(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, f.recorder.types(), events.SyncCompleted)
}

func TestWritesDrainJournalFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.flaky.down.Store(true)
	c := &models.Category{UserID: "u1", Name: "Books"}
	require.NoError(t, f.repo.CreateCategory(ctx, c))
	f.flaky.down.Store(false)

	e := &models.Expense{UserID: "u1", CategoryID: c.ID, Amount: dec("9.99"), Date: "2026-10-05"}
	require.NoError(t, f.repo.CreateExpense(ctx, e))
	assert.False(t, storage.IsLocalID(e.ID))
	assert.False(t, storage.IsLocalID(e.CategoryID), "category ID should be resolved after the drain")

	remote, err := f.remote.GetCategory(ctx, e.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Books", remote.Name)
}

func TestOfflineDeleteOfRemoteRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := &models.Category{UserID: "u1", Name: "Food"}
	require.NoError(t, f.repo.CreateCategory(ctx, c))
	e := &models.Expense{UserID: "u1", CategoryID: c.ID, Amount: dec("3"), Date: "2026-10-02"}
	require.NoError(t, f.repo.CreateExpense(ctx, e))

	f.flaky.down.Store(true)
	require.NoError(t, f.repo.DeleteExpense(ctx, e.ID))
	_, err := f.cache.GetExpense(ctx, e.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	f.flaky.down.Store(false)
	report, err := f.repo.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)

	_, err = f.remote.GetExpense(ctx, e.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOfflineCreateThenDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.flaky.down.Store(true)

	c := &models.Category{UserID: "u1", Name: "Temp"}
	require.NoError(t, f.repo.CreateCategory(ctx, c))
	e := &models.Expense{UserID: "u1", CategoryID: c.ID, Amount: dec("5"), Date: "2026-10-04"}
	require.NoError(t, f.repo.CreateExpense(ctx, e))
	require.NoError(t, f.repo.DeleteExpense(ctx, e.ID))
	require.NoError(t, f.repo.DeleteCategory(ctx, c.ID))

	f.flaky.down.Store(false)
	report, err := f.repo.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Applied: 4}, report)

	remoteCategories, err := f.remote.ListCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, remoteCategories)
	remoteExpenses, err := f.remote.ListExpenses(ctx, storage.ExpenseFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, remoteExpenses)

	cachedCategories, err := f.cache.ListCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cachedCategories, "deleted category must not come back into the cache")
	cachedExpenses, err := f.cache.ListExpenses(ctx, storage.ExpenseFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, cachedExpenses, "deleted expense must not come back into the cache")

	f.flaky.down.Store(true)
	categories, err := f.repo.ListCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, categories)
	require.NoError(t, f.repo.CreateCategory(ctx, &models.Category{UserID: "u1", Name: "Temp"}))
}

func TestSyncFailsRejectedOps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Created behind the repository's back, so the cache never sees it.
	require.NoError(t, f.remote.CreateCategory(ctx, &models.Category{UserID: "u1", Name: "Food"}))

	f.flaky.down.Store(true)
	require.NoError(t, f.repo.CreateCategory(ctx, &models.Category{UserID: "u1", Name: "food"}))
	f.flaky.down.Store(false)

	report, err := f.repo.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Failed: 1}, report)

	n, err := f.repo.PendingOps(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncStopsWhileOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.flaky.down.Store(true)

	require.NoError(t, f.repo.CreateCategory(ctx, &models.Category{UserID: "u1", Name: "A"}))
	require.NoError(t, f.repo.CreateCategory(ctx, &models.Category{UserID: "u1", Name: "B"}))

	report, err := f.repo.Sync(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Equal(t, SyncReport{Remaining: 2}, report)

	n, err := f.repo.PendingOps(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSharedWritesNeedRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	race := &models.RaceChallenge{
		Name:       "No-Takeout November",
		CreatorID:  "u1",
		Budget:     dec("200"),
		StartDate:  "2026-11-01",
		EndDate:    "2026-11-30",
		Status:     models.RaceStatusPending,
		InviteCode: "ABC123",
		Participants: []models.RaceParticipant{
			{UserID: "u1", DisplayName: "Alice", JoinedAt: 1},
		},
	}
	require.NoError(t, f.repo.CreateRace(ctx, race))

	f.flaky.down.Store(true)

	cached, err := f.repo.GetRace(ctx, race.ID)
	require.NoError(t, err)
	assert.Equal(t, "No-Takeout November", cached.Name)
	require.Len(t, cached.Participants, 1)

	err = f.repo.CreateRace(ctx, &models.RaceChallenge{Name: "Offline", CreatorID: "u1", InviteCode: "XYZ"})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.ErrorIs(t, err, errConnRefused)
}

func TestUserReadsFallBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := models.NewUser("alice@example.com", "Alice", "hash")
	require.NoError(t, f.repo.CreateUser(ctx, user))

	f.flaky.down.Store(true)
	got, err := f.repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestCancelledContextIsNotOffline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, isOffline(ctx, errConnRefused))
	assert.True(t, isOffline(context.Background(), errConnRefused))
	assert.False(t, isOffline(context.Background(), storage.ErrNotFound))
}
