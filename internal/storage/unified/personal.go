package unified

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

// Categories, expenses and goals can be written offline. Each write first
// drains the journal; it goes to the remote store only when nothing older is
// still queued and the target is not a record that exists only locally.

// goalTarget is the journal target of a goal op.
func goalTarget(userID, month string) string {
	return userID + "/" + month
}

func (r *Repository) CreateCategory(ctx context.Context, c *models.Category) error {
	if r.drain(ctx) {
		err := r.remote.CreateCategory(ctx, c)
		if err == nil {
			r.mirror("CreateCategory", r.cache.PutCategory(ctx, c))
			r.notify(ctx, events.New(events.CategoryChanged, c.ID, c, c.UserID))
			return nil
		}
		if !isOffline(ctx, err) {
			return err
		}
	}

	c.ID = storage.NewLocalID()
	if err := r.cache.CreateCategory(ctx, c); err != nil {
		return err
	}
	if err := r.enqueue(ctx, storage.KindCategory, storage.OpCreate, c.ID, c); err != nil {
		return err
	}
	r.notify(ctx, events.New(events.CategoryChanged, c.ID, c, c.UserID))
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	id = r.resolve(id)
	if storage.IsLocalID(id) {
		return r.cache.GetCategory(ctx, id)
	}
	c, err := r.remote.GetCategory(ctx, id)
	if err == nil {
		r.mirror("GetCategory", r.cache.PutCategory(ctx, c))
		return c, nil
	}
	if !r.fallback(ctx, "GetCategory", err) {
		return nil, err
	}
	return r.cache.GetCategory(ctx, id)
}

func (r *Repository) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	categories, err := r.remote.ListCategories(ctx, userID)
	if err != nil {
		if !r.fallback(ctx, "ListCategories", err) {
			return nil, err
		}
		return r.cache.ListCategories(ctx, userID)
	}
	for _, c := range categories {
		r.mirror("ListCategories", r.cache.PutCategory(ctx, c))
	}

	// Categories created offline are not on the remote store until Sync.
	cached, err := r.cache.ListCategories(ctx, userID)
	if err != nil {
		r.mirror("ListCategories", err)
		return categories, nil
	}
	merged := categories
	for _, c := range cached {
		if storage.IsLocalID(c.ID) {
			merged = append(merged, c)
		}
	}
	if len(merged) != len(categories) {
		sort.SliceStable(merged, func(i, j int) bool {
			return strings.ToLower(merged[i].Name) < strings.ToLower(merged[j].Name)
		})
	}
	return merged, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c *models.Category) error {
	drained := r.drain(ctx)
	c.ID = r.resolve(c.ID)
	if drained && !storage.IsLocalID(c.ID) {
		err := r.remote.UpdateCategory(ctx, c)
		if err == nil {
			r.mirror("UpdateCategory", r.cache.PutCategory(ctx, c))
			r.notify(ctx, events.New(events.CategoryChanged, c.ID, c, c.UserID))
			return nil
		}
		if !isOffline(ctx, err) {
			return err
		}
	}

	err := r.cache.UpdateCategory(ctx, c)
	if errors.Is(err, storage.ErrNotFound) {
		err = r.cache.PutCategory(ctx, c)
	}
	if err != nil {
		return err
	}
	if err := r.enqueue(ctx, storage.KindCategory, storage.OpUpdate, c.ID, c); err != nil {
		return err
	}
	r.notify(ctx, events.New(events.CategoryChanged, c.ID, c, c.UserID))
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	drained := r.drain(ctx)
	id = r.resolve(id)
	if drained && !storage.IsLocalID(id) {
		err := r.remote.DeleteCategory(ctx, id)
		if err == nil {
			r.mirror("DeleteCategory", r.cache.DeleteCategory(ctx, id))
			r.notify(ctx, events.New(events.CategoryDeleted, id, nil))
			return nil
		}
		if !isOffline(ctx, err) {
			return err
		}
	}

	// A remote record the cache never saw can still be deleted offline.
	if err := r.cache.DeleteCategory(ctx, id); err != nil && (storage.IsLocalID(id) || !errors.Is(err, storage.ErrNotFound)) {
		return err
	}
	if err := r.enqueue(ctx, storage.KindCategory, storage.OpDelete, id, &models.Category{ID: id}); err != nil {
		return err
	}
	r.notify(ctx, events.New(events.CategoryDeleted, id, nil))
	return nil
}

func (r *Repository) CreateExpense(ctx context.Context, e *models.Expense) error {
	drained := r.drain(ctx)
	e.CategoryID = r.resolve(e.CategoryID)
	if drained {
		err := r.remote.CreateExpense(ctx, e)
		if err == nil {
			r.mirror("CreateExpense", r.cache.PutExpense(ctx, e))
			r.notify(ctx, events.New(events.ExpenseChanged, e.ID, e, e.UserID))
			return nil
		}
		if !isOffline(ctx, err) {
			return err
		}
	}

	e.ID = storage.NewLocalID()
	if err := r.cache.CreateExpense(ctx, e); err != nil {
		return err
	}
	if err := r.enqueue(ctx, storage.KindExpense, storage.OpCreate, e.ID, e); err != nil {
		return err
	}
	r.notify(ctx, events.New(events.ExpenseChanged, e.ID, e, e.UserID))
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	id = r.resolve(id)
	if storage.IsLocalID(id) {
		return r.cache.GetExpense(ctx, id)
	}
	e, err := r.remote.GetExpense(ctx, id)
	if err == nil {
		r.mirror("GetExpense", r.cache.PutExpense(ctx, e))
		return e, nil
	}
	if !r.fallback(ctx, "GetExpense", err) {
		return nil, err
	}
	return r.cache.GetExpense(ctx, id)
}

// localExpenses returns cached expenses matching filter that exist only locally.
func (r *Repository) localExpenses(ctx context.Context, filter storage.ExpenseFilter) []*models.Expense {
	cached, err := r.cache.ListExpenses(ctx, filter)
	if err != nil {
		r.mirror("ListExpenses", err)
		return nil
	}
	var local []*models.Expense
	for _, e := range cached {
		if storage.IsLocalID(e.ID) {
			local = append(local, e)
		}
	}
	return local
}

func (r *Repository) ListExpenses(ctx context.Context, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	filter.CategoryID = r.resolve(filter.CategoryID)
	expenses, err := r.remote.ListExpenses(ctx, filter)
	if err != nil {
		if !r.fallback(ctx, "ListExpenses", err) {
			return nil, err
		}
		return r.cache.ListExpenses(ctx, filter)
	}
	for _, e := range expenses {
		r.mirror("ListExpenses", r.cache.PutExpense(ctx, e))
	}

	local := r.localExpenses(ctx, filter)
	if len(local) == 0 {
		return expenses, nil
	}
	merged := append(expenses, local...)
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.ID < b.ID
	})
	return merged, nil
}

func (r *Repository) SumExpenses(ctx context.Context, filter storage.ExpenseFilter) (decimal.Decimal, error) {
	filter.CategoryID = r.resolve(filter.CategoryID)
	total, err := r.remote.SumExpenses(ctx, filter)
	if err != nil {
		if !r.fallback(ctx, "SumExpenses", err) {
			return decimal.Zero, err
		}
		return r.cache.SumExpenses(ctx, filter)
	}
	for _, e := range r.localExpenses(ctx, filter) {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e *models.Expense) error {
	drained := r.drain(ctx)
	e.ID = r.resolve(e.ID)
	e.CategoryID = r.resolve(e.CategoryID)
	if drained && !storage.IsLocalID(e.ID) {
		err := r.remote.UpdateExpense(ctx, e)
		if err == nil {
			r.mirror("UpdateExpense", r.cache.PutExpense(ctx, e))
			r.notify(ctx, events.New(events.ExpenseChanged, e.ID, e, e.UserID))
			return nil
		}
		if !isOffline(ctx, err) {
			return err
		}
	}

	// An expense read from the remote store may never have reached the cache.
	if err := r.cache.PutExpense(ctx, e); err != nil {
		return err
	}
	if err := r.enqueue(ctx, storage.KindExpense, storage.OpUpdate, e.ID, e); err != nil {
		return err
	}
	r.notify(ctx, events.New(events.ExpenseChanged, e.ID, e, e.UserID))
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	drained := r.drain(ctx)
	id = r.resolve(id)
	if drained && !storage.IsLocalID(id) {
		err := r.remote.DeleteExpense(ctx, id)
		if err == nil {
			r.mirror("DeleteExpense", r.cache.DeleteExpense(ctx, id))
			r.notify(ctx, events.New(events.ExpenseDeleted, id, nil))
			return nil
		}
		if !isOffline(ctx, err) {
			return err
		}
	}

	// A remote record the cache never saw can still be deleted offline.
	if err := r.cache.DeleteExpense(ctx, id); err != nil && (storage.IsLocalID(id) || !errors.Is(err, storage.ErrNotFound)) {
		return err
	}
	if err := r.enqueue(ctx, storage.KindExpense, storage.OpDelete, id, &models.Expense{ID: id}); err != nil {
		return err
	}
	r.notify(ctx, events.New(events.ExpenseDeleted, id, nil))
	return nil
}

func (r *Repository) UpsertGoal(ctx context.Context, g *models.Goal) error {
	if r.drain(ctx) {
		err := r.remote.UpsertGoal(ctx, g)
		if err == nil {
			r.mirror("UpsertGoal", r.cache.PutGoal(ctx, g))
			r.notify(ctx, events.New(events.GoalChanged, g.ID, g, g.UserID))
			return nil
		}
		if !isOffline(ctx, err) {
			return err
		}
	}

	// The cache keeps the ID of an existing slot; a new slot gets a local ID.
	g.ID = storage.NewLocalID()
	g.CreatedAt = 0
	if err := r.cache.UpsertGoal(ctx, g); err != nil {
		return err
	}
	if err := r.enqueue(ctx, storage.KindGoal, storage.OpUpdate, goalTarget(g.UserID, g.Month), g); err != nil {
		return err
	}
	r.notify(ctx, events.New(events.GoalChanged, g.ID, g, g.UserID))
	return nil
}

func (r *Repository) GetGoal(ctx context.Context, userID, month string) (*models.Goal, error) {
	g, err := r.remote.GetGoal(ctx, userID, month)
	if err == nil {
		r.mirror("GetGoal", r.cache.PutGoal(ctx, g))
		return g, nil
	}
	if storage.IsDomainError(err) {
		// A goal set offline is only in the cache until Sync.
		if cached, cerr := r.cache.GetGoal(ctx, userID, month); cerr == nil && storage.IsLocalID(cached.ID) {
			return cached, nil
		}
		return nil, err
	}
	if !r.fallback(ctx, "GetGoal", err) {
		return nil, err
	}
	return r.cache.GetGoal(ctx, userID, month)
}

func (r *Repository) ListGoals(ctx context.Context, userID string) ([]*models.Goal, error) {
	goals, err := r.remote.ListGoals(ctx, userID)
	if err != nil {
		if !r.fallback(ctx, "ListGoals", err) {
			return nil, err
		}
		return r.cache.ListGoals(ctx, userID)
	}
	months := make(map[string]bool, len(goals))
	for _, g := range goals {
		months[g.Month] = true
		r.mirror("ListGoals", r.cache.PutGoal(ctx, g))
	}

	cached, err := r.cache.ListGoals(ctx, userID)
	if err != nil {
		r.mirror("ListGoals", err)
		return goals, nil
	}
	merged := goals
	for _, g := range cached {
		if storage.IsLocalID(g.ID) && !months[g.Month] {
			merged = append(merged, g)
		}
	}
	if len(merged) != len(goals) {
		sort.SliceStable(merged, func(i, j int) bool { return merged[i].Month > merged[j].Month })
	}
	return merged, nil
}

func (r *Repository) DeleteGoal(ctx context.Context, userID, month string) error {
	target := goalTarget(userID, month)
	if r.drain(ctx) {
		err := r.remote.DeleteGoal(ctx, userID, month)
		if err == nil {
			r.mirror("DeleteGoal", r.cache.DeleteGoal(ctx, userID, month))
			r.notify(ctx, events.New(events.GoalDeleted, target, nil, userID))
			return nil
		}
		if !isOffline(ctx, err) {
			return err
		}
	}

	if err := r.cache.DeleteGoal(ctx, userID, month); err != nil {
		return err
	}
	if err := r.enqueue(ctx, storage.KindGoal, storage.OpDelete, target, &models.Goal{UserID: userID, Month: month}); err != nil {
		return err
	}
	r.notify(ctx, events.New(events.GoalDeleted, target, nil, userID))
	return nil
}
