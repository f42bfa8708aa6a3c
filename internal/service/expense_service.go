package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/calculator"
	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

var _ api.ExpenseServiceHandler = (*ExpenseService)(nil)

// ExpenseService implements the ExpenseService RPC interface.
type ExpenseService struct {
	deps
}

// NewExpenseService creates an ExpenseService over the given store.
func NewExpenseService(store storage.Store, notifier events.Notifier, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{deps: newDeps(store, notifier, logger)}
}

// ownedCategory loads a category and checks that userID owns it.
func (s *ExpenseService) ownedCategory(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	if categoryID == "" {
		return nil, invalid("category_id is required")
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, denied("category %s belongs to another user", categoryID)
	}
	return c, nil
}

func (s *ExpenseService) ownedExpense(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	if expenseID == "" {
		return nil, invalid("expense_id is required")
	}
	e, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, denied("expense %s belongs to another user", expenseID)
	}
	return e, nil
}

// CreateCategory adds a category for the caller. Names are unique per user,
// ignoring case.
func (s *ExpenseService) CreateCategory(ctx context.Context, req *connect.Request[api.CreateCategoryRequest]) (*connect.Response[api.CategoryResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	name, err := validateName("name", req.Msg.Name)
	if err != nil {
		return nil, toConnectError(s.logger, "CreateCategory", err)
	}

	c := &models.Category{UserID: userID, Name: name}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, toConnectError(s.logger, "CreateCategory", err)
	}

	s.logger.Info("Category created", "user_id", userID, "category_id", c.ID)
	return connect.NewResponse(&api.CategoryResponse{Category: toAPICategory(c)}), nil
}

// ListCategories returns the caller's categories ordered by name.
func (s *ExpenseService) ListCategories(ctx context.Context, req *connect.Request[api.ListCategoriesRequest]) (*connect.Response[api.ListCategoriesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListCategories", err)
	}

	resp := &api.ListCategoriesResponse{Categories: make([]api.Category, 0, len(categories))}
	for _, c := range categories {
		resp.Categories = append(resp.Categories, toAPICategory(c))
	}
	return connect.NewResponse(resp), nil
}

// RenameCategory changes the name of one of the caller's categories.
func (s *ExpenseService) RenameCategory(ctx context.Context, req *connect.Request[api.RenameCategoryRequest]) (*connect.Response[api.CategoryResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	name, err := validateName("name", req.Msg.Name)
	if err != nil {
		return nil, toConnectError(s.logger, "RenameCategory", err)
	}

	c, err := s.ownedCategory(ctx, userID, req.Msg.CategoryID)
	if err != nil {
		return nil, toConnectError(s.logger, "RenameCategory", err)
	}
	c.Name = name
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, toConnectError(s.logger, "RenameCategory", err)
	}

	s.logger.Info("Category renamed", "user_id", userID, "category_id", c.ID)
	return connect.NewResponse(&api.CategoryResponse{Category: toAPICategory(c)}), nil
}

// DeleteCategory removes a category. It is refused while expenses still
// reference the category.
func (s *ExpenseService) DeleteCategory(ctx context.Context, req *connect.Request[api.DeleteCategoryRequest]) (*connect.Response[api.DeleteCategoryResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.ownedCategory(ctx, userID, req.Msg.CategoryID)
	if err != nil {
		return nil, toConnectError(s.logger, "DeleteCategory", err)
	}
	if err := s.store.DeleteCategory(ctx, c.ID); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, precondition("category %q still has expenses", c.Name))
		}
		return nil, toConnectError(s.logger, "DeleteCategory", err)
	}

	s.logger.Info("Category deleted", "user_id", userID, "category_id", c.ID)
	return connect.NewResponse(&api.DeleteCategoryResponse{}), nil
}

// expenseFields are the editable fields shared by create and update.
type expenseFields struct {
	CategoryID  string
	Amount      decimal.Decimal
	Date        string
	Description string
	StartTime   string
	EndTime     string
	PhotoPath   string
}

func (f *expenseFields) validate() error {
	if err := validatePositive("amount", f.Amount); err != nil {
		return err
	}
	if err := validateDate("date", f.Date); err != nil {
		return err
	}
	f.Description = strings.TrimSpace(f.Description)
	f.PhotoPath = strings.TrimSpace(f.PhotoPath)
	start, err := normalizeClock("start_time", &f.StartTime)
	if err != nil {
		return err
	}
	end, err := normalizeClock("end_time", &f.EndTime)
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return invalid("end_time must not be before start_time")
	}
	return nil
}

// normalizeClock parses an optional HH:MM value and rewrites it zero-padded.
func normalizeClock(field string, value *string) (time.Time, error) {
	*value = strings.TrimSpace(*value)
	if *value == "" {
		return time.Time{}, nil
	}
	t, err := calculator.ParseClock(*value)
	if err != nil {
		return time.Time{}, invalid("%s: %v", field, err)
	}
	*value = t.Format(calculator.TimeLayout)
	return t, nil
}

func (f expenseFields) apply(e *models.Expense) {
	e.CategoryID = f.CategoryID
	e.Amount = f.Amount
	e.Date = f.Date
	e.Description = f.Description
	e.StartTime = f.StartTime
	e.EndTime = f.EndTime
	e.PhotoPath = f.PhotoPath
}

// monthSpend returns the user's total spend in month. Failures are logged
// and reported as ok=false so budget checks are skipped, not fatal.
func (s *ExpenseService) monthSpend(ctx context.Context, userID, month string) (decimal.Decimal, bool) {
	from, to, err := calculator.MonthBounds(month)
	if err != nil {
		return decimal.Zero, false
	}
	total, err := s.store.SumExpenses(ctx, storage.ExpenseFilter{UserID: userID, From: from, To: to})
	if err != nil {
		s.logger.Warn("Failed to sum month spend", "user_id", userID, "month", month, "error", err)
		return decimal.Zero, false
	}
	return total, true
}

// checkBudget evaluates the month's goal after a write and publishes
// budget.exceeded when spend went from at or under the maximum to over it.
func (s *ExpenseService) checkBudget(ctx context.Context, userID, month string, before decimal.Decimal, haveBefore bool) *api.GoalProgress {
	goal, err := s.store.GetGoal(ctx, userID, month)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Failed to load goal", "user_id", userID, "month", month, "error", err)
		}
		return nil
	}
	after, ok := s.monthSpend(ctx, userID, month)
	if !ok {
		return nil
	}

	progress := calculator.EvaluateGoal(*goal, after)
	out := toAPIGoalProgress(progress)
	if haveBefore && calculator.CrossedMax(*goal, before, after) {
		s.logger.Info("Budget exceeded", "user_id", userID, "month", month, "spent", after, "max", goal.MaxAmount)
		s.notify(ctx, events.New(events.BudgetExceeded, goal.ID, out, userID))
	}
	return &out
}

// CreateExpense records a spend in one of the caller's categories.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	fields := expenseFields{
		CategoryID:  req.Msg.CategoryID,
		Amount:      req.Msg.Amount,
		Date:        req.Msg.Date,
		Description: req.Msg.Description,
		StartTime:   req.Msg.StartTime,
		EndTime:     req.Msg.EndTime,
		PhotoPath:   req.Msg.PhotoPath,
	}
	if err := fields.validate(); err != nil {
		return nil, toConnectError(s.logger, "CreateExpense", err)
	}
	if _, err := s.ownedCategory(ctx, userID, fields.CategoryID); err != nil {
		return nil, toConnectError(s.logger, "CreateExpense", err)
	}

	month, _ := calculator.MonthOf(fields.Date)
	before, haveBefore := s.monthSpend(ctx, userID, month)

	e := &models.Expense{UserID: userID}
	fields.apply(e)
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, toConnectError(s.logger, "CreateExpense", err)
	}
	s.logger.Info("Expense created", "user_id", userID, "expense_id", e.ID, "amount", e.Amount, "date", e.Date)

	return connect.NewResponse(&api.ExpenseResponse{
		Expense: toAPIExpense(e),
		Goal:    s.checkBudget(ctx, userID, month, before, haveBefore),
	}), nil
}

// UpdateExpense replaces the fields of one of the caller's expenses.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	fields := expenseFields{
		CategoryID:  req.Msg.CategoryID,
		Amount:      req.Msg.Amount,
		Date:        req.Msg.Date,
		Description: req.Msg.Description,
		StartTime:   req.Msg.StartTime,
		EndTime:     req.Msg.EndTime,
		PhotoPath:   req.Msg.PhotoPath,
	}
	if err := fields.validate(); err != nil {
		return nil, toConnectError(s.logger, "UpdateExpense", err)
	}

	e, err := s.ownedExpense(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateExpense", err)
	}
	if fields.CategoryID != e.CategoryID {
		if _, err := s.ownedCategory(ctx, userID, fields.CategoryID); err != nil {
			return nil, toConnectError(s.logger, "UpdateExpense", err)
		}
	}

	month, _ := calculator.MonthOf(fields.Date)
	before, haveBefore := s.monthSpend(ctx, userID, month)

	fields.apply(e)
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return nil, toConnectError(s.logger, "UpdateExpense", err)
	}
	s.logger.Info("Expense updated", "user_id", userID, "expense_id", e.ID)

	return connect.NewResponse(&api.ExpenseResponse{
		Expense: toAPIExpense(e),
		Goal:    s.checkBudget(ctx, userID, month, before, haveBefore),
	}), nil
}

// DeleteExpense removes one of the caller's expenses.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	e, err := s.ownedExpense(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(s.logger, "DeleteExpense", err)
	}
	if err := s.store.DeleteExpense(ctx, e.ID); err != nil {
		return nil, toConnectError(s.logger, "DeleteExpense", err)
	}

	s.logger.Info("Expense deleted", "user_id", userID, "expense_id", e.ID)
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

func derefExpenses(expenses []*models.Expense) []models.Expense {
	out := make([]models.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = *e
	}
	return out
}

// ListExpenses returns the caller's expenses in an inclusive date range,
// newest first, optionally narrowed to one category.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRange(req.Msg.From, req.Msg.To); err != nil {
		return nil, toConnectError(s.logger, "ListExpenses", err)
	}
	if req.Msg.CategoryID != "" {
		if _, err := s.ownedCategory(ctx, userID, req.Msg.CategoryID); err != nil {
			return nil, toConnectError(s.logger, "ListExpenses", err)
		}
	}

	expenses, err := s.store.ListExpenses(ctx, storage.ExpenseFilter{
		UserID:     userID,
		CategoryID: req.Msg.CategoryID,
		From:       req.Msg.From,
		To:         req.Msg.To,
	})
	if err != nil {
		return nil, toConnectError(s.logger, "ListExpenses", err)
	}

	resp := &api.ListExpensesResponse{
		Expenses: make([]api.Expense, 0, len(expenses)),
		Total:    calculator.SumExpenses(derefExpenses(expenses)),
	}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, toAPIExpense(e))
	}
	return connect.NewResponse(resp), nil
}

// GetSpendingSummary groups the caller's spend in a range by category. The
// range is Month when set, else From/To, else the current month.
func (s *ExpenseService) GetSpendingSummary(ctx context.Context, req *connect.Request[api.GetSpendingSummaryRequest]) (*connect.Response[api.GetSpendingSummaryResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	from, to := req.Msg.From, req.Msg.To
	switch {
	case req.Msg.Month != "":
		if err := validateMonth(req.Msg.Month); err != nil {
			return nil, toConnectError(s.logger, "GetSpendingSummary", err)
		}
		from, to, _ = calculator.MonthBounds(req.Msg.Month)
	case from == "" && to == "":
		month, _ := calculator.MonthOf(s.today())
		from, to, _ = calculator.MonthBounds(month)
	default:
		if err := validateRange(from, to); err != nil {
			return nil, toConnectError(s.logger, "GetSpendingSummary", err)
		}
	}

	expenses, err := s.store.ListExpenses(ctx, storage.ExpenseFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return nil, toConnectError(s.logger, "GetSpendingSummary", err)
	}
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetSpendingSummary", err)
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	summary := calculator.SummarizeByCategory(derefExpenses(expenses), names)
	resp := &api.GetSpendingSummaryResponse{
		From:       from,
		To:         to,
		Total:      summary.Total,
		Count:      summary.Count,
		Categories: make([]api.CategoryTotal, 0, len(summary.Categories)),
	}
	for _, ct := range summary.Categories {
		resp.Categories = append(resp.Categories, api.CategoryTotal{
			CategoryID: ct.CategoryID,
			Name:       ct.Name,
			Total:      ct.Total,
			Count:      ct.Count,
			Percent:    ct.Percent,
		})
	}
	return connect.NewResponse(resp), nil
}
