package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

// CreateCategory persists a new category.
func (s *SQLiteStore) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	if category.CreatedAt == 0 {
		category.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (id, user_id, name, created_at) VALUES (?, ?, ?, ?)",
		category.ID, category.UserID, category.Name, category.CreatedAt,
	)
	if isUniqueConstraint(err) {
		return fmt.Errorf("category %q: %w", category.Name, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category by ID.
func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c := &models.Category{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, created_at FROM categories WHERE id = ?", id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// ListCategories returns a user's categories ordered by name.
func (s *SQLiteStore) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, created_at FROM categories WHERE user_id = ? ORDER BY name COLLATE NOCASE",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory renames a category.
func (s *SQLiteStore) UpdateCategory(ctx context.Context, category *models.Category) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = ? WHERE id = ?", category.Name, category.ID)
	if isUniqueConstraint(err) {
		return fmt.Errorf("category %q: %w", category.Name, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return checkAffected(result, "category", category.ID)
}

// DeleteCategory removes a category. It refuses while expenses still reference it.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var inUse int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM expenses WHERE category_id = ?", id,
		).Scan(&inUse); err != nil {
			return fmt.Errorf("failed to count category expenses: %w", err)
		}
		if inUse > 0 {
			return fmt.Errorf("category %s has %d expenses: %w", id, inUse, storage.ErrConflict)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return checkAffected(result, "category", id)
	})
}

const expenseColumns = `id, user_id, category_id, amount, date, description, start_time, end_time, photo_path, created_at`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	e := &models.Expense{}
	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount, &e.Date,
		&e.Description, &e.StartTime, &e.EndTime, &e.PhotoPath, &e.CreatedAt)
	return e, err
}

// CreateExpense persists a new expense.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.UserID, expense.CategoryID, expense.Amount.String(), expense.Date,
		expense.Description, expense.StartTime, expense.EndTime, expense.PhotoPath, expense.CreatedAt,
	)
	if isUniqueConstraint(err) {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	e, err := scanExpense(s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// expenseWhere builds the WHERE clause for a filter.
func expenseWhere(filter storage.ExpenseFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.CategoryID != "" {
		clauses = append(clauses, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.From != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListExpenses returns the expenses matching filter, newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	where, args := expenseWhere(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses`+where+` ORDER BY date DESC, created_at DESC, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

// SumExpenses adds up the amounts matching filter.
// Amounts are stored as text, so the sum happens in Go to stay exact.
func (s *SQLiteStore) SumExpenses(ctx context.Context, filter storage.ExpenseFilter) (decimal.Decimal, error) {
	where, args := expenseWhere(filter)
	rows, err := s.db.QueryContext(ctx, `SELECT amount FROM expenses`+where, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to iterate amounts: %w", err)
	}
	return total, nil
}

// UpdateExpense overwrites every mutable field of an expense.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET category_id = ?, amount = ?, date = ?, description = ?,
		 start_time = ?, end_time = ?, photo_path = ? WHERE id = ?`,
		expense.CategoryID, expense.Amount.String(), expense.Date, expense.Description,
		expense.StartTime, expense.EndTime, expense.PhotoPath, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return checkAffected(result, "expense", expense.ID)
}

// DeleteExpense removes an expense by ID.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return checkAffected(result, "expense", id)
}
