package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

func (p *PostgresStore) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO categories (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.UserID, c.Name, c.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.Name, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c := &models.Category{}
	err := p.pool.QueryRow(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (p *PostgresStore) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE user_id = $1 ORDER BY lower(name)`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories for user %s: %w", userID, err)
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
	return categories, rows.Err()
}

func (p *PostgresStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	tag, err := p.pool.Exec(ctx, `UPDATE categories SET name = $1 WHERE id = $2`, c.Name, c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.Name, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return checkAffected(tag, "category", c.ID)
}

func (p *PostgresStore) DeleteCategory(ctx context.Context, id string) error {
	return p.withTx(ctx, func(tx pgx.Tx) error {
		var inUse int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM expenses WHERE category_id = $1`, id,
		).Scan(&inUse); err != nil {
			return fmt.Errorf("failed to count category expenses: %w", err)
		}
		if inUse > 0 {
			return fmt.Errorf("category %s has %d expenses: %w", id, inUse, storage.ErrConflict)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return checkAffected(tag, "category", id)
	})
}

const expenseColumns = `id, user_id, category_id, amount, date, description, start_time, end_time, photo_path, created_at`

func scanExpense(row pgx.Row) (*models.Expense, error) {
	e := &models.Expense{}
	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount, &e.Date,
		&e.Description, &e.StartTime, &e.EndTime, &e.PhotoPath, &e.CreatedAt)
	return e, err
}

func (p *PostgresStore) CreateExpense(ctx context.Context, e *models.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.UserID, e.CategoryID, e.Amount, e.Date, e.Description,
		e.StartTime, e.EndTime, e.PhotoPath, e.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("expense %s: %w", e.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	e, err := scanExpense(p.pool.QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

func expenseWhere(filter storage.ExpenseFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, clause+" $"+strconv.Itoa(len(args)))
	}
	if filter.UserID != "" {
		add("user_id =", filter.UserID)
	}
	if filter.CategoryID != "" {
		add("category_id =", filter.CategoryID)
	}
	if filter.From != "" {
		add("date >=", filter.From)
	}
	if filter.To != "" {
		add("date <=", filter.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (p *PostgresStore) ListExpenses(ctx context.Context, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	where, args := expenseWhere(filter)
	rows, err := p.pool.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses`+where+` ORDER BY date DESC, created_at DESC, id`, args...)
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
	return expenses, rows.Err()
}

func (p *PostgresStore) SumExpenses(ctx context.Context, filter storage.ExpenseFilter) (decimal.Decimal, error) {
	where, args := expenseWhere(filter)
	var total decimal.Decimal
	err := p.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses`+where, args...).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to calculate expenses: %w", err)
	}
	return total, nil
}

func (p *PostgresStore) UpdateExpense(ctx context.Context, e *models.Expense) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE expenses SET category_id = $1, amount = $2, date = $3, description = $4,
		 start_time = $5, end_time = $6, photo_path = $7 WHERE id = $8`,
		e.CategoryID, e.Amount, e.Date, e.Description, e.StartTime, e.EndTime, e.PhotoPath, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return checkAffected(tag, "expense", e.ID)
}

func (p *PostgresStore) DeleteExpense(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return checkAffected(tag, "expense", id)
}
