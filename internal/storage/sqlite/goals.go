package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

const goalColumns = `id, user_id, month, min_amount, max_amount, created_at, updated_at`

func scanGoal(row interface{ Scan(...any) error }) (*models.Goal, error) {
	g := &models.Goal{}
	err := row.Scan(&g.ID, &g.UserID, &g.Month, &g.MinAmount, &g.MaxAmount, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// UpsertGoal creates or replaces the goal for the user's month.
func (s *SQLiteStore) UpsertGoal(ctx context.Context, goal *models.Goal) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertGoal(ctx, tx, goal)
	})
}

func upsertGoal(ctx context.Context, q querier, goal *models.Goal) error {
	now := time.Now().Unix()

	existing, err := scanGoal(q.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND month = ?`, goal.UserID, goal.Month))
	switch {
	case err == sql.ErrNoRows:
		if goal.ID == "" {
			goal.ID = uuid.New().String()
		}
		if goal.CreatedAt == 0 {
			goal.CreatedAt = now
		}
		if goal.UpdatedAt == 0 {
			goal.UpdatedAt = now
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			goal.ID, goal.UserID, goal.Month, goal.MinAmount.String(), goal.MaxAmount.String(),
			goal.CreatedAt, goal.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert goal: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up goal: %w", err)
	}

	goal.ID = existing.ID
	goal.CreatedAt = existing.CreatedAt
	if goal.UpdatedAt == 0 {
		goal.UpdatedAt = now
	}
	_, err = q.ExecContext(ctx,
		`UPDATE goals SET min_amount = ?, max_amount = ?, updated_at = ? WHERE id = ?`,
		goal.MinAmount.String(), goal.MaxAmount.String(), goal.UpdatedAt, goal.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return nil
}

// GetGoal retrieves the goal for a user's month.
func (s *SQLiteStore) GetGoal(ctx context.Context, userID, month string) (*models.Goal, error) {
	g, err := scanGoal(s.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND month = ?`, userID, month))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("goal %s/%s: %w", userID, month, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return g, nil
}

// ListGoals returns a user's goals, most recent month first.
func (s *SQLiteStore) ListGoals(ctx context.Context, userID string) ([]*models.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY month DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}
	return goals, nil
}

// DeleteGoal removes the goal for a user's month.
func (s *SQLiteStore) DeleteGoal(ctx context.Context, userID, month string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM goals WHERE user_id = ? AND month = ?", userID, month)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return checkAffected(result, "goal", userID+"/"+month)
}
