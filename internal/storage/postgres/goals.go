package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

const goalColumns = `id, user_id, month, min_amount, max_amount, created_at, updated_at`

func scanGoal(row pgx.Row) (*models.Goal, error) {
	g := &models.Goal{}
	err := row.Scan(&g.ID, &g.UserID, &g.Month, &g.MinAmount, &g.MaxAmount, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// UpsertGoal relies on the (user_id, month) unique key; the existing row
// keeps its ID and creation time, which RETURNING hands back.
func (p *PostgresStore) UpsertGoal(ctx context.Context, goal *models.Goal) error {
	now := time.Now().Unix()
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	if goal.CreatedAt == 0 {
		goal.CreatedAt = now
	}
	if goal.UpdatedAt == 0 {
		goal.UpdatedAt = now
	}

	err := p.pool.QueryRow(ctx, `
		INSERT INTO goals (`+goalColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, month) DO UPDATE SET
			min_amount = EXCLUDED.min_amount,
			max_amount = EXCLUDED.max_amount,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`, goal.ID, goal.UserID, goal.Month, goal.MinAmount, goal.MaxAmount, goal.CreatedAt, goal.UpdatedAt,
	).Scan(&goal.ID, &goal.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert goal: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetGoal(ctx context.Context, userID, month string) (*models.Goal, error) {
	g, err := scanGoal(p.pool.QueryRow(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = $1 AND month = $2`, userID, month))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("goal %s/%s: %w", userID, month, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return g, nil
}

func (p *PostgresStore) ListGoals(ctx context.Context, userID string) ([]*models.Goal, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = $1 ORDER BY month DESC`, userID)
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
	return goals, rows.Err()
}

func (p *PostgresStore) DeleteGoal(ctx context.Context, userID, month string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM goals WHERE user_id = $1 AND month = $2`, userID, month)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return checkAffected(tag, "goal", userID+"/"+month)
}
