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

func (p *PostgresStore) CreateCollabGoal(ctx context.Context, goal *models.CollaborativeGoal) error {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	if goal.CreatedAt == 0 {
		goal.CreatedAt = time.Now().Unix()
	}

	return p.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO collab_goals (id, name, owner_id, invite_code, created_at) VALUES ($1, $2, $3, $4, $5)`,
			goal.ID, goal.Name, goal.OwnerID, goal.InviteCode, goal.CreatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("collaborative goal %s: %w", goal.ID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to create collaborative goal: %w", err)
		}

		for i, member := range goal.Members {
			if err := insertMember(ctx, tx, goal.ID, member, goal.CreatedAt+int64(i)); err != nil {
				return err
			}
		}
		for i := range goal.Categories {
			c := &goal.Categories[i]
			c.GoalID = goal.ID
			if err := insertGoalCategory(ctx, tx, c, goal.CreatedAt+int64(i)); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertMember(ctx context.Context, q querier, goalID, userID string, joinedAt int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO collab_members (goal_id, user_id, joined_at) VALUES ($1, $2, $3)`,
		goalID, userID, joinedAt)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("member %s in goal %s: %w", userID, goalID, storage.ErrAlreadyExists)
	case isForeignKeyViolation(err):
		return fmt.Errorf("collaborative goal %s: %w", goalID, storage.ErrNotFound)
	case err != nil:
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func insertGoalCategory(ctx context.Context, q querier, c *models.GoalCategory, createdAt int64) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO goal_categories (id, goal_id, name, target_amount, current_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.GoalID, c.Name, c.TargetAmount, c.CurrentAmount, createdAt)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("goal category %s: %w", c.ID, storage.ErrAlreadyExists)
	case isForeignKeyViolation(err):
		return fmt.Errorf("collaborative goal %s: %w", c.GoalID, storage.ErrNotFound)
	case err != nil:
		return fmt.Errorf("failed to add goal category: %w", err)
	}
	return nil
}

func loadCollabChildren(ctx context.Context, q querier, goal *models.CollaborativeGoal) error {
	memberRows, err := q.Query(ctx,
		`SELECT user_id FROM collab_members WHERE goal_id = $1 ORDER BY joined_at, user_id`, goal.ID)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}
	members, err := pgx.CollectRows(memberRows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("failed to scan members: %w", err)
	}
	goal.Members = members

	rows, err := q.Query(ctx,
		`SELECT id, goal_id, name, target_amount, current_amount FROM goal_categories
		 WHERE goal_id = $1 ORDER BY created_at, name`, goal.ID)
	if err != nil {
		return fmt.Errorf("failed to get goal categories: %w", err)
	}
	defer rows.Close()

	goal.Categories = nil
	for rows.Next() {
		var c models.GoalCategory
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Name, &c.TargetAmount, &c.CurrentAmount); err != nil {
			return fmt.Errorf("failed to scan goal category: %w", err)
		}
		goal.Categories = append(goal.Categories, c)
	}
	return rows.Err()
}

func (p *PostgresStore) getCollabGoalWhere(ctx context.Context, column, value string) (*models.CollaborativeGoal, error) {
	goal := &models.CollaborativeGoal{}
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, invite_code, created_at FROM collab_goals WHERE `+column+` = $1`, value,
	).Scan(&goal.ID, &goal.Name, &goal.OwnerID, &goal.InviteCode, &goal.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("collaborative goal %s: %w", value, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collaborative goal: %w", err)
	}
	if err := loadCollabChildren(ctx, p.pool, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (p *PostgresStore) GetCollabGoal(ctx context.Context, id string) (*models.CollaborativeGoal, error) {
	return p.getCollabGoalWhere(ctx, "id", id)
}

func (p *PostgresStore) GetCollabGoalByInviteCode(ctx context.Context, code string) (*models.CollaborativeGoal, error) {
	return p.getCollabGoalWhere(ctx, "invite_code", code)
}

func (p *PostgresStore) ListCollabGoalsByUser(ctx context.Context, userID string) ([]*models.CollaborativeGoal, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT g.id, g.name, g.owner_id, g.invite_code, g.created_at
		 FROM collab_goals g JOIN collab_members m ON m.goal_id = g.id
		 WHERE m.user_id = $1 ORDER BY g.created_at DESC, g.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborative goals: %w", err)
	}

	var goals []*models.CollaborativeGoal
	for rows.Next() {
		goal := &models.CollaborativeGoal{}
		if err := rows.Scan(&goal.ID, &goal.Name, &goal.OwnerID, &goal.InviteCode, &goal.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan collaborative goal: %w", err)
		}
		goals = append(goals, goal)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collaborative goals: %w", err)
	}

	for _, goal := range goals {
		if err := loadCollabChildren(ctx, p.pool, goal); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

func (p *PostgresStore) DeleteCollabGoal(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM collab_goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete collaborative goal: %w", err)
	}
	return checkAffected(tag, "collaborative goal", id)
}

func (p *PostgresStore) AddCollabMember(ctx context.Context, goalID, userID string) error {
	return insertMember(ctx, p.pool, goalID, userID, time.Now().Unix())
}

func (p *PostgresStore) RemoveCollabMember(ctx context.Context, goalID, userID string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM collab_members WHERE goal_id = $1 AND user_id = $2`, goalID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return checkAffected(tag, "member", goalID+"/"+userID)
}

func (p *PostgresStore) AddGoalCategory(ctx context.Context, c *models.GoalCategory) error {
	return insertGoalCategory(ctx, p.pool, c, time.Now().Unix())
}

func (p *PostgresStore) UpdateGoalCategory(ctx context.Context, c *models.GoalCategory) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE goal_categories SET name = $1, target_amount = $2 WHERE id = $3 AND goal_id = $4`,
		c.Name, c.TargetAmount, c.ID, c.GoalID)
	if err != nil {
		return fmt.Errorf("failed to update goal category: %w", err)
	}
	return checkAffected(tag, "goal category", c.ID)
}

func (p *PostgresStore) RemoveGoalCategory(ctx context.Context, goalID, categoryID string) error {
	return p.withTx(ctx, func(tx pgx.Tx) error {
		var contributions int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM goal_contributions WHERE category_id = $1`, categoryID,
		).Scan(&contributions); err != nil {
			return fmt.Errorf("failed to count contributions: %w", err)
		}
		if contributions > 0 {
			return fmt.Errorf("goal category %s has %d contributions: %w", categoryID, contributions, storage.ErrConflict)
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM goal_categories WHERE id = $1 AND goal_id = $2`, categoryID, goalID)
		if err != nil {
			return fmt.Errorf("failed to delete goal category: %w", err)
		}
		return checkAffected(tag, "goal category", categoryID)
	})
}

// AddContribution increments the running total in SQL so concurrent
// contributors cannot lose each other's updates.
func (p *PostgresStore) AddContribution(ctx context.Context, c *models.GoalContribution) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}

	return p.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE goal_categories SET current_amount = current_amount + $1 WHERE id = $2 AND goal_id = $3`,
			c.Amount, c.CategoryID, c.GoalID)
		if err != nil {
			return fmt.Errorf("failed to update goal category total: %w", err)
		}
		if err := checkAffected(tag, "goal category", c.CategoryID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO goal_contributions (id, goal_id, category_id, user_id, amount, note, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.GoalID, c.CategoryID, c.UserID, c.Amount, c.Note, c.CreatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("contribution %s: %w", c.ID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to record contribution: %w", err)
		}
		return nil
	})
}

func (p *PostgresStore) ListContributions(ctx context.Context, goalID string) ([]*models.GoalContribution, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, goal_id, category_id, user_id, amount, note, created_at
		 FROM goal_contributions WHERE goal_id = $1 ORDER BY created_at DESC, id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*models.GoalContribution
	for rows.Next() {
		c := &models.GoalContribution{}
		if err := rows.Scan(&c.ID, &c.GoalID, &c.CategoryID, &c.UserID, &c.Amount, &c.Note, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}
