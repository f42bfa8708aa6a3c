package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

// CreateCollabGoal persists a collaborative goal with its members and categories.
func (s *SQLiteStore) CreateCollabGoal(ctx context.Context, goal *models.CollaborativeGoal) error {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	if goal.CreatedAt == 0 {
		goal.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO collab_goals (id, name, owner_id, invite_code, created_at) VALUES (?, ?, ?, ?, ?)",
			goal.ID, goal.Name, goal.OwnerID, goal.InviteCode, goal.CreatedAt,
		)
		if isUniqueConstraint(err) {
			return fmt.Errorf("collaborative goal %s: %w", goal.ID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to insert collaborative goal: %w", err)
		}

		for i, member := range goal.Members {
			// Members keep their list order through join time.
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
	_, err := q.ExecContext(ctx,
		"INSERT INTO collab_members (goal_id, user_id, joined_at) VALUES (?, ?, ?)",
		goalID, userID, joinedAt,
	)
	if isUniqueConstraint(err) {
		return fmt.Errorf("member %s in goal %s: %w", userID, goalID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func insertGoalCategory(ctx context.Context, q querier, c *models.GoalCategory, createdAt int64) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO goal_categories (id, goal_id, name, target_amount, current_amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.GoalID, c.Name, c.TargetAmount.String(), c.CurrentAmount.String(), createdAt,
	)
	if isUniqueConstraint(err) {
		return fmt.Errorf("goal category %s: %w", c.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert goal category: %w", err)
	}
	return nil
}

// loadCollabChildren fills members and categories of a goal.
func loadCollabChildren(ctx context.Context, q querier, goal *models.CollaborativeGoal) error {
	memberRows, err := q.QueryContext(ctx,
		"SELECT user_id FROM collab_members WHERE goal_id = ? ORDER BY joined_at, user_id", goal.ID)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}
	goal.Members = nil
	for memberRows.Next() {
		var userID string
		if err := memberRows.Scan(&userID); err != nil {
			memberRows.Close()
			return fmt.Errorf("failed to scan member: %w", err)
		}
		goal.Members = append(goal.Members, userID)
	}
	memberRows.Close()
	if err := memberRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate members: %w", err)
	}

	categoryRows, err := q.QueryContext(ctx,
		`SELECT id, goal_id, name, target_amount, current_amount FROM goal_categories
		 WHERE goal_id = ? ORDER BY created_at, name`, goal.ID)
	if err != nil {
		return fmt.Errorf("failed to get goal categories: %w", err)
	}
	defer categoryRows.Close()

	goal.Categories = nil
	for categoryRows.Next() {
		var c models.GoalCategory
		if err := categoryRows.Scan(&c.ID, &c.GoalID, &c.Name, &c.TargetAmount, &c.CurrentAmount); err != nil {
			return fmt.Errorf("failed to scan goal category: %w", err)
		}
		goal.Categories = append(goal.Categories, c)
	}
	if err := categoryRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate goal categories: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getCollabGoalWhere(ctx context.Context, where, arg string) (*models.CollaborativeGoal, error) {
	goal := &models.CollaborativeGoal{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, invite_code, created_at FROM collab_goals WHERE `+where+` = ?`, arg,
	).Scan(&goal.ID, &goal.Name, &goal.OwnerID, &goal.InviteCode, &goal.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collaborative goal %s: %w", arg, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collaborative goal: %w", err)
	}
	if err := loadCollabChildren(ctx, s.db, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// GetCollabGoal retrieves a collaborative goal with members and categories.
func (s *SQLiteStore) GetCollabGoal(ctx context.Context, id string) (*models.CollaborativeGoal, error) {
	return s.getCollabGoalWhere(ctx, "id", id)
}

// GetCollabGoalByInviteCode retrieves a collaborative goal by its invite code.
func (s *SQLiteStore) GetCollabGoalByInviteCode(ctx context.Context, code string) (*models.CollaborativeGoal, error) {
	return s.getCollabGoalWhere(ctx, "invite_code", code)
}

// ListCollabGoalsByUser returns the goals a user is a member of, newest first.
func (s *SQLiteStore) ListCollabGoalsByUser(ctx context.Context, userID string) ([]*models.CollaborativeGoal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.owner_id, g.invite_code, g.created_at
		 FROM collab_goals g JOIN collab_members m ON m.goal_id = g.id
		 WHERE m.user_id = ? ORDER BY g.created_at DESC, g.id`, userID)
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
		if err := loadCollabChildren(ctx, s.db, goal); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

// DeleteCollabGoal removes a goal; members, categories and contributions cascade.
func (s *SQLiteStore) DeleteCollabGoal(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM collab_goals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete collaborative goal: %w", err)
	}
	return checkAffected(result, "collaborative goal", id)
}

func (s *SQLiteStore) collabGoalExists(ctx context.Context, q querier, goalID string) error {
	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM collab_goals WHERE id = ?", goalID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("collaborative goal %s: %w", goalID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check collaborative goal existence: %w", err)
	}
	return nil
}

// AddCollabMember adds a user to a goal.
func (s *SQLiteStore) AddCollabMember(ctx context.Context, goalID, userID string) error {
	if err := s.collabGoalExists(ctx, s.db, goalID); err != nil {
		return err
	}
	return insertMember(ctx, s.db, goalID, userID, time.Now().Unix())
}

// RemoveCollabMember removes a user from a goal. Their contributions stay.
func (s *SQLiteStore) RemoveCollabMember(ctx context.Context, goalID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM collab_members WHERE goal_id = ? AND user_id = ?", goalID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return checkAffected(result, "member", goalID+"/"+userID)
}

// AddGoalCategory adds a sub-target to a goal.
func (s *SQLiteStore) AddGoalCategory(ctx context.Context, category *models.GoalCategory) error {
	if err := s.collabGoalExists(ctx, s.db, category.GoalID); err != nil {
		return err
	}
	return insertGoalCategory(ctx, s.db, category, time.Now().Unix())
}

// UpdateGoalCategory changes a category's name and target.
func (s *SQLiteStore) UpdateGoalCategory(ctx context.Context, category *models.GoalCategory) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE goal_categories SET name = ?, target_amount = ? WHERE id = ? AND goal_id = ?",
		category.Name, category.TargetAmount.String(), category.ID, category.GoalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal category: %w", err)
	}
	return checkAffected(result, "goal category", category.ID)
}

// RemoveGoalCategory deletes a category. It refuses once contributions exist.
func (s *SQLiteStore) RemoveGoalCategory(ctx context.Context, goalID, categoryID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var contributions int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM goal_contributions WHERE category_id = ?", categoryID,
		).Scan(&contributions); err != nil {
			return fmt.Errorf("failed to count contributions: %w", err)
		}
		if contributions > 0 {
			return fmt.Errorf("goal category %s has %d contributions: %w", categoryID, contributions, storage.ErrConflict)
		}

		result, err := tx.ExecContext(ctx,
			"DELETE FROM goal_categories WHERE id = ? AND goal_id = ?", categoryID, goalID)
		if err != nil {
			return fmt.Errorf("failed to delete goal category: %w", err)
		}
		return checkAffected(result, "goal category", categoryID)
	})
}

// AddContribution records a contribution and bumps the category's running total.
func (s *SQLiteStore) AddContribution(ctx context.Context, contribution *models.GoalContribution) error {
	if contribution.ID == "" {
		contribution.ID = uuid.New().String()
	}
	if contribution.CreatedAt == 0 {
		contribution.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current decimal.Decimal
		err := tx.QueryRowContext(ctx,
			"SELECT current_amount FROM goal_categories WHERE id = ? AND goal_id = ?",
			contribution.CategoryID, contribution.GoalID,
		).Scan(&current)
		if err == sql.ErrNoRows {
			return fmt.Errorf("goal category %s: %w", contribution.CategoryID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read goal category total: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE goal_categories SET current_amount = ? WHERE id = ?",
			current.Add(contribution.Amount).String(), contribution.CategoryID,
		); err != nil {
			return fmt.Errorf("failed to update goal category total: %w", err)
		}

		return insertContribution(ctx, tx, contribution)
	})
}

func insertContribution(ctx context.Context, q querier, c *models.GoalContribution) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO goal_contributions (id, goal_id, category_id, user_id, amount, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.GoalID, c.CategoryID, c.UserID, c.Amount.String(), c.Note, c.CreatedAt,
	)
	if isUniqueConstraint(err) {
		return fmt.Errorf("contribution %s: %w", c.ID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	return nil
}

// ListContributions returns a goal's contributions, newest first.
func (s *SQLiteStore) ListContributions(ctx context.Context, goalID string) ([]*models.GoalContribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, goal_id, category_id, user_id, amount, note, created_at
		 FROM goal_contributions WHERE goal_id = ? ORDER BY created_at DESC, id`, goalID)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return contributions, nil
}
