package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/spendwise/internal/models"
)

// PutUser upserts a user copied from another store.
func (s *SQLiteStore) PutUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			phone = excluded.phone,
			photo_path = excluded.photo_path,
			password_hash = excluded.password_hash,
			updated_at = excluded.updated_at
	`, user.ID, user.Email, user.DisplayName, user.Phone, user.PhotoPath,
		user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// PutCategory upserts a category copied from another store.
func (s *SQLiteStore) PutCategory(ctx context.Context, category *models.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, category.ID, category.UserID, category.Name, category.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

// PutExpense upserts an expense copied from another store.
func (s *SQLiteStore) PutExpense(ctx context.Context, e *models.Expense) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			amount = excluded.amount,
			date = excluded.date,
			description = excluded.description,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			photo_path = excluded.photo_path
	`, e.ID, e.UserID, e.CategoryID, e.Amount.String(), e.Date, e.Description,
		e.StartTime, e.EndTime, e.PhotoPath, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert expense: %w", err)
	}
	return nil
}

// PutGoal upserts a goal copied from another store. The (user, month) slot
// is authoritative: a cached goal under a different ID is replaced.
func (s *SQLiteStore) PutGoal(ctx context.Context, g *models.Goal) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM goals WHERE user_id = ? AND month = ? AND id != ?", g.UserID, g.Month, g.ID,
		); err != nil {
			return fmt.Errorf("failed to clear stale goal: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				min_amount = excluded.min_amount,
				max_amount = excluded.max_amount,
				updated_at = excluded.updated_at
		`, g.ID, g.UserID, g.Month, g.MinAmount.String(), g.MaxAmount.String(), g.CreatedAt, g.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert goal: %w", err)
		}
		return nil
	})
}

// PutRace upserts a race and replaces its participant list.
func (s *SQLiteStore) PutRace(ctx context.Context, r *models.RaceChallenge) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO races (`+raceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				budget = excluded.budget,
				start_date = excluded.start_date,
				end_date = excluded.end_date,
				status = excluded.status,
				invite_code = excluded.invite_code
		`, r.ID, r.Name, r.CreatorID, r.Budget.String(), r.StartDate, r.EndDate,
			string(r.Status), r.InviteCode, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert race: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM race_participants WHERE race_id = ?", r.ID); err != nil {
			return fmt.Errorf("failed to clear participants: %w", err)
		}
		for i := range r.Participants {
			p := r.Participants[i]
			p.RaceID = r.ID
			if err := insertParticipant(ctx, tx, &p); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutCollabGoal upserts a collaborative goal and replaces its members and categories.
func (s *SQLiteStore) PutCollabGoal(ctx context.Context, g *models.CollaborativeGoal) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collab_goals (id, name, owner_id, invite_code, created_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				owner_id = excluded.owner_id,
				invite_code = excluded.invite_code
		`, g.ID, g.Name, g.OwnerID, g.InviteCode, g.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert collaborative goal: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM collab_members WHERE goal_id = ?", g.ID); err != nil {
			return fmt.Errorf("failed to clear members: %w", err)
		}
		for i, member := range g.Members {
			if err := insertMember(ctx, tx, g.ID, member, g.CreatedAt+int64(i)); err != nil {
				return err
			}
		}

		ids := make([]any, 0, len(g.Categories)+1)
		ids = append(ids, g.ID)
		for i, c := range g.Categories {
			ids = append(ids, c.ID)
			_, err := tx.ExecContext(ctx, `
				INSERT INTO goal_categories (id, goal_id, name, target_amount, current_amount, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					target_amount = excluded.target_amount,
					current_amount = excluded.current_amount,
					created_at = excluded.created_at
			`, c.ID, g.ID, c.Name, c.TargetAmount.String(), c.CurrentAmount.String(), g.CreatedAt+int64(i))
			if err != nil {
				return fmt.Errorf("failed to upsert goal category: %w", err)
			}
		}

		// Drop categories the source no longer has.
		query := "DELETE FROM goal_categories WHERE goal_id = ?"
		if len(g.Categories) > 0 {
			query += " AND id NOT IN (" + placeholders(len(g.Categories)) + ")"
		}
		if _, err := tx.ExecContext(ctx, query, ids...); err != nil {
			return fmt.Errorf("failed to prune goal categories: %w", err)
		}
		return nil
	})
}

// PutContribution upserts a contribution copied from another store. The
// category total is not touched; it arrives with PutCollabGoal.
func (s *SQLiteStore) PutContribution(ctx context.Context, c *models.GoalContribution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goal_contributions (id, goal_id, category_id, user_id, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, c.GoalID, c.CategoryID, c.UserID, c.Amount.String(), c.Note, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert contribution: %w", err)
	}
	return nil
}
