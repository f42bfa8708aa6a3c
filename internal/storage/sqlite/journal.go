package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/spendwise/internal/storage"
)

// AppendPendingOp queues a write for replay against the remote store.
func (s *SQLiteStore) AppendPendingOp(ctx context.Context, op *storage.PendingOp) error {
	if op == nil {
		return fmt.Errorf("append pending op: op is nil")
	}
	if op.Kind == "" || op.OperationType == "" {
		return fmt.Errorf("append pending op: kind and operation type are required")
	}

	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.State == "" {
		op.State = storage.OpStatePending
	}
	now := time.Now().Unix()
	op.CreatedAt = now
	op.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_ops (id, kind, operation_type, target_id, state, payload, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.Kind, op.OperationType, op.TargetID, op.State, op.Payload, op.Error, op.CreatedAt, op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("append pending op: %w", err)
	}
	return nil
}

// ListPendingOps returns queued ops in the order they were appended.
func (s *SQLiteStore) ListPendingOps(ctx context.Context) ([]storage.PendingOp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, operation_type, target_id, state, payload, error, created_at, updated_at
		 FROM pending_ops WHERE state = ? ORDER BY rowid`, storage.OpStatePending)
	if err != nil {
		return nil, fmt.Errorf("list pending ops: %w", err)
	}
	defer rows.Close()

	ops := []storage.PendingOp{}
	for rows.Next() {
		var op storage.PendingOp
		if err := rows.Scan(&op.ID, &op.Kind, &op.OperationType, &op.TargetID, &op.State,
			&op.Payload, &op.Error, &op.CreatedAt, &op.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list pending ops: scan row: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending ops: iterate: %w", err)
	}
	return ops, nil
}

func (s *SQLiteStore) setPendingOpState(ctx context.Context, id, state, reason string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE pending_ops SET state = ?, error = ?, updated_at = ? WHERE id = ?",
		state, reason, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("mark pending op %s: %w", state, err)
	}
	return checkAffected(result, "pending op", id)
}

// CompletePendingOp marks an op as replayed.
func (s *SQLiteStore) CompletePendingOp(ctx context.Context, id string) error {
	return s.setPendingOpState(ctx, id, storage.OpStateCompleted, "")
}

// FailPendingOp marks an op as permanently rejected by the remote store.
func (s *SQLiteStore) FailPendingOp(ctx context.Context, id, reason string) error {
	return s.setPendingOpState(ctx, id, storage.OpStateFailed, reason)
}

// CountPendingOps returns how many ops still wait for replay.
func (s *SQLiteStore) CountPendingOps(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pending_ops WHERE state = ?", storage.OpStatePending,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending ops: %w", err)
	}
	return n, nil
}

// RemapID re-keys a locally created entity to the ID the remote store assigned.
// Expenses filed under a remapped category follow it, and queued ops that
// target the old ID or carry it in their payload are rewritten.
func (s *SQLiteStore) RemapID(ctx context.Context, kind, oldID, newID string) error {
	if oldID == newID {
		return nil
	}

	var table string
	switch kind {
	case storage.KindCategory:
		table = "categories"
	case storage.KindExpense:
		table = "expenses"
	case storage.KindGoal:
		table = "goals"
	default:
		return fmt.Errorf("remap id: unknown kind %q", kind)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE "+table+" SET id = ? WHERE id = ?", newID, oldID)
		if err != nil {
			return fmt.Errorf("remap %s id: %w", kind, err)
		}
		if err := checkAffected(result, kind, oldID); err != nil {
			return err
		}

		if kind == storage.KindCategory {
			if _, err := tx.ExecContext(ctx,
				"UPDATE expenses SET category_id = ? WHERE category_id = ?", newID, oldID,
			); err != nil {
				return fmt.Errorf("remap expense category ids: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE pending_ops SET target_id = ? WHERE target_id = ? AND state = ?",
			newID, oldID, storage.OpStatePending,
		); err != nil {
			return fmt.Errorf("remap pending op targets: %w", err)
		}

		// Local IDs are UUID-based, so a plain substring replace cannot hit
		// anything but the ID itself.
		if storage.IsLocalID(oldID) {
			if _, err := tx.ExecContext(ctx,
				"UPDATE pending_ops SET payload = REPLACE(payload, ?, ?) WHERE state = ? AND INSTR(payload, ?) > 0",
				oldID, newID, storage.OpStatePending, oldID,
			); err != nil {
				return fmt.Errorf("remap pending op payloads: %w", err)
			}
		}
		return nil
	})
}
