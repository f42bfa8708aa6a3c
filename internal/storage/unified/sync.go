package unified

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

// SyncReport summarizes one replay of the journal.
type SyncReport struct {
	// Applied ops reached the remote store.
	Applied int `json:"applied"`
	// Failed ops were rejected by the remote store and will not be retried.
	Failed int `json:"failed"`
	// Remaining ops are still queued because the remote store went away.
	Remaining int `json:"remaining"`
}

// Sync replays queued offline writes against the remote store, oldest first.
// An op the remote store rejects with a domain error is marked failed and the
// replay continues. Any other error stops the replay, leaves the rest of the
// journal queued and is returned wrapping storage.ErrUnavailable.
func (r *Repository) Sync(ctx context.Context) (SyncReport, error) {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	start := time.Now()
	ops, err := r.cache.ListPendingOps(ctx)
	if err != nil {
		r.recordSync("error")
		return SyncReport{}, err
	}

	var report SyncReport
	for i, op := range ops {
		err := r.replay(ctx, op)
		switch {
		case err == nil:
			if err := r.cache.CompletePendingOp(ctx, op.ID); err != nil {
				report.Remaining = len(ops) - i
				r.recordSync("error")
				return report, err
			}
			report.Applied++
			r.recordOp("applied")

		case storage.IsDomainError(err):
			r.logger.Warn("Remote store rejected queued write",
				"op_id", op.ID, "kind", op.Kind, "operation", op.OperationType,
				"target_id", op.TargetID, "error", err)
			if err := r.cache.FailPendingOp(ctx, op.ID, err.Error()); err != nil {
				report.Remaining = len(ops) - i
				r.recordSync("error")
				return report, err
			}
			report.Failed++
			r.recordOp("failed")

		default:
			report.Remaining = len(ops) - i
			r.recordSync("offline")
			_, _ = r.PendingOps(ctx)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			return report, fmt.Errorf("sync %s %s %s: %w: %w",
				op.OperationType, op.Kind, op.TargetID, storage.ErrUnavailable, err)
		}
	}

	r.recordSync("ok")
	_, _ = r.PendingOps(ctx)
	if len(ops) > 0 {
		r.logger.Info("Replayed offline writes",
			"applied", report.Applied, "failed", report.Failed, "duration", time.Since(start))
		r.notify(ctx, events.New(events.SyncCompleted, "", report))
	}
	return report, nil
}

func (r *Repository) recordSync(result string) {
	if r.metrics != nil {
		r.metrics.SyncRuns.WithLabelValues(result).Inc()
	}
}

func (r *Repository) recordOp(outcome string) {
	if r.metrics != nil {
		r.metrics.SyncedOps.WithLabelValues(outcome).Inc()
	}
}

// errBadOp marks a journal entry that cannot be replayed at all. It is a
// domain error so the op is failed instead of blocking the journal forever.
var errBadOp = fmt.Errorf("unreplayable op: %w", storage.ErrConflict)

func (r *Repository) replay(ctx context.Context, op storage.PendingOp) error {
	switch op.Kind {
	case storage.KindCategory:
		var c models.Category
		if err := json.Unmarshal([]byte(op.Payload), &c); err != nil {
			return fmt.Errorf("decode category payload: %w: %w", errBadOp, err)
		}
		return r.replayCategory(ctx, op, &c)
	case storage.KindExpense:
		var e models.Expense
		if err := json.Unmarshal([]byte(op.Payload), &e); err != nil {
			return fmt.Errorf("decode expense payload: %w: %w", errBadOp, err)
		}
		return r.replayExpense(ctx, op, &e)
	case storage.KindGoal:
		var g models.Goal
		if err := json.Unmarshal([]byte(op.Payload), &g); err != nil {
			return fmt.Errorf("decode goal payload: %w: %w", errBadOp, err)
		}
		return r.replayGoal(ctx, op, &g)
	}
	return fmt.Errorf("kind %q: %w", op.Kind, errBadOp)
}

// adopt re-keys a locally created record to the ID the remote store assigned.
// It reports false when the cache no longer holds the record because it was
// deleted offline before the create was replayed.
func (r *Repository) adopt(ctx context.Context, kind, localID, remoteID string) bool {
	if !storage.IsLocalID(localID) || localID == remoteID {
		return true
	}
	r.recordRemap(localID, remoteID)
	err := r.cache.RemapID(ctx, kind, localID, remoteID)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	r.mirror("RemapID", err)
	return true
}

// ignoreGone treats deleting an already deleted record as done.
func ignoreGone(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (r *Repository) replayCategory(ctx context.Context, op storage.PendingOp, c *models.Category) error {
	switch op.OperationType {
	case storage.OpCreate:
		localID := c.ID
		c.ID = ""
		if err := r.remote.CreateCategory(ctx, c); err != nil {
			return err
		}
		if r.adopt(ctx, storage.KindCategory, localID, c.ID) {
			r.mirror("SyncCategory", r.cache.PutCategory(ctx, c))
		}
		return nil
	case storage.OpUpdate:
		c.ID = r.resolve(c.ID)
		if err := r.remote.UpdateCategory(ctx, c); err != nil {
			return err
		}
		r.mirror("SyncCategory", r.cache.PutCategory(ctx, c))
		return nil
	case storage.OpDelete:
		id := r.resolve(op.TargetID)
		if err := ignoreGone(r.remote.DeleteCategory(ctx, id)); err != nil {
			return err
		}
		r.mirror("SyncCategory", r.cache.DeleteCategory(ctx, id))
		return nil
	}
	return fmt.Errorf("category operation %q: %w", op.OperationType, errBadOp)
}

func (r *Repository) replayExpense(ctx context.Context, op storage.PendingOp, e *models.Expense) error {
	e.CategoryID = r.resolve(e.CategoryID)
	switch op.OperationType {
	case storage.OpCreate:
		localID := e.ID
		e.ID = ""
		if err := r.remote.CreateExpense(ctx, e); err != nil {
			return err
		}
		if r.adopt(ctx, storage.KindExpense, localID, e.ID) {
			r.mirror("SyncExpense", r.cache.PutExpense(ctx, e))
		}
		return nil
	case storage.OpUpdate:
		e.ID = r.resolve(e.ID)
		if err := r.remote.UpdateExpense(ctx, e); err != nil {
			return err
		}
		r.mirror("SyncExpense", r.cache.PutExpense(ctx, e))
		return nil
	case storage.OpDelete:
		id := r.resolve(op.TargetID)
		if err := ignoreGone(r.remote.DeleteExpense(ctx, id)); err != nil {
			return err
		}
		r.mirror("SyncExpense", r.cache.DeleteExpense(ctx, id))
		return nil
	}
	return fmt.Errorf("expense operation %q: %w", op.OperationType, errBadOp)
}

func (r *Repository) replayGoal(ctx context.Context, op storage.PendingOp, g *models.Goal) error {
	switch op.OperationType {
	case storage.OpUpdate:
		localID := g.ID
		g.ID = ""
		g.CreatedAt = 0
		if err := r.remote.UpsertGoal(ctx, g); err != nil {
			return err
		}
		// PutGoal replaces whatever row holds the user's month, so the local
		// record is re-keyed without RemapID.
		if storage.IsLocalID(localID) && localID != g.ID {
			r.recordRemap(localID, g.ID)
		}
		r.mirror("SyncGoal", r.cache.PutGoal(ctx, g))
		return nil
	case storage.OpDelete:
		return ignoreGone(r.remote.DeleteGoal(ctx, g.UserID, g.Month))
	}
	return fmt.Errorf("goal operation %q: %w", op.OperationType, errBadOp)
}
