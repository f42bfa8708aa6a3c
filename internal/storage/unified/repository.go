// Package unified implements the dual-write repository: every operation goes
// to the remote store first and is mirrored into the local cache, reads fall
// back to the cache when the remote store cannot be reached, and personal
// writes made while offline are journaled for replay by Sync.
package unified

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/metrics"
	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

var _ storage.Store = (*Repository)(nil)

// Repository implements storage.Store over a remote store and a local cache.
type Repository struct {
	remote   storage.Store
	cache    storage.Cache
	notifier events.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	syncMu sync.Mutex

	// remapped records local IDs Sync has replaced, so callers still holding
	// a local ID keep reaching the record.
	remapMu  sync.RWMutex
	remapped map[string]string
}

// Option configures a Repository.
type Option func(*Repository)

// WithNotifier sets where change events are delivered.
func WithNotifier(n events.Notifier) Option {
	return func(r *Repository) { r.notifier = n }
}

// WithMetrics sets the collectors updated on fallbacks, offline writes and syncs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// New creates a repository writing through remote and mirroring into cache.
func New(remote storage.Store, cache storage.Cache, opts ...Option) *Repository {
	r := &Repository{
		remote:   remote,
		cache:    cache,
		notifier: events.Nop{},
		logger:   slog.Default(),
		remapped: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close closes both stores.
func (r *Repository) Close() error {
	return errors.Join(r.remote.Close(), r.cache.Close())
}

// PendingOps returns the number of journaled writes waiting for Sync.
func (r *Repository) PendingOps(ctx context.Context) (int, error) {
	n, err := r.cache.CountPendingOps(ctx)
	if err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.PendingOps.Set(float64(n))
	}
	return n, nil
}

// resolve maps a local ID Sync has already replaced to its remote ID.
func (r *Repository) resolve(id string) string {
	if !storage.IsLocalID(id) {
		return id
	}
	r.remapMu.RLock()
	defer r.remapMu.RUnlock()
	if remote, ok := r.remapped[id]; ok {
		return remote
	}
	return id
}

func (r *Repository) recordRemap(localID, remoteID string) {
	r.remapMu.Lock()
	r.remapped[localID] = remoteID
	r.remapMu.Unlock()
}

// drain replays the journal before a personal write so remote writes never
// overtake older queued ones. It reports whether the journal is empty.
func (r *Repository) drain(ctx context.Context) bool {
	n, err := r.cache.CountPendingOps(ctx)
	if err != nil {
		r.logger.Warn("Failed to count pending ops", "error", err)
		return true
	}
	if n == 0 {
		return true
	}
	report, err := r.Sync(ctx)
	return err == nil && report.Remaining == 0
}

// isOffline reports whether a remote error should be answered from the cache.
// Domain errors and cancelled requests are returned to the caller as-is.
func isOffline(ctx context.Context, err error) bool {
	if err == nil || storage.IsDomainError(err) {
		return false
	}
	return ctx.Err() == nil
}

func (r *Repository) fallback(ctx context.Context, op string, err error) bool {
	if !isOffline(ctx, err) {
		return false
	}
	r.logger.Warn("Remote read failed, serving from cache", "operation", op, "error", err)
	if r.metrics != nil {
		r.metrics.CacheFallbacks.WithLabelValues(op).Inc()
	}
	return true
}

// mirror logs a failed cache write. The remote result stands regardless.
func (r *Repository) mirror(op string, err error) {
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("Failed to mirror into cache", "operation", op, "error", err)
	}
}

func (r *Repository) notify(ctx context.Context, event events.Event) {
	if err := r.notifier.Notify(ctx, event); err != nil {
		r.logger.Warn("Failed to deliver event", "type", event.Type, "error", err)
	}
}

// unavailable wraps a remote failure of an operation that has no offline path.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
}

// enqueue journals an offline write. payload is stored as JSON.
func (r *Repository) enqueue(ctx context.Context, kind, opType, targetID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode pending %s %s: %w", opType, kind, err)
	}
	op := &storage.PendingOp{
		Kind:          kind,
		OperationType: opType,
		TargetID:      targetID,
		Payload:       string(body),
	}
	if err := r.cache.AppendPendingOp(ctx, op); err != nil {
		return err
	}

	r.logger.Info("Queued offline write", "kind", kind, "operation", opType, "target_id", targetID)
	if r.metrics != nil {
		r.metrics.OfflineWrites.WithLabelValues(kind, opType).Inc()
	}
	_, _ = r.PendingOps(ctx)
	return nil
}

// Users are remote-owned: writes need the remote store, reads fall back.

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.remote.CreateUser(ctx, user); err != nil {
		if isOffline(ctx, err) {
			return unavailable("create user", err)
		}
		return err
	}
	r.mirror("CreateUser", r.cache.PutUser(ctx, user))
	return nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.remote.UpdateUser(ctx, user); err != nil {
		if isOffline(ctx, err) {
			return unavailable("update user", err)
		}
		return err
	}
	r.mirror("UpdateUser", r.cache.PutUser(ctx, user))
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.remote.GetUserByEmail(ctx, email)
	if err == nil {
		r.mirror("GetUserByEmail", r.cache.PutUser(ctx, user))
		return user, nil
	}
	if !r.fallback(ctx, "GetUserByEmail", err) {
		return nil, err
	}
	return r.cache.GetUserByEmail(ctx, email)
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := r.remote.GetUserByID(ctx, id)
	if err == nil {
		r.mirror("GetUserByID", r.cache.PutUser(ctx, user))
		return user, nil
	}
	if !r.fallback(ctx, "GetUserByID", err) {
		return nil, err
	}
	return r.cache.GetUserByID(ctx, id)
}

func (r *Repository) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users, err := r.remote.GetUsersByIDs(ctx, ids)
	if err == nil {
		for _, user := range users {
			r.mirror("GetUsersByIDs", r.cache.PutUser(ctx, user))
		}
		return users, nil
	}
	if !r.fallback(ctx, "GetUsersByIDs", err) {
		return nil, err
	}
	return r.cache.GetUsersByIDs(ctx, ids)
}
