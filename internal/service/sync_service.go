package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/storage/unified"
)

// Syncer replays journaled offline writes against the remote store.
// *unified.Repository satisfies it.
type Syncer interface {
	Sync(ctx context.Context) (unified.SyncReport, error)
	PendingOps(ctx context.Context) (int, error)
}

var _ api.SyncServiceHandler = (*SyncService)(nil)

// SyncService implements the SyncService RPC interface.
type SyncService struct {
	syncer Syncer
	logger *slog.Logger
}

// NewSyncService creates a SyncService. A nil syncer means the server runs
// without a remote store and there is nothing to sync.
func NewSyncService(syncer Syncer, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{syncer: syncer, logger: logger}
}

// Sync drains the offline journal now.
func (s *SyncService) Sync(ctx context.Context, req *connect.Request[api.SyncRequest]) (*connect.Response[api.SyncResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if s.syncer == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("sync is not enabled"))
	}

	s.logger.Info("Manual sync requested", "user_id", userID)
	report, err := s.syncer.Sync(ctx)
	if err != nil {
		return nil, toConnectError(s.logger, "Sync", err)
	}
	return connect.NewResponse(&api.SyncResponse{
		Applied:   report.Applied,
		Failed:    report.Failed,
		Remaining: report.Remaining,
	}), nil
}

// Status reports whether sync is enabled and how many writes are waiting.
func (s *SyncService) Status(ctx context.Context, req *connect.Request[api.SyncStatusRequest]) (*connect.Response[api.SyncStatusResponse], error) {
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}
	if s.syncer == nil {
		return connect.NewResponse(&api.SyncStatusResponse{}), nil
	}

	pending, err := s.syncer.PendingOps(ctx)
	if err != nil {
		return nil, toConnectError(s.logger, "Status", err)
	}
	return connect.NewResponse(&api.SyncStatusResponse{Enabled: true, Pending: pending}), nil
}
