package service

import (
	"context"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/storage"
	"github.com/mmynk/spendwise/internal/storage/unified"
)

type fakeSyncer struct {
	report  unified.SyncReport
	err     error
	pending int
	calls   int
}

func (f *fakeSyncer) Sync(context.Context) (unified.SyncReport, error) {
	f.calls++
	return f.report, f.err
}

func (f *fakeSyncer) PendingOps(context.Context) (int, error) {
	return f.pending, nil
}

func TestSyncService(t *testing.T) {
	syncer := &fakeSyncer{report: unified.SyncReport{Applied: 3, Failed: 1}, pending: 4}
	srv := setupTestServer(t, syncer)
	ctx := context.Background()
	alice := srv.register(t, "alice@example.com", "Alice")

	status, err := srv.sync.Status(ctx, as(alice, &api.SyncStatusRequest{}))
	require.NoError(t, err)
	assert.True(t, status.Msg.Enabled)
	assert.Equal(t, 4, status.Msg.Pending)

	resp, err := srv.sync.Sync(ctx, as(alice, &api.SyncRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Msg.Applied)
	assert.Equal(t, 1, resp.Msg.Failed)
	assert.Equal(t, 1, syncer.calls)

	syncer.err = fmt.Errorf("sync create expense: %w", storage.ErrUnavailable)
	_, err = srv.sync.Sync(ctx, as(alice, &api.SyncRequest{}))
	assertCode(t, connect.CodeUnavailable, err)

	_, err = srv.sync.Sync(ctx, connect.NewRequest(&api.SyncRequest{}))
	assertCode(t, connect.CodeUnauthenticated, err)
}
