package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/spendwise/internal/storage/unified"
)

var testBuild = BuildInfo{Version: "1.2.3", Commit: "abc123", BuildTime: "2026-01-01T00:00:00Z"}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(&out, testBuild)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "version=1.2.3 commit=abc123 build_time=2026-01-01T00:00:00Z\n", out)

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var got BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, testBuild, got)
}

func TestMigrateCreatesCache(t *testing.T) {
	t.Setenv("SPENDWISE_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("SPENDWISE_DATABASE_REMOTE_URL", "")
	t.Setenv("SPENDWISE_LOG_LEVEL", "error")
	path := filepath.Join(t.TempDir(), "cache.db")

	out, err := execute(t, "--cache-path", path, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "cache schema ready: "+path)
	assert.NotContains(t, out, "remote")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSyncNeedsRemote(t *testing.T) {
	t.Setenv("SPENDWISE_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("SPENDWISE_DATABASE_REMOTE_URL", "")

	_, err := execute(t, "--cache-path", filepath.Join(t.TempDir(), "cache.db"), "sync")
	assert.ErrorIs(t, err, errNoRemote)
}

func TestInvalidConfigIsReported(t *testing.T) {
	t.Setenv("SPENDWISE_AUTH_JWT_SECRET", "")

	_, err := execute(t, "--cache-path", filepath.Join(t.TempDir(), "cache.db"), "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

type countingSyncer struct {
	pending atomic.Int32
	syncs   atomic.Int32
	err     error
}

func (c *countingSyncer) Sync(context.Context) (unified.SyncReport, error) {
	c.syncs.Add(1)
	applied := int(c.pending.Swap(0))
	return unified.SyncReport{Applied: applied}, c.err
}

func (c *countingSyncer) PendingOps(context.Context) (int, error) {
	return int(c.pending.Load()), nil
}

func TestSyncLoopReplaysOnlyWhenPending(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := &countingSyncer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runSyncLoop(ctx, syncer, 10*time.Millisecond, logger)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, syncer.syncs.Load(), "nothing pending, nothing synced")

	syncer.pending.Store(3)
	assert.Eventually(t, func() bool { return syncer.pending.Load() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, syncer.syncs.Load(), int32(1))

	cancel()
	<-done
}

func TestSyncLoopDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := &countingSyncer{err: errors.New("unreachable")}
	syncer.pending.Store(1)

	done := make(chan struct{})
	go func() {
		runSyncLoop(context.Background(), syncer, 0, logger)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero interval should return immediately")
	}
	assert.Zero(t, syncer.syncs.Load())
}
