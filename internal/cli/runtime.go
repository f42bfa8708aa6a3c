package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mmynk/spendwise/internal/config"
	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/metrics"
	"github.com/mmynk/spendwise/internal/storage"
	"github.com/mmynk/spendwise/internal/storage/postgres"
	"github.com/mmynk/spendwise/internal/storage/sqlite"
	"github.com/mmynk/spendwise/internal/storage/unified"
	"github.com/mmynk/spendwise/pkg/logging"
)

var errNoRemote = errors.New("no remote store configured (set database.remote_url)")

// newLogger builds the process logger from cfg. level is shared so a config
// reload can change it in place.
func newLogger(cfg config.Config, level *slog.LevelVar) (*slog.Logger, io.Closer, error) {
	parsed, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	level.Set(parsed)
	return logging.New(logging.Options{
		Level:     level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
}

// stores is the storage the server runs on. repo is nil in standalone mode,
// where the SQLite cache is the only store.
type stores struct {
	store storage.Store
	repo  *unified.Repository
}

func (s *stores) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return s.store.Close()
}

// openStores opens the SQLite cache and, when cfg names one, the PostgreSQL
// remote. Both apply their schema on open. The remote must be reachable.
func openStores(ctx context.Context, cfg config.Config, notifier events.Notifier, m *metrics.Metrics, logger *slog.Logger) (*stores, error) {
	cache, err := sqlite.New(cfg.Database.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open cache %q: %w", cfg.Database.CachePath, err)
	}
	if cfg.Offline() {
		logger.Info("Running standalone on SQLite", "path", cfg.Database.CachePath)
		return &stores{store: cache}, nil
	}

	remote, err := postgres.New(ctx, cfg.Database.RemoteURL)
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("open remote store: %w", err)
	}
	logger.Info("Connected to remote store", "cache", cfg.Database.CachePath)

	repo := unified.New(remote, cache,
		unified.WithNotifier(notifier),
		unified.WithMetrics(m),
		unified.WithLogger(logger),
	)
	return &stores{store: repo, repo: repo}, nil
}
