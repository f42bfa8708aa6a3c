package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/spendwise/internal/auth"
	"github.com/mmynk/spendwise/internal/config"
	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/metrics"
	"github.com/mmynk/spendwise/internal/server"
	"github.com/mmynk/spendwise/internal/service"
	"github.com/mmynk/spendwise/pkg/logging"
)

func newServeCommand(globals *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, globals.loadOptions(cmd))
		},
	}
	cmd.Flags().StringVar(&globals.addr, "addr", "", "listen address (default :8080)")
	return cmd
}

func serve(ctx context.Context, opts config.LoadOptions) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	logger, logCloser, err := newLogger(cfg, level)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	hub := events.NewHub()
	go hub.Run(ctx)

	notifiers := events.Multi{hub}
	if cfg.Events.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue)
		if err != nil {
			return err
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
		logger.Info("Publishing events to AMQP", "queue", cfg.Events.Queue)
	}

	m := metrics.New()
	st, err := openStores(ctx, cfg, notifiers, m, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	deps := server.Deps{
		Store:         st.store,
		Authenticator: auth.NewPasswordAuthenticator(st.store),
		JWT:           auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration.Std()),
		Notifier:      notifiers,
		Hub:           hub,
		Metrics:       m,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        logger,
	}
	if st.repo != nil {
		deps.Syncer = st.repo
		go runSyncLoop(ctx, st.repo, cfg.Sync.Interval.Std(), logger)
	}

	watcher := config.NewWatcher(cfg, opts, func(next config.Config) {
		parsed, err := logging.ParseLevel(next.Logging.Level)
		if err != nil {
			return
		}
		if parsed != level.Level() {
			level.Set(parsed)
			logger.Info("Log level changed", "level", parsed.String())
		}
	}, logger)
	go func() {
		if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Config watcher stopped", "error", err)
		}
	}()

	logger.Info("Starting spendwise", "address", cfg.Server.Addr, "offline", cfg.Offline(), "pid", os.Getpid())
	return server.Run(ctx, cfg.Server.Addr, server.NewHandler(deps), logger)
}

// runSyncLoop replays the offline journal every interval while ops are
// pending. An interval of zero disables it.
func runSyncLoop(ctx context.Context, syncer service.Syncer, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := syncer.PendingOps(ctx)
			if err != nil {
				logger.Warn("Failed to count pending ops", "error", err)
				continue
			}
			if pending == 0 {
				continue
			}
			report, err := syncer.Sync(ctx)
			if err != nil {
				logger.Debug("Background sync incomplete", "remaining", report.Remaining, "error", err)
				continue
			}
			logger.Debug("Background sync finished", "applied", report.Applied, "failed", report.Failed)
		}
	}
}
