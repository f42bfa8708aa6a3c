// Package server assembles the HTTP surface: Connect services, the SSE event
// stream, Prometheus metrics and a health check behind a chi router.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/auth"
	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/metrics"
	"github.com/mmynk/spendwise/internal/middleware"
	"github.com/mmynk/spendwise/internal/service"
	"github.com/mmynk/spendwise/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Deps is everything the handler is built from.
type Deps struct {
	Store         storage.Store
	Authenticator auth.Authenticator
	JWT           *auth.JWTManager
	Notifier      events.Notifier
	Hub           *events.Hub
	Metrics       *metrics.Metrics
	// Syncer is nil when there is no remote store.
	Syncer      service.Syncer
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewHandler returns the root handler.
func NewHandler(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	var chain []connect.Interceptor
	if d.Metrics != nil {
		chain = append(chain, middleware.MetricsInterceptor(d.Metrics))
	}
	chain = append(chain,
		middleware.RequireAuth(d.JWT, service.PublicProcedures...),
		middleware.LoggingInterceptor(logger),
	)
	interceptors := connect.WithInterceptors(chain...)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms"},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
		MaxAge:         300,
	}))

	mount := func(path string, h http.Handler) {
		r.Mount(path, h)
	}
	mount(api.NewAuthServiceHandler(service.NewAuthService(d.Authenticator, d.JWT, d.Store, logger), interceptors))
	mount(api.NewExpenseServiceHandler(service.NewExpenseService(d.Store, d.Notifier, logger), interceptors))
	mount(api.NewGoalServiceHandler(service.NewGoalService(d.Store, d.Notifier, logger), interceptors))
	mount(api.NewRaceServiceHandler(service.NewRaceService(d.Store, d.Notifier, logger), interceptors))
	mount(api.NewCollabServiceHandler(service.NewCollabService(d.Store, d.Notifier, logger), interceptors))
	mount(api.NewSyncServiceHandler(service.NewSyncService(d.Syncer, logger), interceptors))

	if d.Hub != nil {
		r.Method(http.MethodGet, "/events", d.Hub.Handler(middleware.HTTPIdentifier(d.JWT)))
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// Run serves handler on addr over HTTP/1.1 and cleartext HTTP/2 until ctx is
// cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
