package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dermatics/derma-wizard/internal/config"
	"github.com/dermatics/derma-wizard/internal/models"
	"github.com/dermatics/derma-wizard/internal/session"
	"github.com/dermatics/derma-wizard/web"
)

// Server hosts the widget page and its WebSocket sessions.
type Server struct {
	cfg       *config.Config
	flow      session.FlowClient
	cart      session.CartClient
	instances *Registry
}

// Opts holds optional server construction parameters.
type Opts struct {
	// Registry overrides the instance registry, used by tests.
	Registry *Registry
}

// Option configures optional server parameters.
type Option func(*Opts)

// WithRegistry sets the widget instance registry.
func WithRegistry(r *Registry) Option {
	return func(o *Opts) { o.Registry = r }
}

// NewServer creates the host server. The flow and cart clients are shared by
// every widget connection; per-connection state lives in the controllers.
func NewServer(cfg *config.Config, flow session.FlowClient, cart session.CartClient, opts ...Option) *Server {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	if o.Registry == nil {
		o.Registry = NewRegistry()
	}
	return &Server{
		cfg:       cfg,
		flow:      flow,
		cart:      cart,
		instances: o.Registry,
	}
}

// Router builds the chi router with the full middleware stack and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", s.healthHandler)
	r.Get("/widget/ws", s.widgetSocketHandler)
	r.Handle("/*", web.Handler())

	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        ":" + s.cfg.Port,
		Handler:     s.Router(),
		ReadTimeout: 30 * time.Second,
		// WebSocket sessions are long-lived; no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports host liveness and the number of connected widgets.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"live_widgets": s.instances.Count(),
	}))
}
