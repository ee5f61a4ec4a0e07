// Package http provides the API server and its routes.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stagepass/api/internal/config"
	"github.com/stagepass/api/internal/infra/http/handler"
	"github.com/stagepass/api/internal/infra/http/middleware"
	"github.com/stagepass/api/pkg/jwt"
	"github.com/stagepass/api/pkg/logger"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Memberships *handler.MembershipHandler
	Health      *handler.HealthHandler
	Tokens      *jwt.Manager
}

// Server is the HTTP API server.
type Server struct {
	httpServer   *http.Server
	config       *config.Config
	logger       *logger.Logger
	cleanupFuncs []func()
}

// NewServer creates the HTTP server with all routes and middleware
// wired.
func NewServer(cfg *config.Config, deps Deps, log *logger.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: log,
	}

	rateLimitMw, rateLimitStop := middleware.RateLimit(&cfg.RateLimit, log)
	s.cleanupFuncs = append(s.cleanupFuncs, rateLimitStop)

	r := chi.NewRouter()
	r.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		rateLimitMw,
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.Metrics(),
		middleware.Logging(log),
	)

	r.Get("/healthz", deps.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens))

		r.Route("/memberships", func(r chi.Router) {
			r.Get("/", deps.Memberships.List)
			r.Post("/", deps.Memberships.Create)
			r.Get("/{id}", deps.Memberships.Get)
			r.Patch("/{id}", deps.Memberships.Update)
			r.Delete("/{id}", deps.Memberships.Delete)
		})

		r.Post("/invitations/{token}/accept", deps.Memberships.ClaimInvitation)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping http server")
	for _, cleanup := range s.cleanupFuncs {
		cleanup()
	}
	return s.httpServer.Shutdown(ctx)
}
