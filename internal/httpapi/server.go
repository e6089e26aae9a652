// Package httpapi wires the Session Controller, project registry, push
// channel and metrics exposition behind a small hand-rolled net/http mux,
// adapted from the teacher's internal/http/router.go (the route count here
// is too small to justify an external router).
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"qualitygate/internal/analysis/session"
	"qualitygate/internal/config"
	"qualitygate/internal/logging"
	"qualitygate/internal/metrics"
	"qualitygate/internal/middleware"
	"qualitygate/internal/registry"
	"qualitygate/internal/websocket"
)

// Server owns the HTTP listener and every ambient collaborator a request
// handler needs: the Session Controller, the project registry, the push
// channel handler and (optionally) Prometheus instrumentation.
type Server struct {
	cfg        *config.Config
	controller *session.Controller
	projects   *registry.Registry
	ws         *websocket.Handler
	metrics    *metrics.Metrics // optional; nil disables /metrics
	log        logging.Logger

	mux        *http.ServeMux
	httpServer *http.Server
	chain      *middleware.Chain

	mu         sync.RWMutex
	isShutdown bool
}

// Deps bundles Server's collaborators so New's signature stays readable as
// the route surface grows.
type Deps struct {
	Config     *config.Config
	Controller *session.Controller
	Projects   *registry.Registry
	WS         *websocket.Handler
	Metrics    *metrics.Metrics
	Log        logging.Logger
}

// New builds a Server and registers all routes. It does not start
// listening; call Start for that.
func New(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = logging.NewTestLogger()
	}
	s := &Server{
		cfg:        deps.Config,
		controller: deps.Controller,
		projects:   deps.Projects,
		ws:         deps.WS,
		metrics:    deps.Metrics,
		log:        deps.Log,
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()

	s.chain = middleware.New(middleware.Dependencies{
		Log:            deps.Log,
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
	})
	addr := fmt.Sprintf("%s:%d", deps.Config.Server.Host, deps.Config.Server.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.chain.Apply(s.mux),
	}
	return s
}

// SetAllowedOrigins updates the CORS allowlist used by the HTTP middleware
// chain. The push channel's own allowlist (wired in from the same config
// section at construction time) is updated separately by the caller, since
// the Server is not the one that owns that validator instance.
func (s *Server) SetAllowedOrigins(origins []string) {
	s.chain.SetAllowedOrigins(origins)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/tools", s.handleListTools)
	s.mux.HandleFunc("POST /api/run-analysis", s.handleRunAnalysis)
	s.mux.HandleFunc("POST /api/stop-analysis", s.handleStop)
	s.mux.HandleFunc("POST /api/stop-watch", s.handleStop)
	s.mux.HandleFunc("GET /api/browse", s.handleBrowse)
	s.mux.HandleFunc("GET /api/ws/{project_id}", s.handleWebSocket)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Start listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("httpapi: listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully drains in-flight requests. Idempotent.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isShutdown {
		return nil
	}
	s.isShutdown = true
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server is configured to bind to.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
