// Package web serves the HTTP trigger API for ingest runs.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ToniPaltus/airflow-intro/internal/app"
	"github.com/ToniPaltus/airflow-intro/internal/config"
	"github.com/ToniPaltus/airflow-intro/internal/web/middleware"
)

// Server is the HTTP server exposing the runner.
type Server struct {
	runner *app.Runner
	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server for runner.
func NewServer(runner *app.Runner, cfg config.ServerConfig) *Server {
	s := &Server{
		runner: runner,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes(cfg.APIKeys)
	s.server = &http.Server{
		Addr:        cfg.Addr(),
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
		// Runs are synchronous, so no write timeout.
		WriteTimeout: 0,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes(apiKeys []string) {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiKeys))
		r.Post("/runs", s.handleTriggerRun)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
	})
}

// Start listens on the configured address until Shutdown. It returns
// http.ErrServerClosed after a shutdown, even one that happened first.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds baseline headers to every API response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// durationMS renders durations as integer milliseconds in responses.
func durationMS(d time.Duration) int64 {
	return d.Milliseconds()
}
