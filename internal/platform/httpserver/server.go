package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	votingsession "pitchday/contexts/live-contest/voting-session"
	_ "pitchday/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	// JWTSecret enables bearer token checks on admin commands. Empty falls
	// back to the X-User-Id header.
	JWTSecret     string
	Health        func(ctx context.Context) error
	EnableSwagger bool
}

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	http    *http.Server
	voting  votingsession.Module
	options Options
}

func New(
	voting votingsession.Module,
	logger *slog.Logger,
	addr string,
	options Options,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		voting:  voting,
		options: options,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks until the server stops. A graceful Shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	if s.options.EnableSwagger {
		s.mux.Handle("/swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/voting/v1/admin/commands", s.handleAdminCommand)
	s.mux.HandleFunc("GET /api/voting/v1/sessions/active/status", s.handleActiveStatus)
	s.mux.HandleFunc("GET /api/voting/v1/sessions/active/results", s.handleActiveResults)
	s.mux.HandleFunc("POST /api/voting/v1/sessions/active/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/voting/v1/sessions/{session_id}/status", s.handleSessionStatus)
	s.mux.HandleFunc("GET /api/voting/v1/sessions/{session_id}/results", s.handleSessionResults)
	s.mux.HandleFunc("POST /api/voting/v1/sessions/{session_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/voting/v1/sessions/{session_id}/presentations", s.handleListPresentations)
}

type healthResponse struct {
	Status       string `json:"status"`
	ActiveTimers int    `json:"active_timers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	running := 0
	if s.voting.Timers != nil {
		running = s.voting.Timers.Running()
	}
	if s.options.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.options.Health(ctx); err != nil {
			s.logger.Warn("health check failed",
				"event", "http_health_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"error", err.Error(),
			)
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", ActiveTimers: running})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", ActiveTimers: running})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
