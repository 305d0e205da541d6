// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/jedsmith2004/folio/internal/cloud"
	"github.com/jedsmith2004/folio/internal/config"
	"github.com/jedsmith2004/folio/internal/history"
	"github.com/jedsmith2004/folio/internal/profile"
	"github.com/jedsmith2004/folio/internal/router"
	"github.com/jedsmith2004/folio/internal/storage"
	"github.com/jedsmith2004/folio/internal/telemetry"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// HeaderModelUsed names the candidate that served a stream.
	HeaderModelUsed = "X-Model-Used"

	// HeaderRequestID carries the per-request id on every response.
	HeaderRequestID = "X-Request-ID"

	// DefaultMaxBodyBytes bounds /api/ask request bodies (64KB).
	DefaultMaxBodyBytes = 64 * 1024

	shutdownTimeout = 10 * time.Second
)

// ============================================================================
// COLLABORATORS
// ============================================================================

// Runner selects an upstream stream for a prompt.
// *router.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, msgs []openai.ChatCompletionMessage) (*router.Selection, error)
	Candidates() []cloud.Candidate
}

// Ledger persists per-request outcomes. *storage.Ledger satisfies it.
type Ledger interface {
	Record(ctx context.Context, e storage.Entry) error
	Summary(ctx context.Context) (storage.Summary, error)
	Recent(ctx context.Context, limit int) ([]storage.Entry, error)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the folio HTTP gateway.
type Server struct {
	cfg     config.GatewayConfig
	runner  Runner
	source  profile.Source
	limits  history.Limits
	ready   func() bool
	metrics *telemetry.Metrics
	ledger  Ledger
	limiter *RateLimiter
	log     zerolog.Logger
	version string
	started time.Time

	mux    *http.ServeMux
	server *http.Server

	mu sync.RWMutex
}

// New creates a gateway serving runner's candidates. Call the With*
// methods before Handler or Start.
func New(cfg config.GatewayConfig, runner Runner) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		cfg:     cfg,
		runner:  runner,
		source:  profile.Static(""),
		limits:  history.DefaultLimits(),
		ready:   func() bool { return true },
		log:     zerolog.Nop(),
		version: "dev",
		started: time.Now(),
		mux:     http.NewServeMux(),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	s.setupRoutes()
	return s
}

// WithSource sets the instruction source placed first in every prompt.
func (s *Server) WithSource(src profile.Source) *Server {
	s.source = src
	return s
}

// WithHistoryLimits sets the history window bounds.
func (s *Server) WithHistoryLimits(l history.Limits) *Server {
	s.limits = l
	return s
}

// WithReadiness sets the check run before any upstream call. When it
// reports false, /api/ask answers 500 without contacting a candidate.
func (s *Server) WithReadiness(fn func() bool) *Server {
	s.ready = fn
	return s
}

// WithMetrics enables Prometheus metrics and the /metrics route.
func (s *Server) WithMetrics(m *telemetry.Metrics) *Server {
	s.metrics = m
	return s
}

// WithLedger enables request recording and the /stats summary.
func (s *Server) WithLedger(l Ledger) *Server {
	s.ledger = l
	return s
}

// WithLogger sets the logger.
func (s *Server) WithLogger(l zerolog.Logger) *Server {
	s.log = l
	return s
}

// WithVersion sets the version reported by /health.
func (s *Server) WithVersion(v string) *Server {
	s.version = v
	return s
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	// No method in the pattern: non-POST requests get a JSON 405.
	s.mux.HandleFunc("/api/ask", s.handleAsk)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mws := []func(http.Handler) http.Handler{
		RecoveryMiddleware(s.log),
		RequestIDMiddleware(),
		LoggingMiddleware(s.log),
		CORSMiddleware(NewCORSConfig(s.cfg.AllowedOrigins)),
	}
	if s.limiter != nil {
		mws = append(mws, RateLimitMiddleware(s.limiter))
	}
	return Chain(mws...)(s.mux)
}

// ============================================================================
// HEALTH AND STATS
// ============================================================================

// HealthResponse is the /health body.
type HealthResponse struct {
	Status        string   `json:"status"`
	Version       string   `json:"version"`
	Upstream      string   `json:"upstream"`
	Candidates    []string `json:"candidates"`
	UptimeSeconds int64    `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		Upstream:      "configured",
		Candidates:    s.candidateIDs(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if !s.ready() {
		health.Upstream = "not_configured"
		health.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, health)
}

// StatsResponse is the /stats body.
type StatsResponse struct {
	Enabled       bool             `json:"enabled"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Summary       *storage.Summary `json:"summary,omitempty"`
	Recent        []RecentRequest  `json:"recent,omitempty"`
}

// RecentRequest is one ledger row in /stats?recent=N.
type RecentRequest struct {
	RequestID  string    `json:"request_id"`
	Model      string    `json:"model,omitempty"`
	Tried      []string  `json:"tried"`
	Status     int       `json:"status"`
	Deltas     int       `json:"deltas"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// maxRecent caps the recent query.
const maxRecent = 100

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{UptimeSeconds: int64(time.Since(s.started).Seconds())}
	if s.ledger == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	sum, err := s.ledger.Summary(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("STATS_FAILED")
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to read stats"})
		return
	}
	resp.Enabled = true
	resp.Summary = &sum

	if q := r.URL.Query().Get("recent"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, ErrorResponse{Error: "recent must be a positive integer"})
			return
		}
		entries, err := s.ledger.Recent(r.Context(), min(n, maxRecent))
		if err != nil {
			s.log.Error().Err(err).Msg("STATS_FAILED")
			writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to read stats"})
			return
		}
		resp.Recent = make([]RecentRequest, 0, len(entries))
		for _, e := range entries {
			resp.Recent = append(resp.Recent, RecentRequest{
				RequestID:  e.RequestID,
				Model:      e.Model,
				Tried:      e.Tried,
				Status:     e.Status,
				Deltas:     e.Deltas,
				DurationMS: e.Duration.Milliseconds(),
				At:         e.At,
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "Metrics disabled"})
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) candidateIDs() []string {
	if s.runner == nil {
		return nil
	}
	cands := s.runner.Candidates()
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.ID
	}
	return ids
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.serve(s.httpServer(), ln)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	srv := s.httpServer()
	errCh := make(chan error, 1)
	go func() { errCh <- s.serve(srv, ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

func (s *Server) httpServer() *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Streams can be long; no WriteTimeout.
		IdleTimeout: 120 * time.Second,
	}
	return s.server
}

func (s *Server) serve(srv *http.Server, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Str("version", s.version).Msg("SERVER_START")
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()

	if s.limiter != nil {
		s.limiter.Stop()
	}
	if srv == nil {
		return nil
	}
	s.log.Info().Msg("SERVER_SHUTDOWN")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// ErrorResponse is the JSON body of every non-streaming failure.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Tried  []string `json:"tried,omitempty"`
	Detail string   `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, e ErrorResponse) {
	writeJSON(w, status, e)
}
