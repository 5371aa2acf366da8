// Package api declares the operator HTTP surface: read-only score and
// stats endpoints plus health.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/level114/warden/internal/adapters/repository"
)

// Entry mirrors the read shape returned by registry queries.
type Entry = repository.Entry

// Store exposes the registry reads the handlers need.
type Store interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, serverID string) (Entry, error)
	Count(ctx context.Context) int
}

// StatsProvider supplies service cycle statistics.
type StatsProvider interface {
	Stats() map[string]interface{}
}

// defaultMaxLimit bounds /api/scores listings.
const defaultMaxLimit = 500

// Server wires the HTTP routes for the operator API.
type Server struct {
	healthHandler *HealthHandler
	scoresHandler *ScoresHandler
	statsHandler  *StatsHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxListLimit bounds how many entries one listing may request.
func WithMaxListLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.scoresHandler.maxLimit = n
		}
	}
}

// NewServer creates an API server with all handlers.
func NewServer(store Store, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		scoresHandler: NewScoresHandler(store),
		statsHandler:  NewStatsHandler(stats),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/scores", MetricsMiddleware(s.scoresHandler.HandleList, "scores"))
	mux.HandleFunc("/api/scores/", MetricsMiddleware(s.scoresHandler.HandleGet, "score"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
