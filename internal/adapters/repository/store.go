// Package repository defines the ranked score registry interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/level114/warden/internal/domain/model"
)

// Entry represents one ranked registry row.
type Entry struct {
	Rank           int                  `json:"rank"`
	ServerID       string               `json:"server_id"`
	Score          int                  `json:"score"`
	Classification model.Classification `json:"classification"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Store provides read/write access to the per-server score state.
type Store interface {
	// Put stores the smoothed score for a server, replacing any previous
	// record. Scores move in both directions between cycles.
	Put(ctx context.Context, serverID string, score model.StoredScore) error

	// Get returns the stored score for a server.
	// Returns ErrNotFound when the server is unknown.
	Get(ctx context.Context, serverID string) (model.StoredScore, error)

	// Rank returns the server's registry row with its current rank.
	// Returns ErrNotFound when the server is unknown.
	Rank(ctx context.Context, serverID string) (Entry, error)

	// TopN returns the top-N entries ordered by score descending.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of servers tracked.
	Count(ctx context.Context) int
}
