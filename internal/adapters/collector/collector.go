// Package collector provides the client for the external Collector service:
// registered server listings, public keys and signed telemetry reports.
package collector

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/level114/warden/internal/domain/model"
)

// ServerInfo is one registered server as the Collector lists it.
type ServerInfo struct {
	ID         string `json:"id"`
	Registered bool   `json:"registered"`
}

// Client reads server state from the Collector. Retries are left to the
// caller; a cycle simply skips a server whose data cannot be fetched.
type Client interface {
	// Servers lists the servers the Collector knows about.
	Servers(ctx context.Context) ([]ServerInfo, error)

	// ServerKey resolves the Ed25519 public key a server registered with.
	// Returns ErrNotFound when the Collector has no key for the server.
	ServerKey(ctx context.Context, serverID string) (ed25519.PublicKey, error)

	// LatestReport fetches the newest report for a server along with the
	// measured request round-trip, which feeds the latency sub-score.
	LatestReport(ctx context.Context, serverID string) (*model.Report, time.Duration, error)

	// Reports fetches up to n reports for a server, most recent first.
	Reports(ctx context.Context, serverID string, n int) ([]*model.Report, error)
}
