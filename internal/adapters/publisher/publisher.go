// Package publisher defines the boundary to the external weight ledger.
// Warden publishes one normalized weight per server per cycle; how the
// weight lands on the ledger is the implementation's concern.
package publisher

import (
	"context"

	"github.com/level114/warden/internal/domain/model"
	"github.com/level114/warden/pkg/logger"
	"github.com/level114/warden/pkg/metrics"
)

// Publisher pushes one server's weight to the ledger.
type Publisher interface {
	// Publish sets the weight for a server. Weight is score normalized to
	// [0,1].
	Publish(ctx context.Context, serverID string, weight float64) error
}

// Weight converts a published score to the ledger weight scale.
func Weight(score int) float64 {
	if score < 0 {
		return 0
	}
	if score > model.MaxScore {
		return 1
	}
	return float64(score) / float64(model.MaxScore)
}

// LogPublisher records published weights without an external ledger.
// Deployments wire a ledger-backed implementation behind the same
// interface.
type LogPublisher struct {
	log logger.Logger
}

// NewLogPublisher creates a publisher that logs weights.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logger.Named("publisher")}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, serverID string, weight float64) error {
	metrics.RecordScorePublished(weight * float64(model.MaxScore))
	p.log.Info(ctx, "weight published",
		logger.String("server_id", serverID),
		logger.Float64("weight", weight),
	)
	return nil
}
