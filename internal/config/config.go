// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - Load layers defaults, optional YAML file, and WARDEN_-prefixed env vars.
// - Weight-group validation happens once at load time and is fatal; nothing
//   downstream re-validates per cycle.
package config

import (
	"fmt"
	"math"
	"runtime"
)

// weightSumTolerance bounds floating error when checking weight groups.
const weightSumTolerance = 0.001

// Config contains process configuration. All values are plain scalars or
// string sets; nested structures are deliberately avoided.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the operator HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CollectorURL is the base URL of the collector service.
	CollectorURL string `koanf:"collector_url"`

	// CollectorTimeoutMS bounds a single collector API request.
	CollectorTimeoutMS int `koanf:"collector_timeout_ms"`

	// CycleIntervalS is the pause between scoring cycles.
	CycleIntervalS int `koanf:"cycle_interval_s"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory scoring job queue.
	QueueSize int `koanf:"queue_size"`

	// NonceLedgerSize bounds the replay nonce ledger.
	NonceLedgerSize int `koanf:"nonce_ledger_size"`

	// IdealTPS is the tick-rate target a healthy server sustains.
	IdealTPS float64 `koanf:"ideal_tps"`

	// MaxLatencyS is the request latency treated as worthless.
	MaxLatencyS float64 `koanf:"max_latency_s"`

	// MaxPlayersWeight caps how much raw player count can contribute.
	MaxPlayersWeight int `koanf:"max_players_weight"`

	// Component weights; must sum to 1.0.
	WeightInfrastructure float64 `koanf:"weight_infrastructure"`
	WeightParticipation  float64 `koanf:"weight_participation"`
	WeightReliability    float64 `koanf:"weight_reliability"`

	// Participation sub-weights; must sum to 1.0.
	PartCompliance   float64 `koanf:"part_compliance"`
	PartPlayers      float64 `koanf:"part_players"`
	PartRegistration float64 `koanf:"part_registration"`

	// EMAAlpha is the smoothing factor in (0,1].
	EMAAlpha float64 `koanf:"ema_alpha"`

	// MinScoreChange and MaxScoreChange bound a single smoothing step.
	MinScoreChange int `koanf:"min_score_change"`
	MaxScoreChange int `koanf:"max_score_change"`

	// MaxHistory bounds the per-server report history.
	MaxHistory int `koanf:"max_history"`

	// StabilityWindow is the report count used for TPS stability statistics.
	StabilityWindow int `koanf:"stability_window"`

	// FreshnessCutoffS is the age beyond which reports are down-weighted.
	FreshnessCutoffS int `koanf:"freshness_cutoff_s"`

	// RequiredPlugins must all be present for compliance.
	RequiredPlugins []string `koanf:"required_plugins"`

	// DebugScoring enables per-component score logging.
	DebugScoring bool `koanf:"debug_scoring"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		CollectorURL:         "http://localhost:8080",
		CollectorTimeoutMS:   5000,
		CycleIntervalS:       60,
		WorkerCount:          runtime.NumCPU() * 4,
		QueueSize:            10_000,
		NonceLedgerSize:      100_000,
		IdealTPS:             20.0,
		MaxLatencyS:          1.0,
		MaxPlayersWeight:     200,
		WeightInfrastructure: 0.40,
		WeightParticipation:  0.35,
		WeightReliability:    0.25,
		PartCompliance:       0.55,
		PartPlayers:          0.30,
		PartRegistration:     0.15,
		EMAAlpha:             0.2,
		MinScoreChange:       1,
		MaxScoreChange:       200,
		MaxHistory:           60,
		StabilityWindow:      20,
		FreshnessCutoffS:     300,
		RequiredPlugins:      []string{"Level114"},
		DebugScoring:         false,
	}
}

// Validate checks weight sums and threshold sanity. A failure here is fatal
// at startup; per-cycle code never sees an invalid Config.
func (c *Config) Validate() error {
	if sum := c.WeightInfrastructure + c.WeightParticipation + c.WeightReliability; math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: component weights must sum to 1.0, got %v", ErrInvalidConfig, sum)
	}
	if sum := c.PartCompliance + c.PartPlayers + c.PartRegistration; math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: participation sub-weights must sum to 1.0, got %v", ErrInvalidConfig, sum)
	}
	if c.IdealTPS <= 0 || c.IdealTPS > 30 {
		return fmt.Errorf("%w: ideal_tps must be in (0, 30], got %v", ErrInvalidConfig, c.IdealTPS)
	}
	if c.MaxLatencyS <= 0 || c.MaxLatencyS > 10 {
		return fmt.Errorf("%w: max_latency_s must be in (0, 10], got %v", ErrInvalidConfig, c.MaxLatencyS)
	}
	if c.EMAAlpha <= 0 || c.EMAAlpha > 1 {
		return fmt.Errorf("%w: ema_alpha must be in (0, 1], got %v", ErrInvalidConfig, c.EMAAlpha)
	}
	if c.MaxPlayersWeight <= 0 {
		return fmt.Errorf("%w: max_players_weight must be positive, got %d", ErrInvalidConfig, c.MaxPlayersWeight)
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("%w: max_history must be positive, got %d", ErrInvalidConfig, c.MaxHistory)
	}
	if c.StabilityWindow <= 0 || c.StabilityWindow > c.MaxHistory {
		return fmt.Errorf("%w: stability_window must be in [1, max_history], got %d", ErrInvalidConfig, c.StabilityWindow)
	}
	if c.MinScoreChange < 0 || c.MaxScoreChange <= 0 || c.MinScoreChange > c.MaxScoreChange {
		return fmt.Errorf("%w: score change bounds invalid: min=%d max=%d", ErrInvalidConfig, c.MinScoreChange, c.MaxScoreChange)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.CollectorURL == "" {
		return fmt.Errorf("%w: collector_url must not be empty", ErrInvalidConfig)
	}
	return nil
}
