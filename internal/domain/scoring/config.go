// Package scoring computes server trust scores from verified telemetry:
// three weighted component scores, a penalty ladder, normalization to
// [0,1000] and EMA smoothing against the previously published score.
package scoring

import (
	"time"

	"github.com/level114/warden/internal/config"
)

// Scoring constants that are part of the model rather than deployment
// configuration. Tunable knobs live on Config.
const (
	// Infrastructure sub-weights.
	infraTPSWeight     = 0.55
	infraLatencyWeight = 0.25
	infraMemoryWeight  = 0.20

	// A server ticking below this rate is effectively broken.
	minTPSThreshold = 5.0
	brokenTPSFactor = 0.1

	// Latency under this bound earns the excellence bonus.
	excellentLatencyS   = 0.1
	excellentLatencyMul = 1.1

	// Memory headroom bounds: under minMemoryHeadroom free RAM the score
	// decays at half value, above the ideal-usage headroom it is full.
	minMemoryHeadroom  = 0.1
	idealMemoryUsage   = 0.7
	missingMemoryScore = 0.5

	// Compliance: presence of the required set earns the base. Extra
	// plugins add bonus credit; an externally flagged failure collapses it.
	complianceBase       = 0.6
	complianceBonusPer   = 0.1
	complianceBonusCap   = 0.4
	complianceFlaggedMul = 0.3

	// Player occupancy shaping.
	minPlayersForBonus   = 5
	optimalOccupancyLow  = 0.20
	optimalOccupancyHigh = 0.80
	optimalOccupancyMul  = 1.2
	crowdedOccupancy     = 0.95
	crowdedOccupancyMul  = 0.8

	// Reliability sub-weights.
	relUptimeWeight    = 0.50
	relStabilityWeight = 0.35
	relRecoveryWeight  = 0.15

	// Uptime trend bounds.
	maxUptimeBonusHours = 72.0
	basicUptimeCapHours = 36.0
	basicUptimeFactor   = 0.5
	resetPenalty        = 0.3
	growthBonusMul      = 1.1
	growthFraction      = 0.8
	growthMinSamples    = 5

	// TPS stability bounds.
	cvThreshold        = 0.30
	stabilityBonusMul  = 1.1
	stabilityMeanRatio = 0.9
	minValidSamples    = 3
	partialWindowScore = 0.5

	// Recovery detection.
	recoveryTPSThreshold = 18.0
	recoverySampleCount  = 10
	maxRecoveryMinutes   = 30.0
	recoveryTimeFactor   = 0.3
	slowRecoveryScore    = 0.7
	noRecoveryScore      = 0.5

	// Servers with fewer accepted reports than this get the basic
	// reliability treatment.
	minReportsForReliability = 5

	// Penalty caps on the raw [0,1] score.
	integrityCap  = 0.30
	complianceCap = 0.30
	signatureCap  = 0.10
	clockDriftMul = 0.5

	// Smoothing halves the raw step before clamping it to the change bounds.
	stepDamping = 0.5
)

// Config holds the deployment-tunable scoring parameters. Build one with
// NewConfig and options, or derive it from the service configuration with
// FromConfig; both produce values already validated at load time.
type Config struct {
	IdealTPS         float64
	MaxLatencyS      float64
	MaxPlayersWeight int

	WeightInfrastructure float64
	WeightParticipation  float64
	WeightReliability    float64

	PartCompliance   float64
	PartPlayers      float64
	PartRegistration float64

	RequiredPlugins []string

	EMAAlpha       float64
	MinScoreChange int
	MaxScoreChange int

	StabilityWindow int
	FreshnessCutoff time.Duration

	Debug bool
}

// Option applies a configuration option to a scoring Config.
type Option func(*Config)

// WithIdealTPS sets the tick-rate target.
func WithIdealTPS(tps float64) Option {
	return func(c *Config) {
		if tps > 0 {
			c.IdealTPS = tps
		}
	}
}

// WithMaxLatency sets the latency treated as worthless.
func WithMaxLatency(seconds float64) Option {
	return func(c *Config) {
		if seconds > 0 {
			c.MaxLatencyS = seconds
		}
	}
}

// WithComponentWeights sets the three top-level weights.
func WithComponentWeights(infra, part, rel float64) Option {
	return func(c *Config) {
		c.WeightInfrastructure = infra
		c.WeightParticipation = part
		c.WeightReliability = rel
	}
}

// WithParticipationSplit sets the participation sub-weights.
func WithParticipationSplit(compliance, players, registration float64) Option {
	return func(c *Config) {
		c.PartCompliance = compliance
		c.PartPlayers = players
		c.PartRegistration = registration
	}
}

// WithRequiredPlugins sets the compliance plugin set.
func WithRequiredPlugins(plugins []string) Option {
	return func(c *Config) {
		c.RequiredPlugins = plugins
	}
}

// WithSmoothing sets the EMA alpha and the per-update change bounds.
func WithSmoothing(alpha float64, minChange, maxChange int) Option {
	return func(c *Config) {
		if alpha > 0 && alpha <= 1 {
			c.EMAAlpha = alpha
		}
		if minChange >= 0 && maxChange >= minChange && maxChange > 0 {
			c.MinScoreChange = minChange
			c.MaxScoreChange = maxChange
		}
	}
}

// WithStabilityWindow sets the report count used for TPS statistics.
func WithStabilityWindow(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.StabilityWindow = n
		}
	}
}

// WithFreshnessCutoff sets the age beyond which reports are down-weighted.
func WithFreshnessCutoff(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.FreshnessCutoff = d
		}
	}
}

// WithDebug enables per-component score logging.
func WithDebug(enabled bool) Option {
	return func(c *Config) {
		c.Debug = enabled
	}
}

// NewConfig creates a scoring Config with defaults and options applied.
func NewConfig(opts ...Option) Config {
	c := Config{
		IdealTPS:             20.0,
		MaxLatencyS:          1.0,
		MaxPlayersWeight:     200,
		WeightInfrastructure: 0.40,
		WeightParticipation:  0.35,
		WeightReliability:    0.25,
		PartCompliance:       0.55,
		PartPlayers:          0.30,
		PartRegistration:     0.15,
		RequiredPlugins:      []string{"Level114"},
		EMAAlpha:             0.2,
		MinScoreChange:       1,
		MaxScoreChange:       200,
		StabilityWindow:      20,
		FreshnessCutoff:      5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// FromConfig derives the scoring parameters from the validated service
// configuration.
func FromConfig(cfg *config.Config) Config {
	return NewConfig(
		WithIdealTPS(cfg.IdealTPS),
		WithMaxLatency(cfg.MaxLatencyS),
		WithComponentWeights(cfg.WeightInfrastructure, cfg.WeightParticipation, cfg.WeightReliability),
		WithParticipationSplit(cfg.PartCompliance, cfg.PartPlayers, cfg.PartRegistration),
		WithRequiredPlugins(cfg.RequiredPlugins),
		WithSmoothing(cfg.EMAAlpha, cfg.MinScoreChange, cfg.MaxScoreChange),
		WithStabilityWindow(cfg.StabilityWindow),
		WithFreshnessCutoff(time.Duration(cfg.FreshnessCutoffS)*time.Second),
		WithDebug(cfg.DebugScoring),
		func(c *Config) {
			if cfg.MaxPlayersWeight > 0 {
				c.MaxPlayersWeight = cfg.MaxPlayersWeight
			}
		},
	)
}
