package scoring

import (
	"context"
	"fmt"

	"github.com/level114/warden/internal/domain/integrity"
	"github.com/level114/warden/internal/domain/model"
	"github.com/level114/warden/pkg/logger"
	"github.com/level114/warden/pkg/metrics"
)

// Evaluation is the typed result of scoring one server.
type Evaluation struct {
	ServerID       string                `json:"server_id"`
	Score          int                   `json:"score"`
	Components     model.ComponentScores `json:"components"`
	Classification model.Classification  `json:"classification"`
	Penalty        integrity.Kind        `json:"penalty,omitempty"`
}

// Engine scores servers. It holds no per-server state; the caller owns the
// stored score and feeds it back in, so evaluations are pure functions of
// their inputs and safe to run concurrently.
type Engine struct {
	cfg Config
	log logger.Logger
}

// NewEngine creates an engine with the given scoring parameters.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg: cfg,
		log: logger.Named("scoring"),
	}
}

// Score evaluates one server: component scores, penalty ladder,
// normalization and smoothing against the previously stored score. A server
// with no history scores 0 outright; smoothing never softens silence.
// Panics in scoring math never cross this boundary.
func (e *Engine) Score(ctx context.Context, mc *MinerContext, previous *model.StoredScore) (ev *Evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("scoring", "panic")
			err = fmt.Errorf("%w: %v", ErrScorePanic, r)
			ev = nil
		}
	}()

	if mc == nil {
		return nil, ErrNilContext
	}
	now := mc.evalTime()

	if mc.History == nil || mc.History.Len() == 0 {
		ev = &Evaluation{
			ServerID:       mc.ServerID,
			Classification: model.Classify(0),
			Penalty:        mc.Verification,
		}
		e.record(ctx, mc, ev)
		return ev, nil
	}

	comps := model.ComponentScores{
		Infrastructure: InfrastructureScore(e.cfg, mc),
		Participation:  ParticipationScore(e.cfg, mc),
		Reliability:    ReliabilityScore(e.cfg, mc.History, now),
	}
	raw, normalized := Aggregate(e.cfg, comps, mc)
	comps.Raw = raw

	var prev *int
	if previous != nil {
		p := previous.Score
		prev = &p
	}
	score := Smooth(e.cfg, normalized, prev)

	ev = &Evaluation{
		ServerID:       mc.ServerID,
		Score:          score,
		Components:     comps,
		Classification: model.Classify(score),
		Penalty:        mc.Verification,
	}
	e.record(ctx, mc, ev)
	return ev, nil
}

func (e *Engine) record(ctx context.Context, mc *MinerContext, ev *Evaluation) {
	metrics.RecordComponentScore("infrastructure", ev.Components.Infrastructure)
	metrics.RecordComponentScore("participation", ev.Components.Participation)
	metrics.RecordComponentScore("reliability", ev.Components.Reliability)
	if ev.Penalty != "" {
		metrics.RecordPenalty(string(ev.Penalty))
	}

	if e.cfg.Debug {
		e.log.Debug(ctx, "server scored",
			logger.String("server_id", ev.ServerID),
			logger.Int("score", ev.Score),
			logger.Float64("infrastructure", ev.Components.Infrastructure),
			logger.Float64("participation", ev.Components.Participation),
			logger.Float64("reliability", ev.Components.Reliability),
			logger.Float64("raw", ev.Components.Raw),
			logger.String("classification", string(ev.Classification)),
			logger.String("penalty", string(ev.Penalty)),
		)
	}
}
