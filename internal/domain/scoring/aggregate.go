package scoring

import (
	"math"

	"github.com/level114/warden/internal/domain/integrity"
	"github.com/level114/warden/internal/domain/model"
)

// Aggregate combines the component scores with the configured weights and
// applies the penalty ladder in increasing severity, so the most severe cap
// always wins. Returns the raw [0,1] value and its [0,1000] normalization.
func Aggregate(cfg Config, comps model.ComponentScores, mc *MinerContext) (float64, int) {
	raw := cfg.WeightInfrastructure*comps.Infrastructure +
		cfg.WeightParticipation*comps.Participation +
		cfg.WeightReliability*comps.Reliability
	raw = clampUnit(raw)

	// Ladder: drift, compliance, integrity, signature, silence.
	if mc.Verification == integrity.KindClockDrift {
		raw = capAt(raw*clockDriftMul, integrityCap)
	}
	if complianceFailed(cfg, mc) {
		raw = capAt(raw, complianceCap)
	}
	if mc.Verification == integrity.KindIntegrity {
		raw = capAt(raw, integrityCap)
	}
	if mc.Verification == integrity.KindSignature {
		raw = capAt(raw, signatureCap)
	}
	if mc.History == nil || mc.History.Len() == 0 {
		raw = 0
	}

	return raw, Normalize(raw)
}

// Normalize maps a raw [0,1] value onto the published [0,1000] scale.
func Normalize(raw float64) int {
	score := int(math.Round(raw * model.MaxScore))
	if score < 0 {
		return 0
	}
	if score > model.MaxScore {
		return model.MaxScore
	}
	return score
}

func complianceFailed(cfg Config, mc *MinerContext) bool {
	if mc.ComplianceFlagged {
		return true
	}
	r := mc.latest()
	return r != nil && !r.Payload.HasPlugins(cfg.RequiredPlugins)
}

func capAt(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
