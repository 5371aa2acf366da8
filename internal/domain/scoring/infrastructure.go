package scoring

import "github.com/level114/warden/internal/domain/model"

// InfrastructureScore rates raw server capability in [0,1]:
// tick rate, collector latency and memory headroom.
func InfrastructureScore(cfg Config, mc *MinerContext) float64 {
	r := mc.latest()
	if r == nil {
		return 0
	}

	score := infraTPSWeight*tpsScore(cfg, r.Payload.ActualTPS()) +
		infraLatencyWeight*latencyScore(cfg, mc.HTTPLatencyS) +
		infraMemoryWeight*memoryScore(r.Payload.Memory)
	return clampUnit(score)
}

// tpsScore rates the tick rate against the ideal. Rates below the broken
// threshold collapse to a tenth of their linear credit.
func tpsScore(cfg Config, actual float64) float64 {
	if actual <= 0 {
		return 0
	}
	score := actual / cfg.IdealTPS
	if score > 1 {
		score = 1
	}
	if actual < minTPSThreshold {
		score *= brokenTPSFactor
	}
	return score
}

// latencyScore decays linearly from 1 at zero latency to 0 at the configured
// maximum, with a bonus for excellent round trips.
func latencyScore(cfg Config, seconds float64) float64 {
	if seconds < 0 {
		seconds = 0
	}
	if seconds >= cfg.MaxLatencyS {
		return 0
	}
	score := 1 - seconds/cfg.MaxLatencyS
	if seconds <= excellentLatencyS {
		score *= excellentLatencyMul
	}
	return clampUnit(score)
}

// memoryScore rates free RAM headroom. Full credit above the ideal-usage
// headroom, half-value decay under the minimum, linear blend between.
func memoryScore(mem model.MemoryInfo) float64 {
	if mem.TotalBytes <= 0 {
		return missingMemoryScore
	}
	free := mem.FreeRatio()
	idealHeadroom := 1 - idealMemoryUsage

	switch {
	case free >= idealHeadroom:
		return 1
	case free < minMemoryHeadroom:
		return free / minMemoryHeadroom * 0.5
	default:
		return 0.5 + 0.5*(free-minMemoryHeadroom)/(idealHeadroom-minMemoryHeadroom)
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
