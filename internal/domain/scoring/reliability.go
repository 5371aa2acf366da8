package scoring

import (
	"time"

	"github.com/level114/warden/internal/domain/history"
	"github.com/level114/warden/internal/domain/model"
)

// ReliabilityScore rates sustained operation in [0,1] over the report
// window: uptime trend, tick-rate stability and recovery from dips.
// Servers with too little history get the basic uptime treatment.
func ReliabilityScore(cfg Config, w *history.Window, now time.Time) float64 {
	if w == nil || w.Len() == 0 {
		return 0
	}
	if w.Len() < minReportsForReliability {
		basic := uptimeHours(w.Latest()) / basicUptimeCapHours
		if basic > 1 {
			basic = 1
		}
		return clampUnit(basic * basicUptimeFactor)
	}

	score := relUptimeWeight*uptimeTrendScore(w) +
		relStabilityWeight*tpsStabilityScore(cfg, w, now) +
		relRecoveryWeight*recoveryScore(w)
	return clampUnit(score)
}

func uptimeHours(r *model.Report) float64 {
	if r == nil {
		return 0
	}
	return float64(r.Payload.UptimeMS) / float64(time.Hour/time.Millisecond)
}

// uptimeTrendScore rewards long current uptime, penalizes restarts by how
// recently they happened and grants a bonus for clean monotonic growth.
func uptimeTrendScore(w *history.Window) float64 {
	reports := w.Reports()
	n := len(reports)

	score := uptimeHours(w.Latest()) / maxUptimeBonusHours
	if score > 1 {
		score = 1
	}

	grew := 0
	for i := 1; i < n; i++ {
		prev, cur := reports[i-1].Payload.UptimeMS, reports[i].Payload.UptimeMS
		if cur < prev {
			// A reset close to the newest report hurts more than one long ago.
			recency := float64(i) / float64(n-1)
			score *= 1 - resetPenalty*recency
			continue
		}
		if cur > prev {
			grew++
		}
	}

	if n >= growthMinSamples && float64(grew)/float64(n-1) > growthFraction {
		score *= growthBonusMul
	}
	return clampUnit(score)
}

// tpsStabilityScore rates the freshness-weighted coefficient of variation of
// the tick rate over the stability window.
func tpsStabilityScore(cfg Config, w *history.Window, now time.Time) float64 {
	if w.Len() < cfg.StabilityWindow {
		return partialWindowScore
	}

	stats := w.WeightedTPSStats(cfg.StabilityWindow, now, cfg.FreshnessCutoff, minTPSThreshold, cfg.IdealTPS)
	if stats.Samples < minValidSamples {
		return brokenTPSFactor
	}

	score := 1 - stats.CV/cvThreshold
	if score < 0 {
		score = 0
	}
	if stats.Mean >= stabilityMeanRatio*cfg.IdealTPS {
		score *= stabilityBonusMul
	}
	return clampUnit(score)
}

// recoveryScore looks for tick-rate dips and measures how long the server
// took to string together a healthy run again. Full credit when no dip
// occurred; a server still in a dip at the window edge scores worst.
func recoveryScore(w *history.Window) float64 {
	var (
		sawDip     bool
		recovered  bool
		dipStart   time.Time
		healthyRun int
		recoveryT  time.Duration
	)
	for _, r := range w.Reports() {
		if r.Payload.ActualTPS() < recoveryTPSThreshold {
			sawDip = true
			recovered = false
			healthyRun = 0
			dipStart = r.ClientTime()
			continue
		}
		if sawDip && !recovered {
			healthyRun++
			if healthyRun >= recoverySampleCount {
				recovered = true
				recoveryT = r.ClientTime().Sub(dipStart)
			}
		}
	}

	switch {
	case !sawDip:
		return 1
	case !recovered:
		return noRecoveryScore
	}

	minutes := recoveryT.Minutes()
	if minutes > maxRecoveryMinutes {
		return slowRecoveryScore
	}
	return clampUnit(1 - minutes/maxRecoveryMinutes*recoveryTimeFactor)
}
