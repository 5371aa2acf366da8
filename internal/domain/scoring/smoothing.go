package scoring

import "math"

// Smooth blends a freshly computed score into the previously published one:
// EMA with the configured alpha, step clamped to half the raw distance and
// bounded by the min/max change limits. A nil previous score passes the raw
// value through; a sub-threshold update returns the previous score
// unchanged so published weights do not jitter.
func Smooth(cfg Config, raw int, previous *int) int {
	if previous == nil {
		return clampScore(raw)
	}
	prev := *previous
	if raw == prev {
		return clampScore(prev)
	}

	ema := cfg.EMAAlpha*float64(raw) + (1-cfg.EMAAlpha)*float64(prev)
	delta := ema - float64(prev)
	if math.Abs(delta) < float64(cfg.MinScoreChange) {
		return clampScore(prev)
	}

	maxStep := math.Abs(float64(raw-prev)) * stepDamping
	if maxStep < float64(cfg.MinScoreChange) {
		maxStep = float64(cfg.MinScoreChange)
	}
	if maxStep > float64(cfg.MaxScoreChange) {
		maxStep = float64(cfg.MaxScoreChange)
	}
	if delta > maxStep {
		delta = maxStep
	}
	if delta < -maxStep {
		delta = -maxStep
	}

	return clampScore(int(math.Round(float64(prev) + delta)))
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 1000 {
		return 1000
	}
	return score
}
