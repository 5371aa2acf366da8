package model

import "time"

// MaxScore is the upper bound of the published score scale.
const MaxScore = 1000

// ComponentScores holds the three sub-scores in [0,1] plus their weighted
// combination before normalization.
type ComponentScores struct {
	Infrastructure float64 `json:"infrastructure"`
	Participation  float64 `json:"participation"`
	Reliability    float64 `json:"reliability"`
	Raw            float64 `json:"raw"`
}

// StoredScore is the per-server state the caller keeps between cycles. The
// engine receives it as input and never mutates it.
type StoredScore struct {
	Score          int            `json:"score"`
	Classification Classification `json:"classification"`
	LastCounter    int64          `json:"last_counter"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Classification buckets a score for operators and downstream consumers.
type Classification string

const (
	ClassExcellent Classification = "excellent"
	ClassGood      Classification = "good"
	ClassAverage   Classification = "average"
	ClassPoor      Classification = "poor"
)

// Classification thresholds on the [0,1000] scale.
const (
	ExcellentThreshold = 850
	GoodThreshold      = 650
	PoorThreshold      = 300
)

// Classify maps a score to its performance band.
func Classify(score int) Classification {
	switch {
	case score >= ExcellentThreshold:
		return ClassExcellent
	case score >= GoodThreshold:
		return ClassGood
	case score >= PoorThreshold:
		return ClassAverage
	default:
		return ClassPoor
	}
}
