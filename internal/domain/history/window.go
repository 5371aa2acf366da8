// Package history provides the bounded per-server report window the
// reliability scorer reads from.
package history

import (
	"math"
	"time"

	"github.com/level114/warden/internal/domain/model"
)

// DefaultCapacity bounds a window when the caller does not configure one.
const DefaultCapacity = 60

// minFreshnessWeight floors the down-weighting of stale reports so old data
// loses influence without vanishing from the statistics.
const minFreshnessWeight = 0.1

// Window is a fixed-capacity ring of reports for one server, ordered oldest
// to newest. Insertion evicts the oldest entry once capacity is reached.
type Window struct {
	capacity int
	reports  []*model.Report
}

// New creates an empty window with the given capacity.
func New(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{capacity: capacity}
}

// FromRecentFirst builds a window from a most-recent-first sequence, the
// order collector endpoints return history in. Entries beyond capacity are
// dropped from the old end.
func FromRecentFirst(reports []*model.Report, capacity int) *Window {
	w := New(capacity)
	for i := len(reports) - 1; i >= 0; i-- {
		w.Push(reports[i])
	}
	return w
}

// Push appends a report, evicting the oldest when the window is full.
func (w *Window) Push(r *model.Report) {
	if r == nil {
		return
	}
	if len(w.reports) >= w.capacity {
		copy(w.reports, w.reports[1:])
		w.reports = w.reports[:len(w.reports)-1]
	}
	w.reports = append(w.reports, r)
}

// Len returns the number of buffered reports.
func (w *Window) Len() int {
	return len(w.reports)
}

// Capacity returns the configured bound.
func (w *Window) Capacity() int {
	return w.capacity
}

// Latest returns the newest report, or nil when empty.
func (w *Window) Latest() *model.Report {
	if len(w.reports) == 0 {
		return nil
	}
	return w.reports[len(w.reports)-1]
}

// Reports returns the buffered reports oldest first. The slice is shared;
// callers must treat it as read-only.
func (w *Window) Reports() []*model.Report {
	return w.reports
}

// Recent returns up to n newest reports, oldest first.
func (w *Window) Recent(n int) []*model.Report {
	if n <= 0 || len(w.reports) == 0 {
		return nil
	}
	if n > len(w.reports) {
		n = len(w.reports)
	}
	return w.reports[len(w.reports)-n:]
}

// FreshnessWeight down-weights a report by age: full weight within the
// cutoff, decaying as cutoff/age beyond it, floored so stale reports cannot
// anchor the statistics but still count.
func FreshnessWeight(r *model.Report, now time.Time, cutoff time.Duration) float64 {
	if cutoff <= 0 {
		return 1
	}
	age := r.Age(now)
	if age <= cutoff {
		return 1
	}
	weight := float64(cutoff) / float64(age)
	if weight < minFreshnessWeight {
		return minFreshnessWeight
	}
	return weight
}

// TPSStats holds freshness-weighted tick-rate statistics over a window slice.
type TPSStats struct {
	Mean    float64
	CV      float64 // coefficient of variation: stddev/mean
	Samples int
}

// WeightedTPSStats computes freshness-weighted mean and coefficient of
// variation of TPS over the newest n reports. Values outside [minTPS,
// maxTPS] are treated as broken samples and skipped.
func (w *Window) WeightedTPSStats(n int, now time.Time, cutoff time.Duration, minTPS, maxTPS float64) TPSStats {
	recent := w.Recent(n)

	var (
		values  []float64
		weights []float64
		wSum    float64
		mSum    float64
	)
	for _, r := range recent {
		tps := r.Payload.ActualTPS()
		if tps < minTPS || tps > maxTPS {
			continue
		}
		weight := FreshnessWeight(r, now, cutoff)
		values = append(values, tps)
		weights = append(weights, weight)
		wSum += weight
		mSum += weight * tps
	}
	if len(values) == 0 || wSum == 0 {
		return TPSStats{}
	}

	mean := mSum / wSum
	var varSum float64
	for i, v := range values {
		d := v - mean
		varSum += weights[i] * d * d
	}
	stddev := math.Sqrt(varSum / wSum)

	stats := TPSStats{Mean: mean, Samples: len(values)}
	if mean > 0 {
		stats.CV = stddev / mean
	}
	return stats
}
