package scoring

import (
	"time"

	"github.com/level114/warden/internal/domain/history"
	"github.com/level114/warden/internal/domain/integrity"
	"github.com/level114/warden/internal/domain/model"
)

// MinerContext is the full evaluation input for one server in one cycle.
// The engine reads it and never mutates it.
type MinerContext struct {
	// ServerID identifies the server being scored.
	ServerID string

	// Report is the latest accepted report; nil when the server has gone
	// silent. Falls back to the newest history entry when nil.
	Report *model.Report

	// HTTPLatencyS is the measured collector round-trip for this server's
	// data, in seconds.
	HTTPLatencyS float64

	// Registered reflects the collector's registration flag.
	Registered bool

	// ComplianceFlagged marks an externally detected compliance failure
	// beyond the plugin check.
	ComplianceFlagged bool

	// Verification carries the penalty kind from integrity verification;
	// empty when the report passed cleanly.
	Verification integrity.Kind

	// History is the bounded report window for this server.
	History *history.Window

	// Now pins the evaluation time. Zero means wall clock; tests and cycle
	// drivers set it so identical inputs score identically.
	Now time.Time
}

// latest returns the report to score infrastructure and participation from.
func (mc *MinerContext) latest() *model.Report {
	if mc.Report != nil {
		return mc.Report
	}
	if mc.History != nil {
		return mc.History.Latest()
	}
	return nil
}

func (mc *MinerContext) evalTime() time.Time {
	if mc.Now.IsZero() {
		return time.Now()
	}
	return mc.Now
}
