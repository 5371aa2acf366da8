package scoring_test

import (
	"testing"
	"time"

	"github.com/level114/warden/internal/domain/history"
	"github.com/level114/warden/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReliabilityScore(t *testing.T) {
	cfg := scoring.NewConfig()
	now := time.Now()

	Convey("Given a full window of stable, long-lived operation", t, func() {
		w := healthyWindow(now, 20)

		Convey("Then reliability should be perfect", func() {
			So(scoring.ReliabilityScore(cfg, w, now), ShouldAlmostEqual, 1.0, 0.0001)
		})
	})

	Convey("Given too little history", t, func() {
		w := history.New(60)
		for i := 0; i < 3; i++ {
			ts := now.Add(-time.Duration(2-i) * time.Minute)
			uptime := 18*time.Hour + time.Duration(i)*time.Minute
			w.Push(telemetryReport(ts, 50, uptime.Milliseconds()))
		}

		Convey("Then only discounted basic uptime should count", func() {
			// 18h/36h * 0.5
			So(scoring.ReliabilityScore(cfg, w, now), ShouldAlmostEqual, 0.25, 0.001)
		})
	})

	Convey("Given an empty window", t, func() {
		So(scoring.ReliabilityScore(cfg, history.New(60), now), ShouldEqual, 0.0)
		So(scoring.ReliabilityScore(cfg, nil, now), ShouldEqual, 0.0)
	})

	Convey("Given a recent restart", t, func() {
		w := history.New(60)
		for i := 0; i < 20; i++ {
			ts := now.Add(-time.Duration(19-i) * time.Minute)
			uptime := 72*time.Hour + time.Duration(i)*time.Minute
			if i >= 10 {
				// Uptime starts over after a restart.
				uptime = time.Duration(i-9) * time.Minute
			}
			w.Push(telemetryReport(ts, 50, uptime.Milliseconds()))
		}

		Convey("Then reliability should drop well below the clean run", func() {
			clean := scoring.ReliabilityScore(cfg, healthyWindow(now, 20), now)
			So(scoring.ReliabilityScore(cfg, w, now), ShouldBeLessThan, clean)
		})
	})

	Convey("Given tick-rate dips", t, func() {
		dippedAt := func(n, dipIndex int) *history.Window {
			w := history.New(60)
			for i := 0; i < n; i++ {
				ts := now.Add(-time.Duration(n-1-i) * time.Minute)
				uptime := 72*time.Hour + time.Duration(i)*time.Minute
				tps := int64(50)
				if i == dipIndex {
					tps = 100 // 10 TPS, below the recovery threshold
				}
				w.Push(telemetryReport(ts, tps, uptime.Milliseconds()))
			}
			return w
		}

		clean := scoring.ReliabilityScore(cfg, healthyWindow(now, 25), now)
		recovered := scoring.ReliabilityScore(cfg, dippedAt(25, 5), now)
		unrecovered := scoring.ReliabilityScore(cfg, dippedAt(25, 24), now)

		Convey("Then a recovered dip should cost less than an open one", func() {
			So(recovered, ShouldBeLessThan, clean)
			So(unrecovered, ShouldBeLessThan, recovered)
		})
	})
}
