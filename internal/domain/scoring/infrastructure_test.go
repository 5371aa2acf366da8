package scoring_test

import (
	"testing"
	"time"

	"github.com/level114/warden/internal/domain/model"
	"github.com/level114/warden/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInfrastructureScore(t *testing.T) {
	cfg := scoring.NewConfig()
	now := time.Now()

	Convey("Given a server at 20 TPS with zero latency and ample memory", t, func() {
		mc := &scoring.MinerContext{Report: telemetryReport(now, 50, 0)}

		Convey("Then infrastructure should be perfect", func() {
			So(scoring.InfrastructureScore(cfg, mc), ShouldAlmostEqual, 1.0, 0.0001)
		})
	})

	Convey("Given a server ticking at 2 TPS", t, func() {
		mc := &scoring.MinerContext{Report: telemetryReport(now, 500, 0)}

		Convey("Then the TPS sub-score should collapse to a tenth", func() {
			// 0.55*0.01 + 0.25*1 + 0.20*1
			So(scoring.InfrastructureScore(cfg, mc), ShouldAlmostEqual, 0.4555, 0.0001)
		})
	})

	Convey("Given collector latency", t, func() {
		r := telemetryReport(now, 50, 0)

		Convey("When latency is mid-range", func() {
			mc := &scoring.MinerContext{Report: r, HTTPLatencyS: 0.5}
			So(scoring.InfrastructureScore(cfg, mc), ShouldAlmostEqual, 0.875, 0.0001)
		})

		Convey("When latency exceeds the maximum", func() {
			mc := &scoring.MinerContext{Report: r, HTTPLatencyS: 1.5}
			So(scoring.InfrastructureScore(cfg, mc), ShouldAlmostEqual, 0.75, 0.0001)
		})

		Convey("When latency sits just inside the excellence bound", func() {
			mc := &scoring.MinerContext{Report: r, HTTPLatencyS: 0.05}
			So(scoring.InfrastructureScore(cfg, mc), ShouldAlmostEqual, 1.0, 0.0001)
		})
	})

	Convey("Given memory pressure", t, func() {
		Convey("When totals are missing", func() {
			r := telemetryReport(now, 50, 0)
			r.Payload.Memory = model.MemoryInfo{}
			mc := &scoring.MinerContext{Report: r}

			// 0.55 + 0.25 + 0.20*0.5
			So(scoring.InfrastructureScore(cfg, mc), ShouldAlmostEqual, 0.90, 0.0001)
		})

		Convey("When only 5% of memory is free", func() {
			r := telemetryReport(now, 50, 0)
			total := int64(4 << 30)
			free := total / 20
			r.Payload.Memory = model.MemoryInfo{FreeBytes: free, UsedBytes: total - free, TotalBytes: total}
			mc := &scoring.MinerContext{Report: r}

			// memory sub-score decays at half value: 0.05/0.10*0.5 = 0.25
			So(scoring.InfrastructureScore(cfg, mc), ShouldAlmostEqual, 0.85, 0.0001)
		})
	})

	Convey("Given no report at all", t, func() {
		So(scoring.InfrastructureScore(cfg, &scoring.MinerContext{}), ShouldEqual, 0.0)
	})
}
