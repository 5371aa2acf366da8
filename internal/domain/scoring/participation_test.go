package scoring_test

import (
	"testing"
	"time"

	"github.com/level114/warden/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParticipationScore(t *testing.T) {
	cfg := scoring.NewConfig()
	now := time.Now()

	Convey("Given a compliant, registered server at healthy occupancy", t, func() {
		mc := &scoring.MinerContext{Report: telemetryReport(now, 50, 0), Registered: true}

		Convey("Then the sub-scores should combine per the split", func() {
			// compliance 0.6, players 0.5*1.2 = 0.6, registration 1
			So(scoring.ParticipationScore(cfg, mc), ShouldAlmostEqual, 0.66, 0.0001)
		})
	})

	Convey("Given a missing required plugin", t, func() {
		r := telemetryReport(now, 50, 0)
		r.Payload.Plugins = []string{"SomethingElse"}
		mc := &scoring.MinerContext{Report: r, Registered: true}

		Convey("Then compliance should contribute nothing", func() {
			So(scoring.ParticipationScore(cfg, mc), ShouldAlmostEqual, 0.33, 0.0001)
		})
	})

	Convey("Given an externally flagged compliance failure", t, func() {
		mc := &scoring.MinerContext{Report: telemetryReport(now, 50, 0), Registered: true, ComplianceFlagged: true}

		Convey("Then the compliance sub-score should collapse, not vanish", func() {
			// compliance 0.6*0.3 = 0.18
			So(scoring.ParticipationScore(cfg, mc), ShouldAlmostEqual, 0.429, 0.0001)
		})
	})

	Convey("Given plenty of bonus plugins", t, func() {
		r := telemetryReport(now, 50, 0)
		r.Payload.Plugins = []string{"Level114", "a", "b", "c", "d", "e"}
		mc := &scoring.MinerContext{Report: r, Registered: true}

		Convey("Then the compliance bonus should cap at full credit", func() {
			// compliance 0.6+0.4 = 1.0
			So(scoring.ParticipationScore(cfg, mc), ShouldAlmostEqual, 0.88, 0.0001)
		})
	})

	Convey("Given a server packed to 97.5% occupancy", t, func() {
		r := telemetryReport(now, 50, 0)
		r.Payload.ActivePlayers = players(195)
		r.Payload.MaxPlayers = 200
		mc := &scoring.MinerContext{Report: r, Registered: true}

		Convey("Then the player sub-score should be discounted", func() {
			// players 0.975*0.8 = 0.78
			So(scoring.ParticipationScore(cfg, mc), ShouldAlmostEqual, 0.55*0.6+0.30*0.78+0.15, 0.0001)
		})
	})

	Convey("Given an empty server", t, func() {
		r := telemetryReport(now, 50, 0)
		r.Payload.ActivePlayers = nil
		mc := &scoring.MinerContext{Report: r, Registered: true}

		Convey("Then the player sub-score should be zero", func() {
			So(scoring.ParticipationScore(cfg, mc), ShouldAlmostEqual, 0.55*0.6+0.15, 0.0001)
		})
	})

	Convey("Given an unregistered server", t, func() {
		mc := &scoring.MinerContext{Report: telemetryReport(now, 50, 0)}

		Convey("Then the registration sub-score should be zero", func() {
			So(scoring.ParticipationScore(cfg, mc), ShouldAlmostEqual, 0.51, 0.0001)
		})
	})

	Convey("Given no report", t, func() {
		So(scoring.ParticipationScore(cfg, &scoring.MinerContext{Registered: true}), ShouldEqual, 0.0)
	})
}
