package history_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/level114/warden/internal/domain/history"
	"github.com/level114/warden/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func reportAt(ts time.Time, tpsMillis int64) *model.Report {
	return &model.Report{
		ServerID:          "srv-1",
		ClientTimestampMS: ts.UnixMilli(),
		Payload:           model.Payload{TPSMillis: tpsMillis},
	}
}

func TestWindowBounds(t *testing.T) {
	Convey("Given a window with capacity 3", t, func() {
		w := history.New(3)
		base := time.Now()

		Convey("When pushing beyond capacity", func() {
			for i := 0; i < 5; i++ {
				r := reportAt(base.Add(time.Duration(i)*time.Minute), 50)
				r.Counter = int64(i)
				w.Push(r)
			}

			Convey("Then the oldest entries should be evicted first", func() {
				So(w.Len(), ShouldEqual, 3)
				So(w.Reports()[0].Counter, ShouldEqual, 2)
				So(w.Latest().Counter, ShouldEqual, 4)
			})
		})

		Convey("When pushing nil", func() {
			w.Push(nil)
			So(w.Len(), ShouldEqual, 0)
		})
	})
}

func TestFromRecentFirst(t *testing.T) {
	Convey("Given a most-recent-first sequence from the collector", t, func() {
		base := time.Now()
		var recentFirst []*model.Report
		for i := 4; i >= 0; i-- {
			r := reportAt(base.Add(time.Duration(i)*time.Minute), 50)
			r.Counter = int64(i)
			recentFirst = append(recentFirst, r)
		}

		w := history.FromRecentFirst(recentFirst, 10)

		Convey("Then the window should hold them oldest first", func() {
			So(w.Len(), ShouldEqual, 5)
			So(w.Reports()[0].Counter, ShouldEqual, 0)
			So(w.Latest().Counter, ShouldEqual, 4)
		})
	})
}

func TestRecent(t *testing.T) {
	Convey("Given a window with 5 reports", t, func() {
		w := history.New(10)
		base := time.Now()
		for i := 0; i < 5; i++ {
			r := reportAt(base.Add(time.Duration(i)*time.Minute), 50)
			r.Counter = int64(i)
			w.Push(r)
		}

		Convey("Then Recent should return the newest n oldest-first", func() {
			recent := w.Recent(2)
			So(recent, ShouldHaveLength, 2)
			So(recent[0].Counter, ShouldEqual, 3)
			So(recent[1].Counter, ShouldEqual, 4)
		})

		Convey("Then asking for more than buffered should return everything", func() {
			So(w.Recent(50), ShouldHaveLength, 5)
		})

		Convey("Then a non-positive n should return nothing", func() {
			So(w.Recent(0), ShouldBeNil)
		})
	})
}

func TestFreshnessWeight(t *testing.T) {
	Convey("Given a 5 minute freshness cutoff", t, func() {
		now := time.Now()
		cutoff := 5 * time.Minute

		Convey("Then a fresh report should carry full weight", func() {
			r := reportAt(now.Add(-time.Minute), 50)
			So(history.FreshnessWeight(r, now, cutoff), ShouldEqual, 1.0)
		})

		Convey("Then a report twice the cutoff age should carry half weight", func() {
			r := reportAt(now.Add(-10*time.Minute), 50)
			So(history.FreshnessWeight(r, now, cutoff), ShouldAlmostEqual, 0.5, 0.001)
		})

		Convey("Then very stale reports should floor rather than vanish", func() {
			r := reportAt(now.Add(-24*time.Hour), 50)
			So(history.FreshnessWeight(r, now, cutoff), ShouldEqual, 0.1)
		})
	})
}

func TestWeightedTPSStats(t *testing.T) {
	Convey("Given a window of perfectly stable TPS", t, func() {
		w := history.New(30)
		now := time.Now()
		for i := 0; i < 20; i++ {
			w.Push(reportAt(now.Add(time.Duration(i-20)*time.Minute), 50))
		}

		stats := w.WeightedTPSStats(20, now, 5*time.Minute, 5.0, 20.0)

		Convey("Then the CV should be zero and the mean 20", func() {
			So(stats.Samples, ShouldEqual, 20)
			So(stats.Mean, ShouldAlmostEqual, 20.0, 0.001)
			So(stats.CV, ShouldAlmostEqual, 0.0, 0.001)
		})
	})

	Convey("Given a window with broken samples", t, func() {
		w := history.New(30)
		now := time.Now()
		for i := 0; i < 10; i++ {
			tps := int64(50)
			if i%2 == 0 {
				tps = 0 // broken: 0 TPS, below the validity floor
			}
			w.Push(reportAt(now.Add(time.Duration(i-10)*time.Minute), tps))
		}

		stats := w.WeightedTPSStats(10, now, 5*time.Minute, 5.0, 20.0)

		Convey("Then broken samples should be excluded", func() {
			So(stats.Samples, ShouldEqual, 5)
			So(stats.Mean, ShouldAlmostEqual, 20.0, 0.001)
		})
	})

	Convey("Given an empty window", t, func() {
		w := history.New(10)
		stats := w.WeightedTPSStats(10, time.Now(), 5*time.Minute, 5.0, 20.0)
		So(stats.Samples, ShouldEqual, 0)
		So(stats.Mean, ShouldEqual, 0.0)
	})

	Convey("Given unstable TPS values", t, func() {
		w := history.New(30)
		now := time.Now()
		for i := 0; i < 20; i++ {
			// Alternate between 20 and 10 TPS.
			tps := int64(50)
			if i%2 == 0 {
				tps = 100
			}
			w.Push(reportAt(now.Add(time.Duration(i-20)*time.Minute), tps))
		}

		stats := w.WeightedTPSStats(20, now, 5*time.Minute, 5.0, 20.0)

		Convey("Then the CV should be clearly positive", func() {
			So(stats.CV, ShouldBeGreaterThan, 0.2)
			So(fmt.Sprintf("%.0f", stats.Mean), ShouldNotEqual, "0")
		})
	})
}
