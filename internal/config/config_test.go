package config_test

import (
	"testing"

	"github.com/level114/warden/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.IdealTPS, convey.ShouldEqual, 20.0)
			convey.So(cfg.MaxLatencyS, convey.ShouldEqual, 1.0)
			convey.So(cfg.MaxPlayersWeight, convey.ShouldEqual, 200)
			convey.So(cfg.EMAAlpha, convey.ShouldEqual, 0.2)
			convey.So(cfg.MaxScoreChange, convey.ShouldEqual, 200)
			convey.So(cfg.MaxHistory, convey.ShouldEqual, 60)
			convey.So(cfg.StabilityWindow, convey.ShouldEqual, 20)
			convey.So(cfg.RequiredPlugins, convey.ShouldResemble, []string{"Level114"})
		})

		convey.Convey("Then the default weight groups should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		convey.Convey("When the component weights do not sum to 1.0", func() {
			cfg := config.New()
			cfg.WeightInfrastructure = 0.5

			convey.Convey("Then validation should fail with ErrInvalidConfig", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})
		})

		convey.Convey("When the participation sub-weights do not sum to 1.0", func() {
			cfg := config.New()
			cfg.PartCompliance = 0.9

			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When ema_alpha is outside (0,1]", func() {
			cfg := config.New()
			cfg.EMAAlpha = 1.5

			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the stability window exceeds history capacity", func() {
			cfg := config.New()
			cfg.StabilityWindow = cfg.MaxHistory + 1

			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the smoothing step bounds are inverted", func() {
			cfg := config.New()
			cfg.MinScoreChange = 500

			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
