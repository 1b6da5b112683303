package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/fragdrop/fragwatch/internal/config"
)

func TestDefaults(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := config.New()

		Convey("Then the service defaults are sensible", func() {
			So(cfg.Addr, ShouldEqual, ":8000")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.QueueSize, ShouldEqual, 10_000)
			So(cfg.DedupeSize, ShouldEqual, 50_000)
			So(cfg.WorkerCount, ShouldBeGreaterThan, 0)
		})

		Convey("Then the community monitor targets the stock deployment", func() {
			So(cfg.Reddit.Subreddit, ShouldEqual, "MontagneParfums")
			So(cfg.Reddit.CheckIntervalSeconds, ShouldEqual, 300)
			So(cfg.Reddit.PostLimit, ShouldEqual, 50)
			So(cfg.Detection.ConfidenceThreshold, ShouldEqual, 0.4)
			So(cfg.Detection.PrimaryKeywords, ShouldContain, "restock")
			So(cfg.Detection.TrustedAuthors, ShouldContain, "ayybrahamlmaocoln")
		})

		Convey("Then the stock monitor polls more slowly", func() {
			So(cfg.Stock.Enabled, ShouldBeTrue)
			So(cfg.Stock.CheckIntervalSeconds, ShouldEqual, 900)
			So(cfg.Stock.Notify.Restocked, ShouldBeTrue)
			So(cfg.Stock.Notify.NewProducts, ShouldBeTrue)
			So(cfg.Stock.Notify.OutOfStock, ShouldBeFalse)
		})

		Convey("Then the drop window is Friday afternoon in New York", func() {
			So(cfg.DropWindow.Enabled, ShouldBeTrue)
			So(cfg.DropWindow.DaysOfWeek, ShouldResemble, []int{5})
			So(cfg.DropWindow.StartHour, ShouldEqual, 12)
			So(cfg.DropWindow.EndHour, ShouldEqual, 17)
			So(cfg.DropWindow.Timezone, ShouldEqual, "America/New_York")
		})

		Convey("Then the defaults validate", func() {
			So(cfg.Validate(), ShouldBeNil)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given configuration loading", t, func() {
		ctx := context.Background()

		Convey("When no file or env is present", func() {
			t.Setenv(config.EnvConfigPath, "")
			cfg, err := config.Load(ctx)

			Convey("Then the defaults come back", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":8000")
			})
		})

		Convey("When a YAML file overrides defaults", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := []byte("addr: \":9100\"\nreddit:\n  subreddit: TestSub\n  check_interval: 120\nstock:\n  watchlist:\n    - aventus-decant\n")
			So(os.WriteFile(path, yaml, 0o644), ShouldBeNil)
			t.Setenv(config.EnvConfigPath, path)

			cfg, err := config.Load(ctx)

			Convey("Then file values win over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9100")
				So(cfg.Reddit.Subreddit, ShouldEqual, "TestSub")
				So(cfg.Reddit.CheckIntervalSeconds, ShouldEqual, 120)
				So(cfg.Stock.Watchlist, ShouldResemble, []string{"aventus-decant"})
			})

			Convey("Then untouched defaults survive", func() {
				So(cfg.Reddit.PostLimit, ShouldEqual, 50)
				So(cfg.Detection.ConfidenceThreshold, ShouldEqual, 0.4)
			})
		})

		Convey("When an env var overrides both", func() {
			t.Setenv(config.EnvConfigPath, "")
			t.Setenv("FRAGWATCH_ADDR", ":9200")

			cfg, err := config.Load(ctx)

			Convey("Then the env value wins", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9200")
			})
		})

		Convey("When the config file does not exist", func() {
			t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)

			Convey("Then loading fails with a load error", func() {
				So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
			})
		})

		Convey("When the file fails validation", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			So(os.WriteFile(path, []byte("reddit:\n  check_interval: 5\n"), 0o644), ShouldBeNil)
			t.Setenv(config.EnvConfigPath, path)

			_, err := config.Load(ctx)

			Convey("Then loading fails with an invalid-config error", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given config validation", t, func() {
		valid := func() *config.Config { return config.New() }

		Convey("When the listen address is empty", func() {
			cfg := valid()
			cfg.Addr = ""
			So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the threshold is out of range", func() {
			cfg := valid()
			cfg.Detection.ConfidenceThreshold = 1.5
			So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the poll interval is too aggressive", func() {
			cfg := valid()
			cfg.Reddit.CheckIntervalSeconds = 10
			So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the post limit is out of range", func() {
			cfg := valid()
			cfg.Reddit.PostLimit = 500
			So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When a window has an invalid weekday", func() {
			cfg := valid()
			cfg.DropWindow.DaysOfWeek = []int{7}
			So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When a window has an unknown timezone", func() {
			cfg := valid()
			cfg.StockSchedule.Timezone = "Mars/Olympus_Mons"
			So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the stock monitor is disabled", func() {
			cfg := valid()
			cfg.Stock.Enabled = false
			cfg.Stock.CheckIntervalSeconds = 0

			Convey("Then its interval is not validated", func() {
				So(cfg.Validate(), ShouldBeNil)
			})
		})
	})
}
