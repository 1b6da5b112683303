package logger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/fragdrop/fragwatch/pkg/logger"
)

func TestLogger(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("When getting the logger after Init", func() {
			l := logger.Get()

			Convey("Then it is usable and can be scoped", func() {
				So(l, ShouldNotBeNil)
				named := l.Named("test-component")
				So(named, ShouldNotBeNil)
				So(func() {
					named.Info(context.Background(), "hello",
						logger.String("key", "value"),
						logger.Int("count", 3),
					)
				}, ShouldNotPanic)
			})
		})

		Convey("When setting the level by name", func() {
			Convey("Then known names are accepted", func() {
				So(logger.SetLevelString("debug"), ShouldBeNil)
				So(logger.SetLevelString("info"), ShouldBeNil)
				So(logger.SetLevelString("warn"), ShouldBeNil)
				So(logger.SetLevelString("warning"), ShouldBeNil)
				So(logger.SetLevelString("ERROR"), ShouldBeNil)
				So(logger.SetLevelString(""), ShouldBeNil)
			})

			Convey("Then unknown names are rejected", func() {
				So(logger.SetLevelString("loud"), ShouldNotBeNil)
			})
		})
	})
}

func TestFields(t *testing.T) {
	Convey("Given the field constructors", t, func() {
		Convey("Then each carries its key and value", func() {
			So(logger.String("s", "v"), ShouldResemble, logger.Field{Key: "s", Value: "v"})
			So(logger.Int("i", 1), ShouldResemble, logger.Field{Key: "i", Value: 1})
			So(logger.Int64("i64", int64(2)), ShouldResemble, logger.Field{Key: "i64", Value: int64(2)})
			So(logger.Float64("f", 0.5), ShouldResemble, logger.Field{Key: "f", Value: 0.5})
			So(logger.Bool("b", true), ShouldResemble, logger.Field{Key: "b", Value: true})
			So(logger.Duration("d", time.Second), ShouldResemble, logger.Field{Key: "d", Value: "1s"})
		})

		Convey("Then the error field uses the conventional key", func() {
			err := errors.New("boom")
			f := logger.Error(err)
			So(f.Key, ShouldEqual, "error")
			So(f.Value, ShouldEqual, err)
		})
	})
}
