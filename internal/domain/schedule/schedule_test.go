package schedule_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/fragdrop/fragwatch/internal/domain/schedule"
)

func TestWindowContains(t *testing.T) {
	Convey("Given an unrestricted window", t, func() {
		w := schedule.New()

		Convey("Then every instant is inside it", func() {
			So(w.Contains(time.Now()), ShouldBeTrue)
			So(w.UntilNextOpen(time.Now()), ShouldEqual, 0)
			So(w.String(), ShouldEqual, "always open")
		})
	})

	Convey("Given a Friday afternoon window in New York", t, func() {
		loc, err := time.LoadLocation("America/New_York")
		So(err, ShouldBeNil)

		w := schedule.New(
			schedule.WithDays([]time.Weekday{time.Friday}),
			schedule.WithSpan(12, 0, 17, 0),
			schedule.WithLocation(loc),
		)

		// 2026-01-02 is a Friday.
		friday := func(hour, minute int) time.Time {
			return time.Date(2026, 1, 2, hour, minute, 0, 0, loc)
		}

		Convey("When the time is inside the span on the right day", func() {
			So(w.Contains(friday(12, 0)), ShouldBeTrue)
			So(w.Contains(friday(14, 30)), ShouldBeTrue)
		})

		Convey("When the time is at the exclusive end", func() {
			So(w.Contains(friday(17, 0)), ShouldBeFalse)
		})

		Convey("When the time is before the span", func() {
			So(w.Contains(friday(11, 59)), ShouldBeFalse)
		})

		Convey("When the day is wrong", func() {
			saturday := time.Date(2026, 1, 3, 13, 0, 0, 0, loc)
			So(w.Contains(saturday), ShouldBeFalse)
		})

		Convey("When the instant is expressed in another zone", func() {
			// 18:00 UTC on that Friday is 13:00 in New York.
			utc := time.Date(2026, 1, 2, 18, 0, 0, 0, time.UTC)
			So(w.Contains(utc), ShouldBeTrue)
		})
	})
}

func TestWindowUntilNextOpen(t *testing.T) {
	Convey("Given a daily morning window", t, func() {
		w := schedule.New(schedule.WithSpan(9, 0, 12, 0))

		Convey("When asked before today's opening", func() {
			at := time.Date(2026, 1, 2, 7, 0, 0, 0, time.UTC)
			So(w.UntilNextOpen(at), ShouldEqual, 2*time.Hour)
		})

		Convey("When asked inside the window", func() {
			at := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
			So(w.UntilNextOpen(at), ShouldEqual, 0)
		})

		Convey("When asked after today's closing", func() {
			at := time.Date(2026, 1, 2, 13, 0, 0, 0, time.UTC)
			So(w.UntilNextOpen(at), ShouldEqual, 20*time.Hour)
		})
	})

	Convey("Given a single-weekday window", t, func() {
		w := schedule.New(
			schedule.WithDays([]time.Weekday{time.Friday}),
			schedule.WithSpan(12, 0, 17, 0),
		)

		Convey("When asked on the preceding Monday", func() {
			// 2025-12-29 is a Monday.
			at := time.Date(2025, 12, 29, 12, 0, 0, 0, time.UTC)
			So(w.UntilNextOpen(at), ShouldEqual, 4*24*time.Hour)
		})
	})
}
