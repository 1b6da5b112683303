// Package schedule provides calendar-window predicates that gate when the
// monitors are allowed to run.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// daysScanned bounds the lookahead when computing the next window opening.
const daysScanned = 8

// Window describes a recurring time-of-day window on selected weekdays in
// a fixed location. The zero value is an always-open window in UTC.
type Window struct {
	days       map[time.Weekday]struct{} // empty means every day
	startHour  int
	startMin   int
	endHour    int
	endMin     int
	loc        *time.Location
	restricted bool
}

// Option applies a configuration option to a Window.
type Option func(*Window)

// WithDays restricts the window to the given weekdays.
func WithDays(days []time.Weekday) Option {
	return func(w *Window) {
		for _, d := range days {
			w.days[d] = struct{}{}
		}
	}
}

// WithSpan sets the daily start and end times. The end is exclusive.
func WithSpan(startHour, startMin, endHour, endMin int) Option {
	return func(w *Window) {
		w.startHour, w.startMin = startHour, startMin
		w.endHour, w.endMin = endHour, endMin
		w.restricted = true
	}
}

// WithLocation sets the timezone the window is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(w *Window) {
		if loc != nil {
			w.loc = loc
		}
	}
}

// New builds a Window. Without options the window is always open.
func New(opts ...Option) Window {
	w := Window{
		days: make(map[time.Weekday]struct{}),
		loc:  time.UTC,
	}
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.restricted && len(w.days) == 0 {
		return true
	}
	local := t.In(w.loc)
	if len(w.days) > 0 {
		if _, ok := w.days[local.Weekday()]; !ok {
			return false
		}
	}
	if !w.restricted {
		return true
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= w.startHour*60+w.startMin && minutes < w.endHour*60+w.endMin
}

// UntilNextOpen returns how long from t until the window next opens, or
// zero when t is already inside the window. Returns zero as well for the
// degenerate case of a window that never opens within the scan horizon.
func (w Window) UntilNextOpen(t time.Time) time.Duration {
	if w.Contains(t) {
		return 0
	}
	local := t.In(w.loc)
	for offset := 0; offset < daysScanned; offset++ {
		day := local.AddDate(0, 0, offset)
		if len(w.days) > 0 {
			if _, ok := w.days[day.Weekday()]; !ok {
				continue
			}
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), w.startHour, w.startMin, 0, 0, w.loc)
		if start.After(local) {
			return start.Sub(local)
		}
	}
	return 0
}

// String renders a human-readable description for status reporting.
func (w Window) String() string {
	if !w.restricted && len(w.days) == 0 {
		return "always open"
	}
	days := "every day"
	if len(w.days) > 0 {
		names := make([]string, 0, len(w.days))
		for d := range w.days {
			names = append(names, d.String())
		}
		sort.Strings(names)
		days = strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s %02d:%02d-%02d:%02d %s",
		days, w.startHour, w.startMin, w.endHour, w.endMin, w.loc)
}
