// Package timeutil provides the timezone-aware helpers shared by the
// adapters. All displayed clock times are rendered in the configured
// display zone, 24-hour HH:MM.
package timeutil

import (
	"time"

	appLog "kindledash/internal/log"
)

// LoadLocationOrLocal resolves an IANA timezone name, falling back to
// time.Local when the name is empty or unknown.
func LoadLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

// Clock formats t as HH:MM in loc.
func Clock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// SameLocalDay reports whether a and b fall on the same calendar date in
// loc. This must be computed from timezone-converted calendar fields, not
// from instant arithmetic: two instants more than 12 hours apart can still
// share a local date.
func SameLocalDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DayLabel returns "Today", "Tomorrow", or a "Mon, 2 Jan" style label for t
// relative to now, judged by local calendar date in loc.
func DayLabel(t, now time.Time, loc *time.Location) string {
	if SameLocalDay(t, now, loc) {
		return "Today"
	}
	if SameLocalDay(t, now.In(loc).AddDate(0, 0, 1), loc) {
		return "Tomorrow"
	}
	return t.In(loc).Format("Mon, 2 Jan")
}
