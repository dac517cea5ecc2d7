package keys

import (
	"strings"
	"time"
)

// Location resolves an IANA zone name, falling back to UTC.
func Location(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DayIndex is the 1-based calendar-day position of now within a goal that
// started at createdAt, evaluated in loc. It never decreases as now advances
// and is clamped to 1 when now precedes createdAt.
func DayIndex(createdAt, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	days := calendarDays(createdAt.In(loc), now.In(loc))
	if days < 0 {
		return 1
	}
	return days + 1
}

func calendarDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// RollupDay is the UTC calendar day key used for spend rollups.
func RollupDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
