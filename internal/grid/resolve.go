// Package grid computes the 24-hour timezone grid: for each local hour of the
// base zone's current day, the wall-clock time of every person on the roster.
//
// Everything here is a pure function of its inputs. Local times are resolved
// directly from the timezone rules; nothing probes candidate offsets.
package grid

import (
	"fmt"
	"time"

	"tzgrid/internal/model"
	"tzgrid/internal/tz"
)

// HoursPerDay is the number of base-hour columns in a grid.
const HoursPerDay = 24

const (
	timeLayout  = "3:04 PM"
	labelLayout = "3 PM"

	// transitionWindow brackets a wall time when sampling the offsets in
	// effect before and after it. Real offsets stay within [-12h, +14h], so
	// one day on either side always lands outside the transition itself.
	transitionWindow = 24 * time.Hour
)

// Resolution describes how a local wall time mapped to an instant.
type Resolution int

const (
	// Exact: the wall time occurs exactly once.
	Exact Resolution = iota
	// Nonexistent: the wall time falls in a spring-forward gap and was
	// resolved with the offset in effect after the transition.
	Nonexistent
	// Ambiguous: the wall time repeats at a fall-back transition and the
	// first occurrence was chosen.
	Ambiguous
)

func (r Resolution) String() string {
	switch r {
	case Exact:
		return "exact"
	case Nonexistent:
		return "nonexistent"
	case Ambiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
}

// ResolveLocalHour returns the instant at which the wall clock in loc reads
// hour:00 on the given date.
//
// Gaps resolve with the post-transition offset, overlaps with the earlier of
// the two instants. time.Date leaves both cases unspecified, so they are
// decided here explicitly.
func ResolveLocalHour(year int, month time.Month, day, hour int, loc *time.Location) (time.Time, Resolution) {
	wall := time.Date(year, month, day, hour, 0, 0, 0, time.UTC)

	before := tz.Offset(loc, wall.Add(-transitionWindow))
	after := tz.Offset(loc, wall.Add(transitionWindow))

	early := wall.Add(-before)
	if before == after {
		return early.In(loc), Exact
	}
	late := wall.Add(-after)

	earlyOK := tz.Offset(loc, early) == before
	lateOK := tz.Offset(loc, late) == after

	switch {
	case earlyOK && lateOK:
		if late.Before(early) {
			return late.In(loc), Ambiguous
		}
		return early.In(loc), Ambiguous
	case earlyOK:
		return early.In(loc), Exact
	case lateOK:
		return late.In(loc), Exact
	default:
		return late.In(loc), Nonexistent
	}
}

// ResolveBaseDayHours returns one instant per local hour 0..23 of the base
// zone's calendar day containing ref.
func ResolveBaseDayHours(ref time.Time, base *time.Location) [HoursPerDay]time.Time {
	var out [HoursPerDay]time.Time
	y, m, d := ref.In(base).Date()
	for h := 0; h < HoursPerDay; h++ {
		out[h], _ = ResolveLocalHour(y, m, d, h, base)
	}
	return out
}

// ProjectToTimezone reads instant off a wall clock in loc.
func ProjectToTimezone(instant time.Time, loc *time.Location) model.WallClock {
	local := instant.In(loc)
	period := "AM"
	if local.Hour() >= 12 {
		period = "PM"
	}
	return model.WallClock{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
		Period: period,
	}
}

// FormatTime renders instant as "h:mm AM" in loc.
func FormatTime(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format(timeLayout)
}

// CurrentBaseHourIndex is the base zone's local hour at ref.
func CurrentBaseHourIndex(ref time.Time, base *time.Location) int {
	return ref.In(base).Hour()
}

// BaseDayNumber is the base zone's day of month at ref.
func BaseDayNumber(ref time.Time, base *time.Location) int {
	return ref.In(base).Day()
}

// HourLabel renders a column header such as "12 AM" or "3 PM".
func HourLabel(hour int) string {
	return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format(labelLayout)
}
