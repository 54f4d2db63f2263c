package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"tzgrid/internal/grid"
	"tzgrid/internal/model"
	"tzgrid/internal/tz"
)

const productID = "-//tzgrid//reference hour//EN"

// Exporter renders the highlighted reference hour as an iCalendar document so
// it can be dropped into a calendar client. It produces a single,
// non-recurring, one-hour VEVENT.
type Exporter struct {
	zones tz.Provider
}

func NewExporter(zones tz.Provider) *Exporter {
	return &Exporter{zones: zones}
}

// ReferenceHour builds a VCALENDAR for the given base hour of ref's base day.
// The description lists every person's wall-clock time at the event start.
func (e *Exporter) ReferenceHour(state model.AppState, ref time.Time, hour int) ([]byte, error) {
	if hour < 0 || hour >= grid.HoursPerDay {
		return nil, fmt.Errorf("ics: reference hour %d out of range", hour)
	}
	base, err := e.zones.Location(state.Base.Timezone)
	if err != nil {
		return nil, fmt.Errorf("ics: base: %w", err)
	}

	start := grid.ReferenceInstant(ref, base, hour)
	end := start.Add(time.Hour)

	var desc strings.Builder
	for _, p := range state.People {
		loc, err := e.zones.Location(p.Timezone)
		if err != nil {
			return nil, fmt.Errorf("ics: person %s: %w", p.ID, err)
		}
		fmt.Fprintf(&desc, "%s (%s): %s %s\n",
			p.Name, tz.DisplayName(p.Timezone),
			grid.FormatTime(start, loc), start.In(loc).Format("Mon Jan 2"))
	}

	summary := "Reference hour " + grid.HourLabel(hour) + " " + tz.DisplayName(state.Base.Timezone)
	if state.Base.Label != "" {
		summary += " (" + state.Base.Label + ")"
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	uid := fmt.Sprintf("%s-%s@tzgrid", start.UTC().Format("20060102T150405Z"),
		strings.ReplaceAll(state.Base.Timezone, "/", "-"))
	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(ref.UTC())
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetSummary(summary)
	if desc.Len() > 0 {
		ev.SetDescription(strings.TrimRight(desc.String(), "\n"))
	}

	return []byte(cal.Serialize()), nil
}
