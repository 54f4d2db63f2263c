package grid

import (
	"fmt"
	"time"

	"tzgrid/internal/model"
	"tzgrid/internal/tz"
)

// Grid is a fully computed view: column headers, the current and reference
// hours, and one row per person.
type Grid struct {
	Base          model.BaseContext `json:"base"`
	BaseZoneName  string            `json:"base_zone_name"`
	Reference     time.Time         `json:"reference"`
	BaseDay       int               `json:"base_day"`
	CurrentHour   int               `json:"current_hour"`
	ReferenceHour *int              `json:"reference_hour"`
	HourLabels    []string          `json:"hour_labels"`
	Rows          []model.Row       `json:"rows"`
}

// Resolver builds grids, looking up person timezones through a Provider.
// It holds no mutable state and may be shared between goroutines.
type Resolver struct {
	zones tz.Provider
}

func NewResolver(zones tz.Provider) *Resolver {
	return &Resolver{zones: zones}
}

// BuildGrid computes one row of 24 cells per person.
//
// The column for the base zone's current hour displays ref itself; every
// other column displays the top of its base hour. A cell is flagged as a
// different day when the displayed instant's day of month in the person's
// zone differs from baseDay.
//
// An unresolvable person timezone fails the whole call.
func (r *Resolver) BuildGrid(ref time.Time, base *time.Location, baseDay int, people []model.Person) ([]model.Row, error) {
	hours := ResolveBaseDayHours(ref, base)
	current := CurrentBaseHourIndex(ref, base)

	rows := make([]model.Row, 0, len(people))
	for _, p := range people {
		loc, err := r.zones.Location(p.Timezone)
		if err != nil {
			return nil, fmt.Errorf("person %s: %w", p.ID, err)
		}

		cells := make([]model.HourCell, HoursPerDay)
		for h := 0; h < HoursPerDay; h++ {
			instant := hours[h]
			if h == current {
				instant = ref
			}
			wall := ProjectToTimezone(instant, loc)
			cells[h] = model.HourCell{
				HourIndex:      h,
				DisplayedTime:  FormatTime(instant, loc),
				Wall:           wall,
				IsCurrentHour:  h == current,
				IsDifferentDay: wall.Day != baseDay,
			}
		}
		rows = append(rows, model.Row{Person: p, Cells: cells})
	}
	return rows, nil
}

// Compute builds a complete Grid for state at ref.
func (r *Resolver) Compute(ref time.Time, state model.AppState) (Grid, error) {
	base, err := r.zones.Location(state.Base.Timezone)
	if err != nil {
		return Grid{}, fmt.Errorf("base: %w", err)
	}
	if state.ReferenceHour != nil && (*state.ReferenceHour < 0 || *state.ReferenceHour >= HoursPerDay) {
		return Grid{}, fmt.Errorf("reference hour %d out of range", *state.ReferenceHour)
	}

	baseDay := BaseDayNumber(ref, base)
	rows, err := r.BuildGrid(ref, base, baseDay, state.People)
	if err != nil {
		return Grid{}, err
	}

	labels := make([]string, HoursPerDay)
	for h := range labels {
		labels[h] = HourLabel(h)
	}

	return Grid{
		Base:          state.Base,
		BaseZoneName:  tz.DisplayName(state.Base.Timezone),
		Reference:     ref.In(base),
		BaseDay:       baseDay,
		CurrentHour:   CurrentBaseHourIndex(ref, base),
		ReferenceHour: state.ReferenceHour,
		HourLabels:    labels,
		Rows:          rows,
	}, nil
}

// ReferenceInstant is the top of the given base hour on ref's base day.
func ReferenceInstant(ref time.Time, base *time.Location, hour int) time.Time {
	return ResolveBaseDayHours(ref, base)[hour]
}
