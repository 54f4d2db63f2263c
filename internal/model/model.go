package model

import "time"

// Person is a single tracked individual on the roster. The timezone is fixed
// at creation; only Name may change afterwards.
type Person struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`

	// Position orders the roster by insertion.
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// BaseContext supplies the anchor timezone for the hour grid, plus an
// optional label shown next to the first hour column.
type BaseContext struct {
	Timezone string `json:"timezone"`
	Label    string `json:"label,omitempty"`
}

// WallClock is an absolute instant as seen on a wall clock in some zone.
type WallClock struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
	Hour   int        `json:"hour"` // 0-23
	Minute int        `json:"minute"`
	Period string     `json:"period"` // "AM" or "PM"
}

// HourCell is one (base hour, person) cell of the grid.
type HourCell struct {
	HourIndex      int       `json:"hour_index"`
	DisplayedTime  string    `json:"displayed_time"`
	Wall           WallClock `json:"wall"`
	IsCurrentHour  bool      `json:"is_current_hour"`
	IsDifferentDay bool      `json:"is_different_day"`
}

// Row holds the 24 cells computed for one person.
type Row struct {
	Person Person     `json:"person"`
	Cells  []HourCell `json:"cells"`
}

// AppState is everything a caller passes in to compute a grid. The reference
// hour is UI state; nil means no column is highlighted.
type AppState struct {
	Base          BaseContext
	People        []Person
	ReferenceHour *int
}
