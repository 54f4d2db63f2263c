package ics

import (
	"bytes"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tzgrid/internal/model"
	"tzgrid/internal/tz"
)

func TestReferenceHourExport(t *testing.T) {
	e := NewExporter(tz.NewDatabase())
	ref := time.Date(2024, time.January, 16, 0, 30, 0, 0, time.UTC)
	state := model.AppState{
		Base: model.BaseContext{Timezone: "Asia/Tokyo", Label: "Tokyo office"},
		People: []model.Person{
			{ID: "1", Name: "Sam", Timezone: "America/Los_Angeles"},
			{ID: "2", Name: "Ana", Timezone: "Asia/Kolkata"},
		},
	}

	body, err := e.ReferenceHour(state, ref, 10)
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)
	ev := events[0]

	start, err := ev.GetStartAt()
	require.NoError(t, err)
	end, err := ev.GetEndAt()
	require.NoError(t, err)

	// 10:00 in Tokyo on the 16th.
	assert.True(t, time.Date(2024, time.January, 16, 1, 0, 0, 0, time.UTC).Equal(start), "start %s", start)
	assert.Equal(t, time.Hour, end.Sub(start))

	summary := ev.GetProperty(ical.ComponentPropertySummary)
	require.NotNil(t, summary)
	assert.Contains(t, summary.Value, "10 AM")
	assert.Contains(t, summary.Value, "Asia/Tokyo")
	assert.Contains(t, summary.Value, "Tokyo office")

	desc := ev.GetProperty(ical.ComponentPropertyDescription)
	require.NotNil(t, desc)
	assert.Contains(t, desc.Value, "Sam (America/Los Angeles): 5:00 PM Mon Jan 15")
	assert.Contains(t, desc.Value, "Ana (Asia/Kolkata): 6:30 AM Tue Jan 16")

	assert.Nil(t, ev.GetProperty(ical.ComponentPropertyRrule))
}

func TestReferenceHourExportErrors(t *testing.T) {
	e := NewExporter(tz.NewDatabase())
	ref := time.Date(2024, time.January, 16, 0, 30, 0, 0, time.UTC)

	_, err := e.ReferenceHour(model.AppState{Base: model.BaseContext{Timezone: "UTC"}}, ref, 24)
	assert.Error(t, err)

	_, err = e.ReferenceHour(model.AppState{Base: model.BaseContext{Timezone: "Bad/Zone"}}, ref, 3)
	assert.ErrorIs(t, err, tz.ErrInvalidTimezone)

	_, err = e.ReferenceHour(model.AppState{
		Base:   model.BaseContext{Timezone: "UTC"},
		People: []model.Person{{ID: "x", Name: "X", Timezone: "Bad/Zone"}},
	}, ref, 3)
	assert.ErrorIs(t, err, tz.ErrInvalidTimezone)
}

func TestReferenceHourExportEmptyRoster(t *testing.T) {
	e := NewExporter(tz.NewDatabase())
	body, err := e.ReferenceHour(model.AppState{Base: model.BaseContext{Timezone: "UTC"}},
		time.Date(2024, time.January, 15, 14, 37, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VEVENT")
	assert.Contains(t, string(body), "DTSTART:20240115T000000Z")
}
