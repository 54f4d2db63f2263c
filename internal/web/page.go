package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"tzgrid/internal/grid"
	appLog "tzgrid/internal/log"
	"tzgrid/internal/tz"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var gridTemplate = template.Must(template.ParseFS(templateFS, "templates/grid.html.tmpl"))

// gridPage is the view model for templates/grid.html.tmpl.
type gridPage struct {
	BaseZone  string
	BaseLabel string
	Now       string
	Headers   []headerView
	Rows      []rowView
	Empty     bool
}

type headerView struct {
	Label string
	Class string
	// Href toggles this column as the reference hour.
	Href string
}

type rowView struct {
	Name  string
	Zone  string
	Cells []cellView
}

type cellView struct {
	Text  string
	Class string
	Title string
}

func newGridPage(g grid.Grid) gridPage {
	page := gridPage{
		BaseZone:  g.BaseZoneName,
		BaseLabel: g.Base.Label,
		Now:       g.Reference.Format("Mon Jan 2 2006, 3:04 PM"),
		Headers:   make([]headerView, grid.HoursPerDay),
		Rows:      make([]rowView, 0, len(g.Rows)),
		Empty:     len(g.Rows) == 0,
	}

	isRef := func(h int) bool { return g.ReferenceHour != nil && *g.ReferenceHour == h }

	for h := range page.Headers {
		href := "?reference=" + strconv.Itoa(h)
		if isRef(h) {
			href = "?"
		}
		page.Headers[h] = headerView{
			Label: g.HourLabels[h],
			Class: classes("hour-header", h == g.CurrentHour, "current-time", isRef(h), "reference-time"),
			Href:  href,
		}
	}

	for _, row := range g.Rows {
		rv := rowView{
			Name:  row.Person.Name,
			Zone:  tz.DisplayName(row.Person.Timezone),
			Cells: make([]cellView, len(row.Cells)),
		}
		for i, c := range row.Cells {
			rv.Cells[i] = cellView{
				Text: c.DisplayedTime,
				Class: classes("time-cell",
					c.IsCurrentHour, "current-time",
					isRef(c.HourIndex), "reference-time",
					c.IsDifferentDay, "day-change"),
				Title: c.Wall.Month.String()[:3] + " " + strconv.Itoa(c.Wall.Day),
			}
		}
		page.Rows = append(page.Rows, rv)
	}
	return page
}

// classes joins base with each name whose flag is set. Args alternate
// flag, name.
func classes(base string, pairs ...any) string {
	out := []string{base}
	for i := 0; i+1 < len(pairs); i += 2 {
		if on, _ := pairs[i].(bool); on {
			out = append(out, pairs[i+1].(string))
		}
	}
	return strings.Join(out, " ")
}

// handleGridPage renders the grid as static HTML. It is what the capture job
// screenshots, so the root element carries data-ready="true" once rendered.
func (s *Server) handleGridPage(w http.ResponseWriter, r *http.Request) {
	g, err := s.computeGrid(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := gridTemplate.Execute(&buf, newGridPage(g)); err != nil {
		appLog.Error("grid page render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render grid")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
