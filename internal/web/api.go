package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tzgrid/internal/grid"
	"tzgrid/internal/model"
)

type baseRequest struct {
	Timezone string `json:"timezone"`
	Label    string `json:"label"`
}

type addPersonRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type renamePersonRequest struct {
	Name string `json:"name"`
}

type statusResponse struct {
	Refreshed   bool               `json:"refreshed"`
	LastRefresh *lastRefreshStatus `json:"last_refresh,omitempty"`
}

type lastRefreshStatus struct {
	At          time.Time         `json:"at"`
	Base        model.BaseContext `json:"base"`
	BaseDay     int               `json:"base_day"`
	CurrentHour int               `json:"current_hour"`
	People      int               `json:"people"`
}

// handleStatus reports the last grid computed by the refresh job.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.refresh == nil {
		writeJSON(w, http.StatusOK, statusResponse{})
		return
	}
	g, ok := s.refresh.Last()
	if !ok {
		writeJSON(w, http.StatusOK, statusResponse{})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Refreshed: true,
		LastRefresh: &lastRefreshStatus{
			At:          g.Reference,
			Base:        g.Base,
			BaseDay:     g.BaseDay,
			CurrentHour: g.CurrentHour,
			People:      len(g.Rows),
		},
	})
}

func (s *Server) handleTimezones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Entries())
}

func (s *Server) handleGetBase(w http.ResponseWriter, r *http.Request) {
	base, err := s.roster.Base(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, base)
}

func (s *Server) handlePutBase(w http.ResponseWriter, r *http.Request) {
	var req baseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	base, err := s.roster.SetBase(r.Context(), req.Timezone, req.Label)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, base)
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.roster.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if people == nil {
		people = []model.Person{}
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *Server) handleAddPerson(w http.ResponseWriter, r *http.Request) {
	var req addPersonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p, err := s.roster.Add(r.Context(), req.Name, req.Timezone)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.roster.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRenamePerson(w http.ResponseWriter, r *http.Request) {
	var req renamePersonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p, err := s.roster.Rename(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.roster.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// computeGrid builds the grid for the clock's current instant with the
// reference hour taken from the query string.
func (s *Server) computeGrid(r *http.Request) (grid.Grid, error) {
	ref, err := parseReference(r.URL.Query().Get("reference"))
	if err != nil {
		return grid.Grid{}, err
	}
	state, err := s.roster.State(r.Context(), ref)
	if err != nil {
		return grid.Grid{}, err
	}

	start := time.Now()
	g, err := s.resolver.Compute(s.clock.Now(), state)
	if err != nil {
		return grid.Grid{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveGridBuild(start)
	}
	return g, nil
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	g, err := s.computeGrid(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if g.Rows == nil {
		g.Rows = []model.Row{}
	}
	writeJSON(w, http.StatusOK, g)
}

// handleReferenceICS exports one base hour of today as a calendar event.
//
// GET /api/reference.ics?hour=H
func (s *Server) handleReferenceICS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("hour")
	if raw == "" {
		fail(w, r, fmt.Errorf("%w: hour is required", errBadRequest))
		return
	}
	hour, err := parseReference(raw)
	if err != nil {
		fail(w, r, err)
		return
	}

	state, err := s.roster.State(r.Context(), hour)
	if err != nil {
		fail(w, r, err)
		return
	}
	body, err := s.exporter.ReferenceHour(state, s.clock.Now(), *hour)
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reference-`+strconv.Itoa(*hour)+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
