package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	appLog "tzgrid/internal/log"
	"tzgrid/internal/model"
)

// Validator checks timezone identifiers at input time. *tz.Catalog satisfies it.
type Validator interface {
	Validate(id string) (*time.Location, error)
}

// Service applies roster rules on top of a Store: names are trimmed and
// required, timezones must be selectable, and a person's timezone never
// changes after creation.
type Service struct {
	store    Store
	zones    Validator
	defaults model.BaseContext
	clock    clockwork.Clock
}

// NewService wires a Service. defaults is the base context used until one is
// stored; it must itself be valid for zones.
func NewService(store Store, zones Validator, defaults model.BaseContext, clock clockwork.Clock) (*Service, error) {
	if _, err := zones.Validate(defaults.Timezone); err != nil {
		return nil, fmt.Errorf("default base: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	defaults.Label = strings.TrimSpace(defaults.Label)
	return &Service{store: store, zones: zones, defaults: defaults, clock: clock}, nil
}

// Add creates a person at the end of the roster.
func (s *Service) Add(ctx context.Context, name, timezone string) (*model.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, err := s.zones.Validate(timezone); err != nil {
		return nil, err
	}

	p := &model.Person{
		Name:      name,
		Timezone:  timezone,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.store.CreatePerson(ctx, p); err != nil {
		return nil, err
	}
	appLog.Info("person added", "id", p.ID, "timezone", p.Timezone)
	return p, nil
}

// Rename changes a person's display name.
func (s *Service) Rename(ctx context.Context, id, name string) (*model.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if err := s.store.RenamePerson(ctx, id, name); err != nil {
		return nil, err
	}
	return s.store.GetPerson(ctx, id)
}

// Delete removes a person.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePerson(ctx, id); err != nil {
		return err
	}
	appLog.Info("person deleted", "id", id)
	return nil
}

// Get returns a single person.
func (s *Service) Get(ctx context.Context, id string) (*model.Person, error) {
	return s.store.GetPerson(ctx, id)
}

// List returns the roster in insertion order.
func (s *Service) List(ctx context.Context) ([]model.Person, error) {
	return s.store.ListPeople(ctx)
}

// Base returns the stored base context, or the configured default when none
// is stored or the stored zone is no longer selectable.
func (s *Service) Base(ctx context.Context) (model.BaseContext, error) {
	base, ok, err := s.store.GetBase(ctx)
	if err != nil {
		return model.BaseContext{}, err
	}
	if !ok {
		return s.defaults, nil
	}
	if _, err := s.zones.Validate(base.Timezone); err != nil {
		appLog.Warn("stored base timezone no longer selectable; using default",
			"stored", base.Timezone, "default", s.defaults.Timezone)
		return s.defaults, nil
	}
	return base, nil
}

// SetBase validates and stores a new base context.
func (s *Service) SetBase(ctx context.Context, timezone, label string) (model.BaseContext, error) {
	if _, err := s.zones.Validate(timezone); err != nil {
		return model.BaseContext{}, err
	}
	base := model.BaseContext{Timezone: timezone, Label: strings.TrimSpace(label)}
	if err := s.store.SetBase(ctx, base); err != nil {
		return model.BaseContext{}, err
	}
	appLog.Info("base timezone changed", "timezone", base.Timezone, "label", base.Label)
	return base, nil
}

// State snapshots everything a grid computation needs.
func (s *Service) State(ctx context.Context, referenceHour *int) (model.AppState, error) {
	base, err := s.Base(ctx)
	if err != nil {
		return model.AppState{}, err
	}
	people, err := s.List(ctx)
	if err != nil {
		return model.AppState{}, err
	}
	return model.AppState{Base: base, People: people, ReferenceHour: referenceHour}, nil
}
