package roster_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"tzgrid/internal/model"
	"tzgrid/internal/roster"
	"tzgrid/internal/roster/sqlite"
	"tzgrid/internal/tz"
)

type ServiceSuite struct {
	suite.Suite

	ctx     context.Context
	store   *sqlite.SQLiteStore
	catalog *tz.Catalog
	clock   *clockwork.FakeClock
	svc     *roster.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()

	store, err := sqlite.New(filepath.Join(s.T().TempDir(), "roster.db"))
	s.Require().NoError(err)
	s.store = store

	catalog, err := tz.NewCatalog(tz.NewDatabase(), []string{"UTC", "Asia/Tokyo", "America/Los_Angeles"})
	s.Require().NoError(err)
	s.catalog = catalog

	s.clock = clockwork.NewFakeClockAt(time.Date(2024, time.January, 15, 14, 37, 0, 0, time.UTC))

	svc, err := roster.NewService(store, catalog, model.BaseContext{Timezone: "UTC", Label: "  HQ "}, s.clock)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *ServiceSuite) TestNewServiceRejectsInvalidDefault() {
	_, err := roster.NewService(s.store, s.catalog, model.BaseContext{Timezone: "Europe/Paris"}, s.clock)
	s.ErrorIs(err, tz.ErrInvalidTimezone)
}

func (s *ServiceSuite) TestAdd() {
	p, err := s.svc.Add(s.ctx, "  Kenji  ", "Asia/Tokyo")
	s.Require().NoError(err)
	s.Equal("Kenji", p.Name)
	s.Equal("Asia/Tokyo", p.Timezone)
	s.NotEmpty(p.ID)
	s.True(s.clock.Now().Equal(p.CreatedAt))

	_, err = s.svc.Add(s.ctx, "   ", "Asia/Tokyo")
	s.ErrorIs(err, roster.ErrEmptyName)

	_, err = s.svc.Add(s.ctx, "Pierre", "Europe/Paris")
	s.ErrorIs(err, tz.ErrInvalidTimezone)

	_, err = s.svc.Add(s.ctx, "Nobody", "")
	s.ErrorIs(err, tz.ErrInvalidTimezone)

	people, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Len(people, 1)
}

func (s *ServiceSuite) TestRenameKeepsTimezone() {
	p, err := s.svc.Add(s.ctx, "Sam", "America/Los_Angeles")
	s.Require().NoError(err)

	renamed, err := s.svc.Rename(s.ctx, p.ID, " Samantha ")
	s.Require().NoError(err)
	s.Equal("Samantha", renamed.Name)
	s.Equal("America/Los_Angeles", renamed.Timezone)

	_, err = s.svc.Rename(s.ctx, p.ID, "")
	s.ErrorIs(err, roster.ErrEmptyName)

	_, err = s.svc.Rename(s.ctx, "missing", "x")
	s.ErrorIs(err, roster.ErrNotFound)
}

func (s *ServiceSuite) TestDelete() {
	p, err := s.svc.Add(s.ctx, "Sam", "UTC")
	s.Require().NoError(err)

	got, err := s.svc.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Sam", got.Name)

	s.Require().NoError(s.svc.Delete(s.ctx, p.ID))
	s.ErrorIs(s.svc.Delete(s.ctx, p.ID), roster.ErrNotFound)

	_, err = s.svc.Get(s.ctx, p.ID)
	s.ErrorIs(err, roster.ErrNotFound)

	people, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(people)
}

func (s *ServiceSuite) TestBase() {
	base, err := s.svc.Base(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.BaseContext{Timezone: "UTC", Label: "HQ"}, base)

	base, err = s.svc.SetBase(s.ctx, "Asia/Tokyo", " Tokyo ")
	s.Require().NoError(err)
	s.Equal(model.BaseContext{Timezone: "Asia/Tokyo", Label: "Tokyo"}, base)

	got, err := s.svc.Base(s.ctx)
	s.Require().NoError(err)
	s.Equal(base, got)

	_, err = s.svc.SetBase(s.ctx, "Mars/Base", "")
	s.ErrorIs(err, tz.ErrInvalidTimezone)
}

func (s *ServiceSuite) TestBaseFallsBackWhenStoredZoneLeavesCatalog() {
	s.Require().NoError(s.store.SetBase(s.ctx, model.BaseContext{Timezone: "Europe/Paris", Label: "Paris"}))

	base, err := s.svc.Base(s.ctx)
	s.Require().NoError(err)
	s.Equal("UTC", base.Timezone)
}

func (s *ServiceSuite) TestState() {
	_, err := s.svc.Add(s.ctx, "A", "UTC")
	s.Require().NoError(err)
	_, err = s.svc.Add(s.ctx, "B", "Asia/Tokyo")
	s.Require().NoError(err)

	ref := 7
	state, err := s.svc.State(s.ctx, &ref)
	s.Require().NoError(err)
	s.Equal("UTC", state.Base.Timezone)
	s.Len(state.People, 2)
	s.Equal("A", state.People[0].Name)
	s.Require().NotNil(state.ReferenceHour)
	s.Equal(7, *state.ReferenceHour)
}
