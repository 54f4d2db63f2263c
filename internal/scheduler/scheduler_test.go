package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tzgrid/internal/capture"
	"tzgrid/internal/grid"
	"tzgrid/internal/metrics"
	"tzgrid/internal/model"
	"tzgrid/internal/tz"
)

type fakeState struct {
	state model.AppState
	err   error
}

func (f *fakeState) State(_ context.Context, ref *int) (model.AppState, error) {
	s := f.state
	s.ReferenceHour = ref
	return s, f.err
}

type fakeCapturer struct {
	calls []capture.Options
	err   error
}

func (f *fakeCapturer) Capture(_ context.Context, opts capture.Options) error {
	f.calls = append(f.calls, opts)
	return f.err
}

func newRefresher(t *testing.T, clock clockwork.Clock, src StateSource, opts ...RefresherOption) (*Refresher, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return NewRefresher(clock, src, grid.NewResolver(tz.NewDatabase()), m, opts...), m
}

func TestRefresherTick(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.January, 15, 14, 37, 0, 0, time.UTC))
	src := &fakeState{state: model.AppState{
		Base:   model.BaseContext{Timezone: "Asia/Tokyo"},
		People: []model.Person{{ID: "1", Name: "Sam", Timezone: "America/Los_Angeles"}},
	}}
	r, m := newRefresher(t, clock, src)

	_, ok := r.Last()
	assert.False(t, ok)

	require.NoError(t, r.Tick(context.Background()))
	g, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, 23, g.CurrentHour)
	assert.Equal(t, 15, g.BaseDay)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GridBuilds))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RosterSize))

	// Crossing midnight in Tokyo moves to a new base day.
	clock.Advance(30 * time.Minute)
	require.NoError(t, r.Tick(context.Background()))
	g, _ = r.Last()
	assert.Equal(t, 0, g.CurrentHour)
	assert.Equal(t, 16, g.BaseDay)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GridBuilds))
}

func TestRefresherTickErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()

	r, _ := newRefresher(t, clock, &fakeState{err: errors.New("db down")})
	assert.ErrorContains(t, r.Tick(context.Background()), "db down")

	r, _ = newRefresher(t, clock, &fakeState{state: model.AppState{Base: model.BaseContext{Timezone: "Nope/Nope"}}})
	assert.ErrorIs(t, r.Tick(context.Background()), tz.ErrInvalidTimezone)
}

func TestRefresherCapture(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.January, 15, 14, 37, 0, 0, time.UTC))
	src := &fakeState{state: model.AppState{Base: model.BaseContext{Timezone: "UTC"}}}
	opts := capture.Options{URL: "http://127.0.0.1:8080/grid", OutputPath: "preview.png"}

	fc := &fakeCapturer{}
	r, m := newRefresher(t, clock, src, WithCapture(fc, opts))
	require.NoError(t, r.Tick(context.Background()))
	require.Len(t, fc.calls, 1)
	assert.Equal(t, opts, fc.calls[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Captures.WithLabelValues("ok")))

	fc.err = errors.New("no chromium")
	assert.Error(t, r.Tick(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Captures.WithLabelValues("error")))

	// The grid is recorded even when capture fails.
	_, ok := r.Last()
	assert.True(t, ok)
}

func TestSchedulerCronExpression(t *testing.T) {
	r, _ := newRefresher(t, clockwork.NewFakeClock(), &fakeState{state: model.AppState{Base: model.BaseContext{Timezone: "UTC"}}})

	_, err := New("every now and then", r)
	assert.Error(t, err)

	// Five-field specs are rejected; seconds are required.
	_, err = New("*/5 * * * *", r)
	assert.Error(t, err)

	s, err := New("*/30 * * * * *", r)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

// blockingCapturer holds every capture open until its context ends.
type blockingCapturer struct {
	started chan struct{}
}

func (b *blockingCapturer) Capture(ctx context.Context, _ capture.Options) error {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRefresherWithoutMetrics(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.January, 15, 14, 37, 0, 0, time.UTC))
	src := &fakeState{state: model.AppState{Base: model.BaseContext{Timezone: "UTC"}}}
	fc := &fakeCapturer{}

	r := NewRefresher(clock, src, grid.NewResolver(tz.NewDatabase()), nil,
		WithCapture(fc, capture.Options{URL: "http://127.0.0.1:8080/grid", OutputPath: "preview.png"}))
	require.NoError(t, r.Tick(context.Background()))
	assert.Len(t, fc.calls, 1)
}

func TestSchedulerCancelAbortsRunningTick(t *testing.T) {
	src := &fakeState{state: model.AppState{Base: model.BaseContext{Timezone: "UTC"}}}
	bc := &blockingCapturer{started: make(chan struct{}, 1)}
	r := NewRefresher(clockwork.NewFakeClock(), src, grid.NewResolver(tz.NewDatabase()), nil,
		WithCapture(bc, capture.Options{URL: "http://127.0.0.1:8080/grid", OutputPath: "preview.png"}))

	s, err := New("* * * * * *", r)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-bc.started:
	case <-time.After(5 * time.Second):
		t.Fatal("tick never reached capture")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler waited on a cancelled capture")
	}
}
