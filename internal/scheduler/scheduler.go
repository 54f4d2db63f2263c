// Package scheduler drives the periodic refresh: recompute the grid, note
// base-hour rollovers, and re-capture the preview image.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"tzgrid/internal/capture"
	"tzgrid/internal/grid"
	appLog "tzgrid/internal/log"
	"tzgrid/internal/metrics"
	"tzgrid/internal/model"
)

// StateSource supplies the application state; *roster.Service satisfies it.
type StateSource interface {
	State(ctx context.Context, referenceHour *int) (model.AppState, error)
}

// Refresher performs one refresh per Tick.
type Refresher struct {
	clock    clockwork.Clock
	state    StateSource
	resolver *grid.Resolver
	metrics  *metrics.Metrics

	capturer    capture.Capturer
	captureOpts *capture.Options

	mu       sync.Mutex
	lastKey  string
	lastGrid grid.Grid
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithCapture enables the screenshot step.
func WithCapture(c capture.Capturer, opts capture.Options) RefresherOption {
	return func(r *Refresher) {
		r.capturer = c
		r.captureOpts = &opts
	}
}

func NewRefresher(clock clockwork.Clock, state StateSource, resolver *grid.Resolver, m *metrics.Metrics, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		clock:    clock,
		state:    state,
		resolver: resolver,
		metrics:  m,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tick recomputes the grid at the clock's current instant. A capture failure
// is logged and returned, but the grid is still recorded.
func (r *Refresher) Tick(ctx context.Context) error {
	state, err := r.state.State(ctx, nil)
	if err != nil {
		return fmt.Errorf("refresh: load state: %w", err)
	}

	start := time.Now()
	g, err := r.resolver.Compute(r.clock.Now(), state)
	if err != nil {
		return fmt.Errorf("refresh: compute grid: %w", err)
	}
	if r.metrics != nil {
		r.metrics.ObserveGridBuild(start)
		r.metrics.SetRosterSize(len(state.People))
	}

	key := fmt.Sprintf("%s|%s|%02d", state.Base.Timezone, g.Reference.Format("2006-01-02"), g.CurrentHour)
	r.mu.Lock()
	rolled := r.lastKey != "" && r.lastKey != key
	r.lastKey = key
	r.lastGrid = g
	r.mu.Unlock()

	if rolled {
		appLog.Info("base hour rolled over",
			"base", state.Base.Timezone,
			"hour", g.CurrentHour,
			"day", g.BaseDay,
			"people", len(state.People),
		)
	} else {
		appLog.Debug("grid refreshed", "base", state.Base.Timezone, "hour", g.CurrentHour)
	}

	if r.capturer == nil || r.captureOpts == nil {
		return nil
	}
	err = r.capturer.Capture(ctx, *r.captureOpts)
	if r.metrics != nil {
		r.metrics.IncrementCapture(err)
	}
	if err != nil {
		appLog.Error("preview capture failed", err, "url", r.captureOpts.URL)
		return err
	}
	appLog.Debug("preview captured", "output", r.captureOpts.OutputPath)
	return nil
}

// Last returns the most recently computed grid and whether one exists.
func (r *Refresher) Last() (grid.Grid, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastGrid, r.lastKey != ""
}

// specParser accepts six-field expressions with a leading seconds field.
var specParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs a Refresher on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	schedule  cron.Schedule
	refresher *Refresher
}

// New parses spec (six fields, seconds first). Overlapping ticks are skipped
// rather than queued.
func New(spec string, r *Refresher) (*Scheduler, error) {
	schedule, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid refresh spec %q: %w", spec, err)
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithParser(specParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return &Scheduler{cron: c, schedule: schedule, refresher: r}, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// a running tick to finish. Ticks run under ctx, so cancelling it also
// aborts an in-flight capture.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.refresher.Tick(ctx); err != nil {
			appLog.Error("refresh tick failed", err)
		}
	}))
	s.cron.Start()
	appLog.Info("scheduler started", "entries", len(s.cron.Entries()))

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	appLog.Info("scheduler stopped")
	return nil
}

// cronLogger adapts robfig/cron logging to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
