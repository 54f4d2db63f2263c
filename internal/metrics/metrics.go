package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for grid computation, the roster, the
// refresh job and the HTTP surface.
type Metrics struct {
	GridBuilds        prometheus.Counter
	GridBuildDuration prometheus.Histogram
	RosterSize        prometheus.Gauge
	Captures          *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// New registers all metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GridBuilds: f.NewCounter(prometheus.CounterOpts{
			Name: "tzgrid_grid_builds_total",
			Help: "Total number of hour grids computed",
		}),
		GridBuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tzgrid_grid_build_duration_seconds",
			Help:    "Duration of hour grid computation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		RosterSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "tzgrid_roster_people",
			Help: "Number of people on the roster at the last refresh",
		}),
		Captures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tzgrid_captures_total",
			Help: "Preview captures by result",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tzgrid_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"route", "status"}),
	}
}

// ObserveGridBuild records one grid computation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveGridBuild(start time.Time) {
	m.GridBuilds.Inc()
	m.GridBuildDuration.Observe(time.Since(start).Seconds())
}

// SetRosterSize records the current roster length.
func (m *Metrics) SetRosterSize(n int) {
	m.RosterSize.Set(float64(n))
}

// IncrementCapture records a capture attempt.
func (m *Metrics) IncrementCapture(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Captures.WithLabelValues(result).Inc()
}

// IncrementRequest records a served HTTP request.
func (m *Metrics) IncrementRequest(route string, status int) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
