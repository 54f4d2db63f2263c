package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tzgrid/internal/config"
	"tzgrid/internal/grid"
	"tzgrid/internal/ics"
	appLog "tzgrid/internal/log"
	"tzgrid/internal/metrics"
	"tzgrid/internal/roster"
	"tzgrid/internal/tz"
)

// errBadRequest marks malformed input that is not covered by a domain error.
var errBadRequest = errors.New("bad request")

// RefreshStatus reports the outcome of the background refresh job;
// *scheduler.Refresher satisfies it.
type RefreshStatus interface {
	Last() (grid.Grid, bool)
}

// Deps collects everything the HTTP layer needs.
type Deps struct {
	Config   *config.Config
	Roster   *roster.Service
	Catalog  *tz.Catalog
	Resolver *grid.Resolver
	Exporter *ics.Exporter
	Metrics  *metrics.Metrics
	Clock    clockwork.Clock

	// Refresh backs /api/status. Nil reports that no refresh has run.
	Refresh RefreshStatus

	// Gatherer backs /metrics. Nil means prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server provides the JSON API, the rendered grid page and the preview image.
type Server struct {
	cfg      *config.Config
	roster   *roster.Service
	catalog  *tz.Catalog
	resolver *grid.Resolver
	exporter *ics.Exporter
	metrics  *metrics.Metrics
	clock    clockwork.Clock
	refresh  RefreshStatus
	gatherer prometheus.Gatherer

	router chi.Router
}

// NewServer constructs a new Server.
func NewServer(d Deps) *Server {
	s := &Server{
		cfg:      d.Config,
		roster:   d.Roster,
		catalog:  d.Catalog,
		resolver: d.Resolver,
		exporter: d.Exporter,
		metrics:  d.Metrics,
		clock:    d.Clock,
		refresh:  d.Refresh,
		gatherer: d.Gatherer,
		router:   chi.NewRouter(),
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials leave auth disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="tzgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestMetrics)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Get("/grid", s.handleGridPage)
	r.Get("/preview.png", s.handlePreview)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/timezones", s.handleTimezones)

		r.Get("/base", s.handleGetBase)
		r.Put("/base", s.handlePutBase)

		r.Get("/people", s.handleListPeople)
		r.Post("/people", s.handleAddPerson)
		r.Get("/people/{id}", s.handleGetPerson)
		r.Patch("/people/{id}", s.handleRenamePerson)
		r.Delete("/people/{id}", s.handleDeletePerson)

		r.Get("/grid", s.handleGrid)
		r.Get("/reference.ics", s.handleReferenceICS)
	})
}

// requestMetrics counts requests by matched route pattern, so ids in paths
// do not blow up label cardinality.
func (s *Server) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if s.metrics == nil {
			return
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.IncrementRequest(route, status)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG of the grid page.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	// http.ServeFile answers 404 for a missing file and 500 for other errors.
	http.ServeFile(w, r, s.cfg.Capture.Output)
}

// parseReference reads the optional reference hour. Absent means no column
// is highlighted.
func parseReference(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	h, err := strconv.Atoi(raw)
	if err != nil || h < 0 || h >= grid.HoursPerDay {
		return nil, fmt.Errorf("%w: reference hour must be 0-%d", errBadRequest, grid.HoursPerDay-1)
	}
	return &h, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, tz.ErrInvalidTimezone),
		errors.Is(err, roster.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, roster.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body. Internal errors are logged and not
// echoed to the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("request failed", err, "method", r.Method, "path", r.URL.Path)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

const maxBodyBytes = 64 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
