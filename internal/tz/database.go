// Package tz wraps the IANA timezone database and the curated catalog of
// selectable zones.
package tz

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	// Embed tzdata so lookups do not depend on the host's zoneinfo.
	_ "time/tzdata"
)

// ErrInvalidTimezone is returned for identifiers that are empty, malformed,
// unknown to the timezone database, or outside the configured catalog.
var ErrInvalidTimezone = errors.New("invalid timezone")

// Provider resolves timezone identifiers to locations.
type Provider interface {
	Location(id string) (*time.Location, error)
}

// Database is a Provider backed by Go's time package. Loaded locations are
// memoized; it is safe for concurrent use.
type Database struct {
	mu    sync.RWMutex
	cache map[string]*time.Location
}

// NewDatabase returns an empty, ready to use Database.
func NewDatabase() *Database {
	return &Database{cache: make(map[string]*time.Location)}
}

// Location loads the location for an IANA identifier.
//
// "" and "Local" are rejected even though time.LoadLocation accepts them:
// both depend on the host rather than naming a zone.
func (d *Database) Location(id string) (*time.Location, error) {
	d.mu.RLock()
	loc, ok := d.cache[id]
	d.mu.RUnlock()
	if ok {
		return loc, nil
	}

	if id == "" || id == "Local" || strings.TrimSpace(id) != id {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, id)
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, id, err)
	}

	d.mu.Lock()
	d.cache[id] = loc
	d.mu.Unlock()
	return loc, nil
}

// Offset returns the UTC offset in effect in loc at instant t.
func Offset(loc *time.Location, t time.Time) time.Duration {
	_, secs := t.In(loc).Zone()
	return time.Duration(secs) * time.Second
}
