package tz

import (
	"fmt"
	"strings"
	"time"
)

// DefaultIDs is the curated list of zones offered for selection when the
// config does not provide one.
var DefaultIDs = []string{
	"UTC",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Anchorage",
	"Pacific/Honolulu",
	"America/Toronto",
	"America/Vancouver",
	"America/Mexico_City",
	"America/Sao_Paulo",
	"America/Buenos_Aires",
	"Europe/London",
	"Europe/Paris",
	"Europe/Berlin",
	"Europe/Madrid",
	"Europe/Rome",
	"Europe/Amsterdam",
	"Europe/Brussels",
	"Europe/Vienna",
	"Europe/Stockholm",
	"Europe/Oslo",
	"Europe/Copenhagen",
	"Europe/Helsinki",
	"Europe/Athens",
	"Europe/Moscow",
	"Europe/Istanbul",
	"Asia/Dubai",
	"Asia/Karachi",
	"Asia/Kolkata",
	"Asia/Dhaka",
	"Asia/Bangkok",
	"Asia/Singapore",
	"Asia/Hong_Kong",
	"Asia/Shanghai",
	"Asia/Tokyo",
	"Asia/Seoul",
	"Australia/Sydney",
	"Australia/Melbourne",
	"Australia/Brisbane",
	"Australia/Perth",
	"Pacific/Auckland",
	"Pacific/Fiji",
	"Africa/Cairo",
	"Africa/Johannesburg",
	"Africa/Lagos",
	"Africa/Nairobi",
}

// Entry is a selectable catalog zone.
type Entry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Catalog is the set of identifiers users may pick from. Membership is checked
// at input time only; stored ids are resolved against the full Database.
type Catalog struct {
	db  Provider
	ids []string
	set map[string]struct{}
}

// NewCatalog builds a catalog from ids, verifying every id loads. Duplicates
// are dropped, keeping first-seen order. An empty ids uses DefaultIDs.
func NewCatalog(db Provider, ids []string) (*Catalog, error) {
	if len(ids) == 0 {
		ids = DefaultIDs
	}
	c := &Catalog{
		db:  db,
		ids: make([]string, 0, len(ids)),
		set: make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		if _, dup := c.set[id]; dup {
			continue
		}
		if _, err := db.Location(id); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		c.set[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	return c, nil
}

// Validate returns the location for id, or ErrInvalidTimezone when id is not
// part of the catalog.
func (c *Catalog) Validate(id string) (*time.Location, error) {
	if _, ok := c.set[id]; !ok {
		return nil, fmt.Errorf("%w: %q is not a selectable timezone", ErrInvalidTimezone, id)
	}
	return c.db.Location(id)
}

// Entries lists the catalog in configured order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, Entry{ID: id, Label: DisplayName(id)})
	}
	return out
}

// DisplayName renders an identifier for humans: "America/New_York" becomes
// "America/New York".
func DisplayName(id string) string {
	return strings.ReplaceAll(id, "_", " ")
}
