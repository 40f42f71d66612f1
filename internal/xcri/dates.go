package xcri

import (
	"strings"
	"time"
)

// dtf values in the wild range from a bare year to full RFC3339 with offset.
// Values without a zone are taken as UTC.
var looseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-1-2",
	"20060102",
	"2006-01",
	"2006",
}

// ParseLooseDate parses a feed date/time and returns it in UTC.
func ParseLooseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range looseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
