package helpers

import (
	"strings"
	"time"
)

var monthLayouts = []string{
	"2006-01",
	"2006-1",
	"01.2006",
	"1.2006",
	"01/2006",
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
}

// ParseMonth reads a month reference such as "2025-10", "10.2025" or a full
// date and returns the first day of that month in loc.
func ParseMonth(input string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range monthLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc), true
		}
	}
	return time.Time{}, false
}
