package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/m3rciful/datepoll/internal/action"
)

// Selection is a set of YYYY-MM-DD dates.
type Selection map[string]struct{}

// NewSelection builds a selection from dates; duplicates collapse.
func NewSelection(dates ...string) Selection {
	s := make(Selection, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// ParseDate parses a YYYY-MM-DD string, rejecting impossible days.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(action.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: bad date %q: %w", s, err)
	}
	return t, nil
}

// Has reports whether date is selected.
func (s Selection) Has(date string) bool {
	_, ok := s[date]
	return ok
}

// Toggle adds date if absent and removes it otherwise. It reports whether the
// date is selected afterwards.
func (s Selection) Toggle(date string) bool {
	if s.Has(date) {
		delete(s, date)
		return false
	}
	s[date] = struct{}{}
	return true
}

// Len returns the number of selected dates.
func (s Selection) Len() int { return len(s) }

// Sorted returns the dates in ascending order, which for YYYY-MM-DD is also
// chronological order.
func (s Selection) Sorted() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for d := range s {
		out[d] = struct{}{}
	}
	return out
}
