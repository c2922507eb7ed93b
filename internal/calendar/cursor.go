package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrMonthOutOfRange is returned by Render for a month outside 0..11.
var ErrMonthOutOfRange = errors.New("calendar: month out of range")

// Cursor is the month shown to a user. Month is 0-based (0 = January).
type Cursor struct {
	Year  int
	Month int
}

// CursorOf returns the cursor for the month containing t.
func CursorOf(t time.Time) Cursor {
	return Cursor{Year: t.Year(), Month: int(t.Month()) - 1}
}

// Valid reports whether the month is within 0..11.
func (c Cursor) Valid() bool {
	return c.Month >= 0 && c.Month <= 11
}

// Prev is the raw previous-month target; it is not normalized.
func (c Cursor) Prev() Cursor { return Cursor{Year: c.Year, Month: c.Month - 1} }

// Next is the raw next-month target; it is not normalized.
func (c Cursor) Next() Cursor { return Cursor{Year: c.Year, Month: c.Month + 1} }

// First returns midnight of the first day of the month in loc.
func (c Cursor) First(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(c.Year, time.Month(c.Month+1), 1, 0, 0, 0, 0, loc)
}

// DaysIn returns the number of days in the month.
func (c Cursor) DaysIn() int {
	return time.Date(c.Year, time.Month(c.Month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

func (c Cursor) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, c.Month+1)
}

// Normalize applies a single wrap step: any month below 0 becomes December of
// the previous year and any month above 11 becomes January of the next.
// Navigation only ever moves one month, so no further carry is done.
func Normalize(year, month int) Cursor {
	switch {
	case month < 0:
		return Cursor{Year: year - 1, Month: 11}
	case month > 11:
		return Cursor{Year: year + 1, Month: 0}
	}
	return Cursor{Year: year, Month: month}
}
