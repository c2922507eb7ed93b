package calendar

import "time"

// Clock tells the renderer what "today" is.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the process clock in Location (local time when nil).
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the configured location.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }
