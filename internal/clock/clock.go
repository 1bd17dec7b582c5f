package clock

import "time"

// Clock reports the current instant. Implementations return local wall-clock
// time; day keys are derived from the returned value's own location.
type Clock interface {
	Now() time.Time
}

// System is the real clock.
//
// Thread-safety: System is stateless and safe for concurrent use.
type System struct {
	// Location overrides the zone of returned times. Nil means time.Local.
	Location *time.Location
}

// Now returns the current time in the configured location.
func (c System) Now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}

// Func adapts an ordinary function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}
