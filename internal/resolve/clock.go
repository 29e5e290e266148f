package resolve

import "time"

// Clock supplies the current instant. Resolution functions never read
// the ambient wall clock directly; the clock is injected so tests can
// time-travel deterministically.
type Clock interface {
	Now() time.Time
}

// WallClock reads the system clock in UTC.
type WallClock struct{}

// Now returns the current UTC instant.
func (WallClock) Now() time.Time {
	return time.Now().UTC()
}
