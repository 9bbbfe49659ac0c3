// Package clock supplies the time source that stamps when the rule store was
// loaded, so store statistics are reproducible in tests.
package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock returns CurrentTime until moved with Advance or Set.
type MockClock struct {
	CurrentTime time.Time
}

func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}

// Set moves the clock to t, which may be earlier than the current time.
func (c *MockClock) Set(t time.Time) {
	c.CurrentTime = t
}
