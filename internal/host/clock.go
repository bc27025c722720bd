package host

import "time"

// TimeSource returns seconds since an arbitrary epoch.
//
// Implementations must be monotonic: successive calls never return a
// smaller value, even when the system wall clock is adjusted.
type TimeSource interface {
	Now() float64
}

// MonotonicClock reads the Go runtime's monotonic clock relative to the
// moment it was created.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock creates a clock whose epoch is the current instant.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now returns seconds elapsed since the clock was created.
// time.Since uses the monotonic reading, so wall clock steps are ignored.
func (c *MonotonicClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// Sleeper blocks the calling goroutine for roughly d.
// The actual duration may overshoot; callers measure it.
type Sleeper interface {
	Sleep(d time.Duration)
}

// TimeSleeper sleeps with time.Sleep.
type TimeSleeper struct{}

// Sleep implements Sleeper.
func (TimeSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}
