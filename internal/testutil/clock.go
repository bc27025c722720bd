package testutil

import (
	"sync"
	"time"
)

// ManualClock is a time source that only moves when told to.
//
// Unlike host.MonotonicClock, ManualClock can be reset for test reuse, so
// the same scenario produces identical timing on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

// NewManualClock creates a clock reading start seconds.
func NewManualClock(start float64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading in seconds.
func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward. Negative values are ignored so the
// clock stays monotonic.
func (c *ManualClock) Advance(seconds float64) {
	if seconds <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
}

// Reset sets the reading back to 0.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
}

// FakeSleeper records sleeps and advances a ManualClock instead of
// blocking. Overshoot is added to every sleep, to model a coarse OS timer.
type FakeSleeper struct {
	mu        sync.Mutex
	clock     *ManualClock
	overshoot time.Duration
	calls     []time.Duration
}

// NewFakeSleeper creates a sleeper driving clock. clock may be nil, in
// which case sleeps are only recorded.
func NewFakeSleeper(clock *ManualClock, overshoot time.Duration) *FakeSleeper {
	return &FakeSleeper{clock: clock, overshoot: overshoot}
}

// Sleep implements host.Sleeper.
func (s *FakeSleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	over := s.overshoot
	s.mu.Unlock()

	if s.clock != nil {
		s.clock.Advance((d + over).Seconds())
	}
}

// SetOvershoot changes the overshoot added to later sleeps.
func (s *FakeSleeper) SetOvershoot(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overshoot = d
}

// Calls returns the requested durations in call order.
func (s *FakeSleeper) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.calls))
	copy(out, s.calls)
	return out
}

// Count returns how many times Sleep was called.
func (s *FakeSleeper) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
