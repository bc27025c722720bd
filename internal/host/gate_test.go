package host

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/testutil"
)

type stubInputs struct {
	settings Settings
	mode     Mode
	status   Status
	pure     float64
}

func (s *stubInputs) Settings() Settings     { return s.settings }
func (s *stubInputs) Mode() Mode             { return s.mode }
func (s *stubInputs) Status() Status         { return s.status }
func (s *stubInputs) PureFrameTime() float64 { return s.pure }

func newTestGate(in *stubInputs) (*FrameGate, *testutil.FakeSleeper) {
	clock := testutil.NewManualClock(0)
	sleeper := testutil.NewFakeSleeper(clock, 0)
	return NewFrameGate(in, NewSleepBudget(clock, sleeper, nil)), sleeper
}

func TestFrameGate_UncappedAlwaysRuns(t *testing.T) {
	in := &stubInputs{settings: Settings{VSync: true, SleepTime: 1, TimeScale: 1}, status: StatusFrame}
	gate, sleeper := newTestGate(in)

	for _, dt := range []float64{0, 1e-9, 0.001, 1} {
		assert.True(t, gate.ShouldRunFrame(dt, 1), "dt=%v", dt)
	}
	assert.Equal(t, 0, sleeper.Count())
}

func TestFrameGate_NoSleepPathThrottlesWithoutBlocking(t *testing.T) {
	// client, fps_max 100, sleeptime 0: target 0.01s
	in := &stubInputs{settings: Settings{FPSCap: 100, SleepTime: 0, TimeScale: 1}, status: StatusFrame}
	gate, sleeper := newTestGate(in)

	for _, dt := range []float64{0, 0.001, 0.005, 0.0099} {
		assert.False(t, gate.ShouldRunFrame(dt, 1), "dt=%v", dt)
	}
	assert.Equal(t, 0, sleeper.Count())

	assert.True(t, gate.ShouldRunFrame(0.011, 1))
	assert.True(t, gate.ShouldRunFrame(5, 1))
}

func TestFrameGate_ScaleStretchesTarget(t *testing.T) {
	in := &stubInputs{settings: Settings{FPSCap: 100, SleepTime: 0, TimeScale: 2}, status: StatusFrame}
	gate, _ := newTestGate(in)

	assert.False(t, gate.ShouldRunFrame(0.015, 2))
	assert.True(t, gate.ShouldRunFrame(0.021, 2))
}

func TestFrameGate_ClampsTickRate(t *testing.T) {
	in := &stubInputs{settings: Settings{Dedicated: true, TickRate: 1000, SleepTime: 0, TimeScale: 1}}
	gate, _ := newTestGate(in)

	// bounded to MaxFPS: target 1/201
	assert.False(t, gate.ShouldRunFrame(0.004, 1))
	assert.True(t, gate.ShouldRunFrame(0.005, 1))
}

func TestFrameGate_DedicatedTickrate100(t *testing.T) {
	in := &stubInputs{settings: Settings{Dedicated: true, TickRate: 100, SleepTime: 1, TimeScale: 1}}
	gate, sleeper := newTestGate(in)

	assert.False(t, gate.ShouldRunFrame(0.005, 1))
	assert.True(t, gate.ShouldRunFrame(0.011, 1))
	// the first window was empty, so nothing slept
	assert.Equal(t, 0, sleeper.Count())
}

func TestFrameGate_SleepsInsideWindow(t *testing.T) {
	in := &stubInputs{settings: Settings{Dedicated: true, TickRate: 100, SleepTime: 1, TimeScale: 1}}
	gate, sleeper := newTestGate(in)

	// due frame allocates 1/101 - 2*0.001 ≈ 0.0079s of sleep
	in.pure = 0.001
	assert.True(t, gate.ShouldRunFrame(0.02, 1))

	assert.False(t, gate.ShouldRunFrame(0.001, 1))
	assert.Equal(t, 1, sleeper.Count())
}

func TestFrameGate_DueFrameEventuallyRuns(t *testing.T) {
	for _, sleepMs := range []int{0, 1, 20} {
		in := &stubInputs{settings: Settings{Dedicated: true, TickRate: 100, SleepTime: sleepMs, TimeScale: 1}}
		gate, _ := newTestGate(in)

		for i := 0; i < 50; i++ {
			gate.ShouldRunFrame(0.001, 1)
		}
		assert.True(t, gate.ShouldRunFrame(0.01, 1), "sleeptime=%d", sleepMs)
	}
}

func TestFrameGate_NoFocusUsesLowActivitySleep(t *testing.T) {
	// 20 fps leaves a 50ms window, room for a 20ms sleep
	in := &stubInputs{settings: Settings{FPSCap: 20, SleepTime: 1, TimeScale: 1}, status: StatusNoFocus}
	gate, sleeper := newTestGate(in)

	assert.True(t, gate.ShouldRunFrame(0.06, 1))
	assert.False(t, gate.ShouldRunFrame(0.001, 1))

	calls := sleeper.Calls()
	if assert.Len(t, calls, 1) {
		assert.Equal(t, int64(LowActivitySleepMs), calls[0].Milliseconds())
	}
}
