package host

import (
	"fmt"
	"time"
)

// SleepWindow is the sleep budget carried across frames.
type SleepWindow struct {
	// TimeWindow is the time, in seconds, still believed available for
	// sleeping before the next frame is due.
	TimeWindow float64
	// LastMeasuredSleep is how long the most recent sleep actually took.
	LastMeasuredSleep float64
}

// Exhausted reports whether the window can no longer fit another sleep.
func (w SleepWindow) Exhausted() bool {
	return w.TimeWindow <= w.LastMeasuredSleep
}

// SleepAction identifies what the budget decided.
type SleepAction int

const (
	// SleepActionSleep means the frame was not due and the host slept.
	SleepActionSleep SleepAction = iota + 1
	// SleepActionSkip means the frame was not due and the window was spent,
	// so the host returned without sleeping.
	SleepActionSkip
	// SleepActionRefill means a frame became due on an exhausted window and
	// a new window was allocated.
	SleepActionRefill
)

func (a SleepAction) String() string {
	switch a {
	case SleepActionSleep:
		return "sleep"
	case SleepActionSkip:
		return "skip"
	case SleepActionRefill:
		return "refill"
	default:
		return fmt.Sprintf("SleepAction(%d)", int(a))
	}
}

// SleepDecision describes one decision of the sleep budget.
type SleepDecision struct {
	Action SleepAction
	// Counter numbers the sleeps inside the current window.
	Counter int
	// Requested is the nominal sleep length in milliseconds.
	Requested int
	// Measured is the measured sleep length in seconds (sleep only).
	Measured float64
	// Window is the time window after the decision.
	Window float64
	// Target and PureFrameTime are set on refill.
	Target        float64
	PureFrameTime float64
}

// SleepObserver receives every sleep decision. It must not block.
type SleepObserver func(SleepDecision)

// SleepBudget decides whether blocking is safe before a frame deadline.
//
// OS sleeps routinely overshoot. The budget decays by the measured
// duration of each sleep, never the requested one, so the error does not
// compound into a host that runs persistently slower than its target.
type SleepBudget struct {
	clock    TimeSource
	sleeper  Sleeper
	observer SleepObserver
	window   SleepWindow
	counter  int
}

// NewSleepBudget creates an empty (exhausted) budget.
// observer may be nil.
func NewSleepBudget(clock TimeSource, sleeper Sleeper, observer SleepObserver) *SleepBudget {
	return &SleepBudget{
		clock:    clock,
		sleeper:  sleeper,
		observer: observer,
	}
}

// Wait handles a frame that is not yet due. It sleeps once for sleepMs
// if the window still has room and reports whether it slept.
func (b *SleepBudget) Wait(sleepMs int) bool {
	if b.window.TimeWindow <= b.window.LastMeasuredSleep {
		b.notify(SleepDecision{
			Action:    SleepActionSkip,
			Counter:   b.counter,
			Requested: sleepMs,
			Window:    b.window.TimeWindow,
		})
		return false
	}

	t1 := b.clock.Now()
	b.sleeper.Sleep(time.Duration(sleepMs) * time.Millisecond)
	measured := b.clock.Now() - t1

	b.window.LastMeasuredSleep = measured
	b.window.TimeWindow -= measured
	b.counter++

	b.notify(SleepDecision{
		Action:    SleepActionSleep,
		Counter:   b.counter,
		Requested: sleepMs,
		Measured:  measured,
		Window:    b.window.TimeWindow,
	})
	return true
}

// Due handles a frame that is due. An exhausted window is refilled with
// target - 2*pureFrameTime: the frame cost is paid on both sides of the
// sleeps, so the window never promises time the frame will consume.
func (b *SleepBudget) Due(target, pureFrameTime float64, sleepMs int) {
	if !b.window.Exhausted() {
		return
	}

	window := target - 2*pureFrameTime
	if window < 0 {
		window = 0
	}
	b.window.TimeWindow = window
	// optimistic until the first sleep of this window is measured
	b.window.LastMeasuredSleep = float64(sleepMs) * 0.001
	b.counter = 0

	b.notify(SleepDecision{
		Action:        SleepActionRefill,
		Requested:     sleepMs,
		Window:        window,
		Target:        target,
		PureFrameTime: pureFrameTime,
	})
}

// Window returns the current budget.
func (b *SleepBudget) Window() SleepWindow {
	return b.window
}

func (b *SleepBudget) notify(d SleepDecision) {
	if b.observer != nil {
		b.observer(d)
	}
}
