package host

import (
	"context"
	"fmt"
)

// Status is the coarse execution mode of the host.
type Status int

const (
	StatusInit Status = iota
	StatusFrame
	StatusNoFocus
	StatusSleep
	StatusShuttingDown
	StatusFatalError
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusFrame:
		return "frame"
	case StatusNoFocus:
		return "nofocus"
	case StatusSleep:
		return "sleep"
	case StatusShuttingDown:
		return "shutdown"
	case StatusFatalError:
		return "fatal"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Phase is one ordered step of a frame. A non-nil error is reported as a
// fault, exactly as if the phase had called Frame.Fault.
type Phase func(f *Frame) error

// Phases are the frame callbacks supplied by collaborators. Nil phases are
// skipped. The order is fixed; collaborators cannot reorder themselves.
type Phases struct {
	Input        Phase
	SessionBegin Phase
	Commands     Phase
	Simulation   Phase
	Presentation Phase
	Background   Phase
}

type namedPhase struct {
	name string
	fn   Phase
}

func (p Phases) ordered() []namedPhase {
	return []namedPhase{
		{"input", p.Input},
		{"session-begin", p.SessionBegin},
		{"commands", p.Commands},
		{"simulation", p.Simulation},
		{"presentation", p.Presentation},
		{"background", p.Background},
	}
}

// Frame is the narrow view of the scheduler handed to phase callbacks.
type Frame struct {
	s   *Scheduler
	ctx context.Context
}

// Context returns the context of the running Tick.
func (f *Frame) Context() context.Context {
	if f.ctx == nil {
		return context.Background()
	}
	return f.ctx
}

// Time is the clamped, policy adjusted frame time in seconds.
func (f *Frame) Time() float64 { return f.s.state.FrameTime }

// RealTime is the scaled real time accumulated since the loop started.
func (f *Frame) RealTime() float64 { return f.s.state.RealTime }

// Count is the index of the running frame.
func (f *Frame) Count() uint64 { return f.s.state.FrameCount }

// Settings are the tuning variables in effect for this frame.
func (f *Frame) Settings() Settings { return f.s.settings() }

// Mode are the runtime mode flags in effect for this frame.
func (f *Frame) Mode() Mode { return f.s.mode() }

// Status is the host's execution mode.
func (f *Frame) Status() Status { return f.s.state.Status }

// SetStatus requests a status transition (focus loss, sleep).
func (f *Frame) SetStatus(status Status) { f.s.SetStatus(status) }

// Fault reports an unrecoverable error for this frame. It does not return.
func (f *Frame) Fault(message string) { f.s.recovery.ReportFault(message) }

// Faultf is Fault with formatting.
func (f *Frame) Faultf(format string, args ...any) { f.s.recovery.Faultf(format, args...) }

// EndSession resets the session; with abort the rest of the frame is skipped.
func (f *Frame) EndSession(message string, abort bool) { f.s.recovery.EndSession(message, abort) }

// Shutdown asks the loop to stop after this frame.
func (f *Frame) Shutdown() { f.s.Shutdown() }
