package host

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// RecoveryPhase is the coarse state of the fault protocol.
type RecoveryPhase int

const (
	// RecoveryNormal means no fault is being handled.
	RecoveryNormal RecoveryPhase = iota
	// RecoveryUnwinding means a fault is resetting the session.
	RecoveryUnwinding
	// RecoveryFatal means a fault escalated; the host must terminate.
	RecoveryFatal
)

func (p RecoveryPhase) String() string {
	switch p {
	case RecoveryNormal:
		return "normal"
	case RecoveryUnwinding:
		return "unwinding"
	case RecoveryFatal:
		return "fatal"
	default:
		return fmt.Sprintf("RecoveryPhase(%d)", int(p))
	}
}

// RecoveryState is the escalation bookkeeping kept across frames.
type RecoveryState struct {
	// Recursing is true only while a fault is being unwound.
	Recursing bool
	// LastFaultFrame is the frame index of the last recoverable fault.
	LastFaultFrame uint64
	// PendingMessage is the last recoverable fault, kept for diagnostics.
	PendingMessage string
}

// abortSignal unwinds the current frame back to Guard.
type abortSignal struct {
	reason string
}

// fatalSignal unwinds the current frame and ends the host.
type fatalSignal struct {
	err *FatalError
}

// Recovery implements the abort/escalate protocol for mid-frame faults.
//
// INVARIANTS:
//   - state.Recursing is false whenever Guard returns
//   - a fault never propagates past Guard as a panic
//   - every fault is logged before the unwind proceeds
type Recovery struct {
	logger   *slog.Logger
	session  Session
	journal  Journal
	frame    func() uint64
	shutdown func() bool

	state RecoveryState
	phase RecoveryPhase
	fatal *FatalError

	// ctx is only valid while Guard is running.
	ctx context.Context
}

// NewRecovery creates the fault controller. frame returns the index of the
// frame being run; shutdown reports whether teardown has begun.
func NewRecovery(logger *slog.Logger, session Session, journal Journal, frame func() uint64, shutdown func() bool) *Recovery {
	if logger == nil {
		logger = slog.Default()
	}
	if session == nil {
		session = NopSession{}
	}
	if journal == nil {
		journal = NopJournal{}
	}
	return &Recovery{
		logger:   logger,
		session:  session,
		journal:  journal,
		frame:    frame,
		shutdown: shutdown,
	}
}

// Guard runs fn as the recovery point for one frame. It returns
// aborted=true when fn was cut short by a fault or EndSession, and a
// *FatalError when a fault escalated.
//
// Panics that are not fault signals are re-raised.
func (r *Recovery) Guard(ctx context.Context, fn func()) (aborted bool, err error) {
	r.ctx = ctx
	defer func() {
		r.ctx = nil
		v := recover()
		if v == nil {
			return
		}
		r.state.Recursing = false
		switch sig := v.(type) {
		case abortSignal:
			if r.phase == RecoveryUnwinding {
				r.phase = RecoveryNormal
			}
			r.logger.Debug("frame aborted", "reason", sig.reason)
			aborted = true
		case fatalSignal:
			aborted = true
			err = sig.err
		default:
			panic(v)
		}
	}()

	fn()
	return false, nil
}

// ReportFault aborts the current frame.
//
// It does not return to the caller: control resumes at the end of Guard.
// The single exception is a fault reported after shutdown has begun, which
// is logged and discarded because the process is already exiting.
// ReportFault must only be called from code running under Guard.
func (r *Recovery) ReportFault(message string) {
	message = strings.TrimRight(message, "\n")
	frame := r.frame()

	if r.shutdown != nil && r.shutdown() {
		r.logger.Warn("fault during shutdown ignored", "frame", frame, "message", message)
		return
	}

	switch {
	case frame < EarlyBootFrames:
		r.escalate(&FatalError{Code: FaultInitError, Message: message, Frame: frame})
	case frame == r.state.LastFaultFrame:
		r.escalate(&FatalError{Code: FaultMultiError, Message: message, Previous: r.state.PendingMessage, Frame: frame})
	case r.state.Recursing:
		// LastFaultFrame is set before the reset, so under Scheduler a
		// nested fault hits the case above; this only catches a frame
		// source that moves while the session is being reset
		r.escalate(&FatalError{Code: FaultRecursiveError, Message: message, Previous: r.state.PendingMessage, Frame: frame})
	}

	r.logger.Error("host error", "frame", frame, "message", message)

	r.phase = RecoveryUnwinding
	r.state.Recursing = true
	r.state.PendingMessage = message
	r.state.LastFaultFrame = frame

	r.record(FaultRecord{Frame: frame, Code: FaultHostError, Message: message})
	r.resetSession("Server crashed: " + message)

	r.state.Recursing = false
	panic(abortSignal{reason: message})
}

// Faultf formats a message and reports it with ReportFault.
func (r *Recovery) Faultf(format string, args ...any) {
	r.ReportFault(fmt.Sprintf(format, args...))
}

// EndSession tears the session down without treating it as a fault (a
// map ended, the server dropped the client). With abort set the rest of
// the frame is skipped.
func (r *Recovery) EndSession(message string, abort bool) {
	r.logger.Info("session ended", "frame", r.frame(), "message", message)
	r.resetSession(message)
	if abort {
		panic(abortSignal{reason: message})
	}
}

// State returns a copy of the escalation bookkeeping.
func (r *Recovery) State() RecoveryState {
	return r.state
}

// Phase returns the protocol state.
func (r *Recovery) Phase() RecoveryPhase {
	return r.phase
}

// Fatal returns the escalated fault, or nil.
func (r *Recovery) Fatal() *FatalError {
	return r.fatal
}

func (r *Recovery) escalate(fe *FatalError) {
	r.phase = RecoveryFatal
	r.fatal = fe
	r.logger.Error("fatal host error",
		"code", fe.Code,
		"frame", fe.Frame,
		"message", fe.Message,
		"previous", fe.Previous,
	)
	r.record(FaultRecord{
		Frame:    fe.Frame,
		Code:     fe.Code,
		Message:  fe.Message,
		Previous: fe.Previous,
		Fatal:    true,
	})
	panic(fatalSignal{err: fe})
}

func (r *Recovery) resetSession(reason string) {
	r.session.ClearCommands()
	r.session.Disconnect(reason)
	r.session.ReleaseContent()
}

func (r *Recovery) record(rec FaultRecord) {
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.journal.RecordFault(ctx, rec); err != nil {
		r.logger.Warn("failed to journal fault", "frame", rec.Frame, "error", err)
	}
}
