package host

import (
	"context"
	"fmt"
	"log/slog"
)

// ScheduleState is the per-loop timing state owned by the Scheduler.
type ScheduleState struct {
	// RealTime is scaled wall time accumulated since the loop started.
	RealTime float64
	// PreviousRealTime is RealTime at the last accepted frame.
	PreviousRealTime float64
	// FrameTime is the clamped, policy adjusted delta of the current frame.
	FrameTime float64
	// RealFrameTime is the clamped measured delta, ignoring Framerate.
	RealFrameTime float64
	// RawFrameTime is the unclamped RealTime - PreviousRealTime.
	RawFrameTime float64
	// PureFrameTime is the wall cost of the last frame's phases, without sleeps.
	PureFrameTime float64
	// FrameCount counts accepted frames.
	FrameCount uint64
	Status     Status
}

// Scheduler is the top-level frame orchestrator.
//
// CRITICAL: Tick and Run must be called from exactly one goroutine.
// Collaborators read state through Frame or the accessors below.
type Scheduler struct {
	clock    TimeSource
	sleeper  Sleeper
	observer SleepObserver
	logger   *slog.Logger
	settings func() Settings
	mode     func() Mode
	session  Session
	journal  Journal

	phases   Phases
	gate     *FrameGate
	budget   *SleepBudget
	recovery *Recovery
	frame    *Frame

	state          ScheduleState
	startTime      float64
	shutdownIssued bool
	fatal          *FatalError
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source. Default: MonotonicClock.
func WithClock(c TimeSource) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithSleeper sets the blocking primitive. Default: TimeSleeper.
func WithSleeper(sl Sleeper) Option {
	return func(s *Scheduler) { s.sleeper = sl }
}

// WithSleepObserver replaces the default debug logging of sleep decisions.
func WithSleepObserver(o SleepObserver) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithSettings sets the source of the tuning variables, read every frame.
// Default: DefaultSettings.
func WithSettings(fn func() Settings) Option {
	return func(s *Scheduler) { s.settings = fn }
}

// WithMode sets the source of the runtime mode flags, read every frame.
func WithMode(fn func() Mode) Option {
	return func(s *Scheduler) { s.mode = fn }
}

// WithSession sets the collaborator reset on faults.
func WithSession(sess Session) Option {
	return func(s *Scheduler) { s.session = sess }
}

// WithJournal sets the fault and frame sample journal.
func WithJournal(j Journal) Option {
	return func(s *Scheduler) { s.journal = j }
}

// New creates a Scheduler that runs phases on every accepted frame.
func New(phases Phases, opts ...Option) *Scheduler {
	s := &Scheduler{
		phases:   phases,
		settings: DefaultSettings,
		mode:     func() Mode { return Mode{} },
		session:  NopSession{},
		journal:  NopJournal{},
		sleeper:  TimeSleeper{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.clock == nil {
		s.clock = NewMonotonicClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.observer == nil {
		s.observer = s.logSleepDecision
	}

	s.budget = NewSleepBudget(s.clock, s.sleeper, s.observer)
	s.gate = NewFrameGate(s, s.budget)
	s.recovery = NewRecovery(s.logger, s.session, s.journal, s.FrameCount, s.ShuttingDown)
	s.frame = &Frame{s: s}
	s.startTime = s.clock.Now()

	return s
}

// Tick advances or rejects exactly one frame. See TickContext.
func (s *Scheduler) Tick(elapsed float64) error {
	return s.TickContext(context.Background(), elapsed)
}

// TickContext is called by the outer loop once per iteration with the real
// seconds elapsed since the previous call.
//
// A frame is rejected (nil error, no counters advanced) while too little
// time has elapsed. An accepted frame runs every phase under the recovery
// guard; a fault aborts the remaining phases but the frame still counts.
// Once a fault escalates, TickContext returns the *FatalError forever.
func (s *Scheduler) TickContext(ctx context.Context, elapsed float64) error {
	if s.fatal != nil {
		return s.fatal
	}

	settings := s.settings()
	scale := settings.TimeScale

	s.state.RealTime += elapsed * scale
	dt := s.state.RealTime - s.state.PreviousRealTime
	s.state.RawFrameTime = dt

	// no time passed: nothing to simulate
	if dt <= 0 {
		return nil
	}

	if !s.gate.ShouldRunFrame(dt, scale) {
		return nil
	}

	s.state.RealFrameTime = clamp(dt, MinFrameTime, MaxFrameTime)

	mode := s.mode()
	// custom framerate only in a local game while no demo is involved
	if settings.Framerate > 0 && mode.LocalGame && !mode.DemoPlayback && !mode.DemoRecord {
		s.state.FrameTime = clamp(settings.Framerate*scale, MinFrameTime, MaxFrameTime)
	} else {
		s.state.FrameTime = clamp(dt, MinFrameTime, MaxFrameTime)
	}
	s.state.PreviousRealTime = s.state.RealTime

	t1 := s.clock.Now()
	if s.state.FrameCount == 0 {
		s.logger.Debug("time to first frame", "seconds", t1-s.startTime)
	}

	s.frame.ctx = ctx
	_, err := s.recovery.Guard(ctx, s.runPhases)
	s.frame.ctx = nil

	t2 := s.clock.Now()
	s.state.PureFrameTime = t2 - t1
	s.state.FrameCount++

	if err != nil {
		fe := s.recovery.Fatal()
		s.fatal = fe
		s.state.Status = StatusFatalError
		return fe
	}

	if s.state.Status == StatusInit {
		s.state.Status = StatusFrame
	}

	s.sample(ctx, settings)
	return nil
}

// Run is the outer loop: it measures elapsed wall time and ticks until ctx
// is done, Shutdown is issued, or a fault escalates.
//
// Returns ctx.Err() on cancellation, the *FatalError on escalation, and
// nil after a clean shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	settings := s.settings()
	s.logger.Info("host loop starting",
		"dedicated", settings.Dedicated,
		"tickrate", settings.TickRate,
		"fps_max", settings.FPSCap,
		"sleeptime", settings.SleepTime,
	)

	// pretend the previous frame ran 100ms ago so the first frame is due
	oldTime := s.clock.Now() - 0.1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.shutdownIssued {
			s.logger.Info("host loop stopped", "frames", s.state.FrameCount)
			return nil
		}

		newTime := s.clock.Now()
		if err := s.TickContext(ctx, newTime-oldTime); err != nil {
			return err
		}
		oldTime = newTime
	}
}

// Shutdown begins teardown. Idempotent. Faults reported afterwards are
// discarded.
func (s *Scheduler) Shutdown() {
	if s.shutdownIssued {
		return
	}
	s.shutdownIssued = true

	if s.state.Status != StatusFatalError {
		s.state.Status = StatusShuttingDown
	}
	s.session.Shutdown("Server shutdown")
	s.logger.Info("host shutdown", "frames", s.state.FrameCount)
}

// ShuttingDown reports whether teardown has begun.
func (s *Scheduler) ShuttingDown() bool {
	return s.shutdownIssued || s.state.Status == StatusShuttingDown
}

// SetStatus requests a status transition. Shutdown and fatal states are
// terminal and cannot be left.
func (s *Scheduler) SetStatus(status Status) {
	switch s.state.Status {
	case StatusShuttingDown, StatusFatalError:
		return
	}
	if status == StatusShuttingDown {
		s.Shutdown()
		return
	}
	s.state.Status = status
}

// State returns a copy of the timing state.
func (s *Scheduler) State() ScheduleState { return s.state }

// Settings returns the current tuning variables.
func (s *Scheduler) Settings() Settings { return s.settings() }

// Mode returns the current runtime mode flags.
func (s *Scheduler) Mode() Mode { return s.mode() }

// Status returns the execution mode.
func (s *Scheduler) Status() Status { return s.state.Status }

// PureFrameTime returns the cost of the last frame's phases.
func (s *Scheduler) PureFrameTime() float64 { return s.state.PureFrameTime }

// FrameCount returns the number of accepted frames.
func (s *Scheduler) FrameCount() uint64 { return s.state.FrameCount }

// SleepWindow returns the current sleep budget.
func (s *Scheduler) SleepWindow() SleepWindow { return s.budget.Window() }

// Recovery exposes the fault controller, for reporting faults from code
// that runs inside a phase but has no Frame at hand.
func (s *Scheduler) Recovery() *Recovery { return s.recovery }

func (s *Scheduler) runPhases() {
	for _, p := range s.phases.ordered() {
		if p.fn == nil {
			continue
		}
		if err := p.fn(s.frame); err != nil {
			s.recovery.ReportFault(fmt.Sprintf("%s: %v", p.name, err))
		}
	}
}

func (s *Scheduler) sample(ctx context.Context, settings Settings) {
	if settings.SampleInterval <= 0 || s.state.FrameCount%uint64(settings.SampleInterval) != 0 {
		return
	}
	err := s.journal.RecordFrame(ctx, FrameSample{
		Frame:         s.state.FrameCount,
		RealTime:      s.state.RealTime,
		FrameTime:     s.state.FrameTime,
		PureFrameTime: s.state.PureFrameTime,
		SleepWindow:   s.budget.Window().TimeWindow,
	})
	if err != nil {
		s.logger.Warn("failed to journal frame sample", "frame", s.state.FrameCount, "error", err)
	}
}

// logSleepDecision is the default SleepObserver. Skips are not logged;
// they happen at busy-loop rate.
func (s *Scheduler) logSleepDecision(d SleepDecision) {
	if !s.settings().SleepDebug {
		return
	}
	switch d.Action {
	case SleepActionSleep:
		s.logger.Debug("sleep", "n", d.Counter, "window", d.Window, "measured", d.Measured)
	case SleepActionRefill:
		s.logger.Debug("sleep window", "target", d.Target, "pure_frame_time", d.PureFrameTime, "window", d.Window)
	}
}
