package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/config"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/store"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/testutil"
)

// Harness is the scenario execution state.
// It runs scenarios with a manual clock and fixed run ids.
type Harness struct {
	store   *store.Store
	clock   *testutil.ManualClock
	sleeper *testutil.FakeSleeper
	sched   *host.Scheduler
	logger  *slog.Logger
	result  *Result

	step    int
	current Step
	fired   bool
	pending []string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database and write the run header
//  2. Apply settings over the defaults
//  3. Tick the scheduler through every step
//  4. Read journaled faults back and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a context for the store.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}
	settings := cfg.HostSettings()

	runID := host.NewFixedGenerator("scenario-" + scenario.Name).Generate()
	if err := st.WriteRun(ctx, store.Run{ID: runID, Settings: settings}); err != nil {
		return nil, err
	}

	h := &Harness{
		store:   st,
		clock:   testutil.NewManualClock(0),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		result:  NewResult(),
	}
	h.sleeper = testutil.NewFakeSleeper(h.clock, 0)
	h.result.RunID = runID

	mode := scenario.Mode.Host()
	h.sched = host.New(h.phases(),
		host.WithClock(h.clock),
		host.WithSleeper(h.sleeper),
		host.WithSleepObserver(h.observeSleep),
		host.WithLogger(h.logger),
		host.WithSettings(func() host.Settings { return settings }),
		host.WithMode(func() host.Mode { return mode }),
		host.WithJournal(&traceJournal{h: h, next: st.Journal(runID)}),
		host.WithSession(&unwindSession{h: h}),
	)

	h.execute(ctx, scenario.Steps)

	faults, err := st.ReadFaults(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read faults: %w", err)
	}
	h.result.Faults = faults
	h.result.Frames = h.sched.FrameCount()
	h.result.Sleeps = h.sleeper.Count()
	h.result.Status = h.sched.Status().String()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func scenarioConfig(scenario *Scenario) (config.Config, error) {
	cfg := config.Default()
	names := make([]string, 0, len(scenario.Settings))
	for name := range scenario.Settings {
		names = append(names, name)
	}
	// deterministic order, so validation errors are stable
	slices.Sort(names)
	for _, name := range names {
		if err := cfg.Set(name, fmt.Sprint(scenario.Settings[name])); err != nil {
			return config.Config{}, fmt.Errorf("scenario %s: setting %s: %w", scenario.Name, name, err)
		}
	}
	return cfg, nil
}

func (h *Harness) execute(ctx context.Context, steps []Step) {
	last := h.clock.Now()
	for i, step := range steps {
		h.step = i
		h.current = step
		h.fired = false
		h.pending = nil

		if step.SleepOvershoot != nil {
			h.sleeper.SetOvershoot(time.Duration(*step.SleepOvershoot * float64(time.Second)))
		}
		if step.Shutdown {
			h.sched.Shutdown()
		}
		if step.Status != "" {
			h.sched.SetStatus(statusNames[step.Status])
			h.emit(TraceEvent{Type: EventStatus, Message: h.sched.Status().String()})
		}

		for n := 0; n < step.ticks(); n++ {
			h.clock.Advance(step.Elapsed)
			now := h.clock.Now()
			elapsed := now - last
			last = now

			before := h.sched.FrameCount()
			err := h.sched.TickContext(ctx, elapsed)

			var fe *host.FatalError
			if errors.As(err, &fe) {
				h.result.Fatal = fe
			}
			if err == nil && h.sched.FrameCount() == before {
				h.emit(TraceEvent{Type: EventReject})
			}
		}
	}
}

func (h *Harness) emit(e TraceEvent) {
	e.Step = h.step
	if e.Frame == 0 {
		e.Frame = h.sched.FrameCount()
	}
	h.result.add(e)
}

// phases builds callbacks that record frames and inject the step's faults.
func (h *Harness) phases() host.Phases {
	inject := func(name string) host.Phase {
		return func(f *host.Frame) error {
			if name == "input" {
				h.emit(TraceEvent{Type: EventFrame, Frame: f.Count()})
			}
			if name == "simulation" {
				h.clock.Advance(h.current.Cost)
			}

			phase := h.current.Phase
			if phase == "" {
				phase = "simulation"
			}
			if phase != name || h.fired {
				return nil
			}
			msgs := h.current.faults()
			if len(msgs) == 0 {
				return nil
			}
			h.fired = true
			h.pending = msgs[1:]
			f.Fault(msgs[0])
			return nil
		}
	}
	return host.Phases{
		Input:        inject("input"),
		SessionBegin: inject("session-begin"),
		Commands:     inject("commands"),
		Simulation:   inject("simulation"),
		Presentation: inject("presentation"),
		Background:   inject("background"),
	}
}

func (h *Harness) observeSleep(d host.SleepDecision) {
	switch d.Action {
	case host.SleepActionSleep:
		h.emit(TraceEvent{Type: EventSleep, SleepMs: d.Requested})
	case host.SleepActionRefill:
		h.emit(TraceEvent{Type: EventRefill, SleepMs: d.Requested})
	}
}

// unwindSession raises the step's remaining faults while the first one is
// resetting the session, which is how a second fault lands in one frame.
type unwindSession struct {
	host.NopSession
	h *Harness
}

func (s *unwindSession) Disconnect(string) {
	if len(s.h.pending) == 0 {
		return
	}
	next := s.h.pending[0]
	s.h.pending = s.h.pending[1:]
	s.h.sched.Recovery().ReportFault(next)
}

func (s *unwindSession) Shutdown(string) {
	s.h.emit(TraceEvent{Type: EventShutdown})
}

// traceJournal records faults into the trace before journaling them.
type traceJournal struct {
	h    *Harness
	next host.Journal
}

func (j *traceJournal) RecordFault(ctx context.Context, rec host.FaultRecord) error {
	typ := EventFault
	if rec.Fatal {
		typ = EventFatal
	}
	j.h.emit(TraceEvent{Type: typ, Frame: rec.Frame, Code: string(rec.Code), Message: rec.Message})
	return j.next.RecordFault(ctx, rec)
}

func (j *traceJournal) RecordFrame(ctx context.Context, sample host.FrameSample) error {
	return j.next.RecordFrame(ctx, sample)
}
