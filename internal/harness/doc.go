// Package harness replays timing scenarios against the host scheduler.
//
// A scenario drives a real host.Scheduler with a manual clock and a fake
// sleeper, so every run of the same scenario produces the same trace.
// Faults are journaled into an in-memory store exactly as a production
// run journals them.
//
// # Scenario Format
//
//	name: fault_same_frame
//	description: "Two faults in one frame escalate"
//	settings:
//	  fps_max: 0
//	mode:
//	  local_game: true
//	steps:
//	  - elapsed: 0.01
//	    repeat: 10
//	  - elapsed: 0.01
//	    fault: "first"
//	    phase: simulation
//	assertions:
//	  - type: fatal
//	    code: MULTI_ERROR
//
// Each step ticks the scheduler `repeat` times (default 1). Before every
// tick the clock advances by `elapsed`; time spent sleeping or in `cost`
// counts toward the next tick. A step may also change the status, request
// shutdown, change the sleep overshoot, or inject faults into a phase on
// the first frame it runs.
//
// # Assertion Types
//
//   - frame_count: accepted frames (count, or min/max)
//   - sleep_count: blocking sleeps (count, or min/max)
//   - fault_count: journaled faults, read back from the store
//   - fatal: the escalation code, or no escalation when code is empty
//   - trace_order: event types appear in order, not necessarily adjacent
//
// # Trace Events
//
// frame, reject, sleep, refill, fault, fatal, status, shutdown. Golden
// files hold the trace as indented JSON under testdata/golden.
package harness
