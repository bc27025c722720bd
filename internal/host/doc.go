// Package host implements the per-frame scheduling and fault-recovery core.
//
// The host decides when a frame may run, how long to block between frames
// to hold a target rate, and how to unwind a frame that failed partway
// through without taking the process down.
//
// ARCHITECTURE:
//
// Single-Goroutine Frame Loop:
// The scheduler and every phase callback run on one goroutine. The only
// suspension point is the bounded sleep inside SleepBudget. Frame N's
// phases complete (or are aborted) before frame N+1's gate check runs.
//
// Frame Processing Flow:
//  1. Run() measures wall time and calls Tick(elapsed) once per iteration
//  2. Tick() scales elapsed into real time and asks FrameGate if a frame is due
//  3. FrameGate consults TargetFPS and the sleep budget (may block briefly)
//  4. Accepted frames clamp the frame time and run the phases in fixed order
//     under Recovery.Guard
//  5. Pure frame time (phases only, no sleeping) feeds the next sleep window
//
// Phase order is a contract with collaborators:
// input → session-begin → commands → simulation → presentation → background.
//
// FAULTS:
//
// A phase reports a fault with Frame.Fault (or by returning an error). The
// fault is classified at the call site: early boot, repeated frame and
// recursive faults escalate to a FatalError; anything else is logged, the
// session is reset and the frame is unwound to the top of Tick. The unwind
// is a typed panic recovered exactly once, in Recovery.Guard. Foreign
// panics are re-raised untouched.
//
// Core state is not safe for concurrent use.
package host
