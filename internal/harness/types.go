package harness

import (
	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

// Trace event types.
const (
	EventFrame    = "frame"
	EventReject   = "reject"
	EventSleep    = "sleep"
	EventRefill   = "refill"
	EventFault    = "fault"
	EventFatal    = "fatal"
	EventStatus   = "status"
	EventShutdown = "shutdown"
)

// TraceEvent is one observable scheduler decision.
// Only integers and strings are recorded so traces compare exactly.
type TraceEvent struct {
	Step    int    `json:"step"`
	Type    string `json:"type"`
	Frame   uint64 `json:"frame"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	SleepMs int    `json:"sleep_ms,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	RunID  string `json:"run_id"`
	Frames uint64 `json:"frames"`
	Sleeps int    `json:"sleeps"`
	Status string `json:"status"`

	// Faults are read back from the journal after the run.
	Faults []host.FaultRecord `json:"faults"`
	Fatal  *host.FatalError   `json:"fatal,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Faults: []host.FaultRecord{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// Count returns how many trace events have the given type.
func (r *Result) Count(eventType string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
