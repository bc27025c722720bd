package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace tail for debugging context
}

// maxTraceContext bounds how many trailing events an AssertionError prints.
const maxTraceContext = 20

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) == 0 {
		return buf.String()
	}

	trace := e.Trace
	if len(trace) > maxTraceContext {
		fmt.Fprintf(&buf, "\nTrace (last %d of %d events):\n", maxTraceContext, len(trace))
		trace = trace[len(trace)-maxTraceContext:]
	} else {
		fmt.Fprintf(&buf, "\nFull trace:\n")
	}
	for _, event := range trace {
		fmt.Fprintf(&buf, "  step %d frame %d %s", event.Step, event.Frame, event.Type)
		if event.Code != "" {
			fmt.Fprintf(&buf, " %s", event.Code)
		}
		if event.Message != "" {
			fmt.Fprintf(&buf, " %q", event.Message)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFrameCount:
		return assertCount(a, int(result.Frames), result.Trace)
	case AssertSleepCount:
		return assertCount(a, result.Sleeps, result.Trace)
	case AssertFaultCount:
		return assertCount(a, len(result.Faults), result.Trace)
	case AssertFatal:
		return assertFatal(result, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertCount checks an exact count, or a [min, max] range.
func assertCount(a Assertion, actual int, trace []TraceEvent) error {
	var expected string
	ok := true
	switch {
	case a.Count != nil:
		expected = fmt.Sprintf("%d", *a.Count)
		ok = actual == *a.Count
	default:
		lo, hi := "0", "inf"
		if a.Min != nil {
			lo = fmt.Sprintf("%d", *a.Min)
			ok = ok && actual >= *a.Min
		}
		if a.Max != nil {
			hi = fmt.Sprintf("%d", *a.Max)
			ok = ok && actual <= *a.Max
		}
		expected = fmt.Sprintf("between %s and %s", lo, hi)
	}
	if ok {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   fmt.Sprintf("%d", actual),
		Trace:    trace,
	}
}

func assertFatal(result *Result, a Assertion) error {
	switch {
	case a.Code == "" && result.Fatal == nil:
		return nil
	case a.Code == "":
		return &AssertionError{
			Type:     AssertFatal,
			Expected: "no escalation",
			Actual:   result.Fatal.Error(),
			Trace:    result.Trace,
		}
	case result.Fatal == nil:
		return &AssertionError{
			Type:     AssertFatal,
			Expected: a.Code,
			Actual:   "no escalation",
			Trace:    result.Trace,
		}
	case string(result.Fatal.Code) != a.Code:
		return &AssertionError{
			Type:     AssertFatal,
			Expected: a.Code,
			Actual:   string(result.Fatal.Code),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceOrder checks that event types appear in the given order.
// Events don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Events) && event.Type == a.Events[next] {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Events, " -> "),
		Actual:   fmt.Sprintf("matched %d of %d, missing %q", next, len(a.Events), a.Events[next]),
		Trace:    trace,
	}
}
