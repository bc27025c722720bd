package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

// Scenario is a scripted sequence of scheduler ticks with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Settings override variables by console name (tickrate, fps_max, ...).
	Settings map[string]any `yaml:"settings,omitempty"`

	Mode ModeSpec `yaml:"mode,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// ModeSpec are the runtime mode flags held for the whole scenario.
type ModeSpec struct {
	DemoPlayback bool    `yaml:"demo_playback,omitempty"`
	DemoRecord   bool    `yaml:"demo_record,omitempty"`
	DemoFPS      float64 `yaml:"demo_fps,omitempty"`
	TimeDemo     bool    `yaml:"timedemo,omitempty"`
	LocalGame    bool    `yaml:"local_game,omitempty"`
	ServerActive bool    `yaml:"server_active,omitempty"`
	InGame       bool    `yaml:"in_game,omitempty"`
}

// Host converts the flags.
func (m ModeSpec) Host() host.Mode {
	return host.Mode{
		DemoPlayback: m.DemoPlayback,
		DemoRecord:   m.DemoRecord,
		DemoFPS:      m.DemoFPS,
		TimeDemo:     m.TimeDemo,
		LocalGame:    m.LocalGame,
		ServerActive: m.ServerActive,
		InGame:       m.InGame,
	}
}

// Step is one or more ticks sharing the same inputs.
type Step struct {
	// Elapsed is the wall time in seconds that passes before each tick.
	Elapsed float64 `yaml:"elapsed"`

	// Repeat ticks this step several times. 0 means once.
	Repeat int `yaml:"repeat,omitempty"`

	// Cost is the simulated work in seconds of every frame that runs.
	Cost float64 `yaml:"cost,omitempty"`

	// Fault is reported from Phase on the first frame run by this step.
	Fault string `yaml:"fault,omitempty"`

	// Faults are reported one after another from Phase in the same frame.
	Faults []string `yaml:"faults,omitempty"`

	// Phase names where faults are raised. Default: simulation.
	Phase string `yaml:"phase,omitempty"`

	// Status is requested before the first tick (frame, nofocus, sleep, shutdown).
	Status string `yaml:"status,omitempty"`

	// Shutdown begins teardown before the first tick.
	Shutdown bool `yaml:"shutdown,omitempty"`

	// SleepOvershoot is added to every later sleep, in seconds.
	SleepOvershoot *float64 `yaml:"sleep_overshoot,omitempty"`
}

func (s Step) ticks() int {
	if s.Repeat <= 0 {
		return 1
	}
	return s.Repeat
}

func (s Step) faults() []string {
	if s.Fault == "" {
		return s.Faults
	}
	return append([]string{s.Fault}, s.Faults...)
}

// Assertion validates the result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the exact expected number (frame_count, sleep_count, fault_count).
	Count *int `yaml:"count,omitempty"`

	// Min and Max bound the number instead of Count.
	Min *int `yaml:"min,omitempty"`
	Max *int `yaml:"max,omitempty"`

	// Code is the expected fatal code; empty expects no escalation.
	Code string `yaml:"code,omitempty"`

	// Events is the expected order of event types (trace_order).
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertFrameCount = "frame_count"
	AssertSleepCount = "sleep_count"
	AssertFaultCount = "fault_count"
	AssertFatal      = "fatal"
	AssertTraceOrder = "trace_order"
)

var phaseNames = map[string]bool{
	"input":         true,
	"session-begin": true,
	"commands":      true,
	"simulation":    true,
	"presentation":  true,
	"background":    true,
}

var statusNames = map[string]host.Status{
	"frame":    host.StatusFrame,
	"nofocus":  host.StatusNoFocus,
	"sleep":    host.StatusSleep,
	"shutdown": host.StatusShuttingDown,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Elapsed < 0 {
			return fmt.Errorf("steps[%d]: elapsed must be non-negative", i)
		}
		if step.Cost < 0 {
			return fmt.Errorf("steps[%d]: cost must be non-negative", i)
		}
		if step.Phase != "" && !phaseNames[step.Phase] {
			return fmt.Errorf("steps[%d]: unknown phase %q", i, step.Phase)
		}
		if step.Status != "" {
			if _, ok := statusNames[step.Status]; !ok {
				return fmt.Errorf("steps[%d]: unknown status %q", i, step.Status)
			}
		}
		if step.SleepOvershoot != nil && *step.SleepOvershoot < 0 {
			return fmt.Errorf("steps[%d]: sleep_overshoot must be non-negative", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFrameCount, AssertSleepCount, AssertFaultCount:
		if a.Count == nil && a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: count, min or max is required for %s", index, a.Type)
		}
		for _, v := range []*int{a.Count, a.Min, a.Max} {
			if v != nil && *v < 0 {
				return fmt.Errorf("assertions[%d]: counts must be non-negative for %s", index, a.Type)
			}
		}
	case AssertFatal:
		switch host.FaultCode(a.Code) {
		case "", host.FaultInitError, host.FaultMultiError, host.FaultRecursiveError:
		default:
			return fmt.Errorf("assertions[%d]: unknown fatal code %q", index, a.Code)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
