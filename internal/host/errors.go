package host

import (
	"errors"
	"fmt"
)

// FaultCode categorizes a reported fault.
type FaultCode string

const (
	// FaultHostError is a recoverable fault: the frame was unwound and the
	// session reset.
	FaultHostError FaultCode = "HOST_ERROR"

	// FaultInitError is a fault during the first EarlyBootFrames frames.
	FaultInitError FaultCode = "INIT_ERROR"

	// FaultMultiError is a second fault in the same frame slot.
	FaultMultiError FaultCode = "MULTI_ERROR"

	// FaultRecursiveError is a fault raised while a previous fault was
	// still being unwound.
	FaultRecursiveError FaultCode = "RECURSIVE_ERROR"
)

// FatalError is returned by Tick once a fault escalates. The host must
// terminate; later Tick calls return the same error.
type FatalError struct {
	// Code identifies the escalation rule that fired.
	Code FaultCode `json:"code"`

	// Message is the fault that escalated.
	Message string `json:"message"`

	// Previous is the earlier fault, for multi and recursive escalation.
	Previous string `json:"previous,omitempty"`

	// Frame is the frame index the fault was reported in.
	Frame uint64 `json:"frame"`
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Previous != "" {
		return fmt.Sprintf("%s: %s (previous=%q, frame=%d)", e.Code, e.Message, e.Previous, e.Frame)
	}
	return fmt.Sprintf("%s: %s (frame=%d)", e.Code, e.Message, e.Frame)
}

// IsFatal returns true if err carries a FatalError.
// Uses errors.As to handle wrapped errors.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// FatalCode returns the escalation code carried by err, if any.
func FatalCode(err error) (FaultCode, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return "", false
}
