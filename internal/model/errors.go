package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration marks parameters rejected at construction or call time.
	ErrInvalidConfiguration = errors.New("cxmc: invalid configuration")

	// ErrTooFewSamples is returned when a moment-corrected batch is requested
	// with fewer than two samples.
	ErrTooFewSamples = fmt.Errorf("%w: at least 2 samples are required", ErrInvalidConfiguration)

	// ErrDegenerateSample is returned when every redraw of a batch for a warm
	// fluid came out with zero spread.
	ErrDegenerateSample = errors.New("cxmc: sample batch has no spread")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...)
}

// StepError carries the step at which the driver loop failed.
type StepError struct {
	Step  int
	Phase Phase
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Phase, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
