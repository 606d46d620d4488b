package nxgraph

import (
	"errors"
	"fmt"

	"github.com/hupe1980/nxgraph/result"
)

var (
	// ErrPreflightFailed is returned when at least one step failed its
	// preflight. Nothing was executed.
	ErrPreflightFailed = errors.New("nxgraph: preflight failed")

	// ErrExecuteFailed is returned when a step failed during execution.
	// Steps before it have modified the data structure.
	ErrExecuteFailed = errors.New("nxgraph: execute failed")

	// ErrInvalidConfig is returned for configuration values that do not
	// parse or are out of range.
	ErrInvalidConfig = errors.New("nxgraph: invalid config")
)

// StepError reports the errors of one pipeline step.
//
// errors.Is matches the phase sentinel (ErrPreflightFailed or
// ErrExecuteFailed) as well as any error the step reported.
type StepError struct {
	Step   int
	Filter string
	Errors result.Errors

	phase error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Filter, e.Errors)
}

func (e *StepError) Unwrap() []error {
	return []error{e.phase, e.Errors}
}

// Kind returns the kind of the step's first error.
func (e *StepError) Kind() result.Kind {
	if len(e.Errors) == 0 {
		return result.KindUnknown
	}
	return e.Errors[0].Kind
}
