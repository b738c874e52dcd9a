package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a non-positive mass, timestep or constant,
	// or an unknown integrator/evaluator name.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrNotFound indicates an operation on an unknown body id.
	ErrNotFound = errors.New("dynamo: body not found")

	// ErrDuplicateID indicates a body carrying an id already in use.
	ErrDuplicateID = errors.New("dynamo: duplicate body id")

	// ErrNumericalInstability indicates coincident bodies with zero softening.
	ErrNumericalInstability = errors.New("dynamo: numerical instability (zero separation without softening)")

	// ErrStepInProgress indicates a structural change attempted mid-step.
	ErrStepInProgress = errors.New("dynamo: step in progress")
)

// Invalid wraps ErrInvalidParameter with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// StepError wraps an error with the position in the run where it happened.
// Time is the simulation time before the failed step; it is also the time
// the Kosmos still reports, since failed steps are not committed.
type StepError struct {
	Step    int
	Time    float64
	Dt      float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g, dt=%.6g): %v", e.Step, e.Time, e.Dt, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
