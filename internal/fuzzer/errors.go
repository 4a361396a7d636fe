package fuzzer

import (
	"errors"
	"fmt"
)

// ErrBudgetExhausted is matched by *ExhaustedError.
var ErrBudgetExhausted = errors.New("no valid sample within attempt budget")

// ExhaustedError reports that every attempt of a trial was rejected.
type ExhaustedError struct {
	Trial    int
	Attempts int
	// Last is the rejection reason of the final attempt, typically a
	// *tensor.BudgetError or a *ConstraintError.
	Last error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("trial %d: no valid sample after %d attempts: %v", e.Trial, e.Attempts, e.Last)
}

// Unwrap returns the last rejection reason.
func (e *ExhaustedError) Unwrap() error { return e.Last }

// Is reports whether target is ErrBudgetExhausted.
func (e *ExhaustedError) Is(target error) bool { return target == ErrBudgetExhausted }

// ConstraintError records a sample rejected by a space constraint.
type ConstraintError struct {
	Name string
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %q not satisfied", e.Name)
}
