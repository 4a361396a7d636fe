package space

import (
	"errors"
	"fmt"
)

// ErrInvalidSpace is matched by every *ConfigError.
var ErrInvalidSpace = errors.New("invalid parameter space")

// ConfigError describes a configuration problem found while building a space.
type ConfigError struct {
	Kind    string // "parameter", "alias", "cycle", "tensor" or "constraint"
	Subject string // Name of the offending parameter, tensor or constraint
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("invalid parameter space: %s %q: %v", e.Kind, e.Subject, e.Err)
	}
	return fmt.Sprintf("invalid parameter space: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidSpace.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidSpace }
