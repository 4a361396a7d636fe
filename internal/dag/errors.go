package dag

import (
	"errors"
	"strings"
)

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("cycle detected")

// CycleError reports the node path that closes a cycle. The first and last
// elements of Path are the same node.
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// Is reports whether target is ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}
