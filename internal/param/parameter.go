package param

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidParameter is wrapped by every validation failure in this package.
var ErrInvalidParameter = errors.New("invalid parameter")

var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parameter is a named value drawn from Dist once per sample.
type Parameter struct {
	Name string
	Dist Distribution
	// Strict parameters are chosen once per trial and keep that choice while
	// the engine redraws the other parameters to satisfy budgets.
	Strict bool
}

// New returns a non-strict parameter.
func New(name string, dist Distribution) Parameter {
	return Parameter{Name: name, Dist: dist}
}

// NewStrict returns a strict parameter.
func NewStrict(name string, dist Distribution) Parameter {
	return Parameter{Name: name, Dist: dist, Strict: true}
}

// Validate checks the name and the distribution.
func (p Parameter) Validate() error {
	if !nameRegex.MatchString(p.Name) {
		return fmt.Errorf("%w: bad name %q", ErrInvalidParameter, p.Name)
	}
	if p.Dist == nil {
		return fmt.Errorf("%w: %q has no distribution", ErrInvalidParameter, p.Name)
	}
	if err := p.Dist.Validate(); err != nil {
		return fmt.Errorf("parameter %q: %w", p.Name, err)
	}
	for _, dep := range p.Dist.Dependencies() {
		if dep == p.Name {
			return fmt.Errorf("%w: %q aliases itself", ErrInvalidParameter, p.Name)
		}
	}
	return nil
}

// String renders the parameter for logs.
func (p Parameter) String() string {
	if p.Strict {
		return fmt.Sprintf("%s=%s (strict)", p.Name, p.Dist)
	}
	return fmt.Sprintf("%s=%s", p.Name, p.Dist)
}

// Choice is the outcome picked by Distribution.Choose. Exactly one of Value
// or Alias is meaningful: Alias is non-empty for alias outcomes.
type Choice struct {
	Value int64
	Alias string
}

// IsAlias reports whether the choice refers to another parameter.
func (c Choice) IsAlias() bool {
	return c.Alias != ""
}

// Resolve returns the concrete value of the choice, looking aliases up in
// the values resolved so far.
func (c Choice) Resolve(lookup func(name string) (int64, bool)) (int64, error) {
	if !c.IsAlias() {
		return c.Value, nil
	}
	v, ok := lookup(c.Alias)
	if !ok {
		return 0, fmt.Errorf("alias %q is not resolved yet", c.Alias)
	}
	return v, nil
}
