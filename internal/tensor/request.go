package tensor

import (
	"errors"
	"fmt"
)

// ErrBudget is matched by every *BudgetError.
var ErrBudget = errors.New("tensor budget violated")

// BudgetError reports which limit a resolved tensor layout broke.
type BudgetError struct {
	Tensor string // Tensor request name
	Limit  string // "min_elements", "max_elements" or "max_allocation_bytes"
	Value  int64  // Observed value
	Bound  int64  // Configured bound
}

// Error implements the error interface.
func (e *BudgetError) Error() string {
	return fmt.Sprintf("tensor %q: %s violated: %d vs bound %d", e.Tensor, e.Limit, e.Value, e.Bound)
}

// Is reports whether target is ErrBudget.
func (e *BudgetError) Is(target error) bool {
	return target == ErrBudget
}

// Request declares a tensor to be built from resolved parameters.
type Request struct {
	Name string
	// Size and Steps name the parameters holding per-axis extents and step
	// multipliers. Steps may be empty, meaning every step is 1.
	Size  []string
	Steps []string
	// DimParam names the parameter holding the active dimensionality. When
	// empty, len(Size) is used.
	DimParam string
	// ProbabilityContiguous is the chance the backing allocation keeps the
	// natural memory order.
	ProbabilityContiguous float64
	MinElements           int64
	MaxElements           int64 // 0 means unbounded
	MaxAllocationBytes    int64 // 0 means unbounded

	DType        DataType
	Device       Device
	RequiresGrad bool
}

// Parameters returns every parameter name the request reads.
func (r Request) Parameters() []string {
	names := make([]string, 0, len(r.Size)+len(r.Steps)+1)
	if r.DimParam != "" {
		names = append(names, r.DimParam)
	}
	names = append(names, r.Size...)
	return append(names, r.Steps...)
}

// Validate checks the static configuration of the request.
func (r Request) Validate() error {
	switch {
	case r.Name == "":
		return errors.New("tensor request has no name")
	case len(r.Size) == 0 && r.DimParam == "":
		return fmt.Errorf("tensor %q declares neither size parameters nor a dim parameter", r.Name)
	case len(r.Steps) > 0 && len(r.Steps) != len(r.Size):
		return fmt.Errorf("tensor %q has %d size parameters but %d step parameters", r.Name, len(r.Size), len(r.Steps))
	case r.ProbabilityContiguous < 0 || r.ProbabilityContiguous > 1:
		return fmt.Errorf("tensor %q: probability_contiguous %g outside [0, 1]", r.Name, r.ProbabilityContiguous)
	case r.MinElements < 0 || r.MaxElements < 0 || r.MaxAllocationBytes < 0:
		return fmt.Errorf("tensor %q: budgets must not be negative", r.Name)
	case r.MaxElements > 0 && r.MinElements > r.MaxElements:
		return fmt.Errorf("tensor %q: min_elements %d > max_elements %d", r.Name, r.MinElements, r.MaxElements)
	}
	return nil
}

// Layout is the resolved geometry of a request for one sample.
type Layout struct {
	Size  Shape
	Steps []int64
	// Allocation is the extent of the backing allocation, size[i]*steps[i].
	Allocation Shape
}

// Dim returns the number of active axes.
func (l Layout) Dim() int {
	return len(l.Size)
}

// Layout reads the request's parameters from lookup, truncates them to the
// sampled dimensionality and pads missing axes with 1.
func (r Request) Layout(lookup func(name string) (int64, bool)) (Layout, error) {
	dim := len(r.Size)
	if r.DimParam != "" {
		v, ok := lookup(r.DimParam)
		if !ok {
			return Layout{}, fmt.Errorf("tensor %q: dim parameter %q missing from sample", r.Name, r.DimParam)
		}
		if v < 0 {
			return Layout{}, fmt.Errorf("tensor %q: negative dim %d", r.Name, v)
		}
		dim = int(v)
	}

	resolve := func(names []string) ([]int64, error) {
		out := make([]int64, dim)
		for i := range out {
			out[i] = 1
			if i >= len(names) {
				continue
			}
			v, ok := lookup(names[i])
			if !ok {
				return nil, fmt.Errorf("tensor %q: parameter %q missing from sample", r.Name, names[i])
			}
			out[i] = v
		}
		return out, nil
	}

	size, err := resolve(r.Size)
	if err != nil {
		return Layout{}, err
	}
	if err := Shape(size).Validate(); err != nil {
		return Layout{}, fmt.Errorf("tensor %q: %w", r.Name, err)
	}
	steps, err := resolve(r.Steps)
	if err != nil {
		return Layout{}, err
	}

	alloc := make(Shape, dim)
	for i := range alloc {
		if steps[i] < 1 {
			return Layout{}, fmt.Errorf("tensor %q: step %d at axis %d must be >= 1", r.Name, steps[i], i)
		}
		alloc[i] = product([]int64{size[i], steps[i]})
	}
	return Layout{Size: size, Steps: steps, Allocation: alloc}, nil
}

// AllocationBytes returns the byte size of the backing allocation.
func (r Request) AllocationBytes(l Layout) int64 {
	return product([]int64{l.Allocation.NumElements(), r.DType.Size()})
}

// Check enforces the element and allocation budgets. It returns nil or a
// *BudgetError.
func (r Request) Check(l Layout) error {
	numel := l.Size.NumElements()
	if r.MaxElements > 0 && numel > r.MaxElements {
		return &BudgetError{Tensor: r.Name, Limit: "max_elements", Value: numel, Bound: r.MaxElements}
	}
	if numel < r.MinElements {
		return &BudgetError{Tensor: r.Name, Limit: "min_elements", Value: numel, Bound: r.MinElements}
	}
	if bytes := r.AllocationBytes(l); r.MaxAllocationBytes > 0 && bytes > r.MaxAllocationBytes {
		return &BudgetError{Tensor: r.Name, Limit: "max_allocation_bytes", Value: bytes, Bound: r.MaxAllocationBytes}
	}
	return nil
}
