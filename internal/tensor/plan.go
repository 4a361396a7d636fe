package tensor

import (
	"math/rand/v2"
	"slices"
)

// Handle describes one materialized tensor view.
type Handle struct {
	Name string
	// Shape and Steps are the sampled extents and step multipliers.
	Shape Shape
	Steps []int64
	// Strides are element strides of the view into its backing allocation.
	Strides []int64
	// Order is the memory order of the backing allocation: Order[0] is the
	// slowest-varying axis. The identity permutation is row-major.
	Order           []int
	Allocation      Shape
	Numel           int64
	AllocationBytes int64
	Contiguous      bool

	DType        DataType
	Device       Device
	RequiresGrad bool

	// Storage is nil unless a Materializer backed the handle.
	Storage *Storage
}

// Properties mirrors the summary a benchmark harness records per tensor.
func (h *Handle) Properties() map[string]any {
	return map[string]any{
		"numel":         h.Numel,
		"order":         slices.Clone(h.Order),
		"steps":         slices.Clone(h.Steps),
		"is_contiguous": h.Contiguous,
		"dtype":         h.DType.String(),
	}
}

// Offset returns the element offset of the given index into the backing
// allocation. It panics when the index is out of range.
func (h *Handle) Offset(index ...int64) int64 {
	if len(index) != len(h.Shape) {
		panic("tensor: wrong number of indices")
	}
	var off int64
	for i, idx := range index {
		if idx < 0 || idx >= h.Shape[i] {
			panic("tensor: index out of range")
		}
		off += idx * h.Strides[i]
	}
	return off
}

// Plan decides the memory order of the backing allocation and derives the
// strides of the stepped view. One uniform draw from src decides whether the
// natural order is kept; otherwise a non-identity permutation is drawn.
func Plan(r Request, l Layout, src rand.Source) *Handle {
	rng := rand.New(src)
	dim := l.Dim()

	order := identity(dim)
	if rng.Float64() > r.ProbabilityContiguous && dim > 1 {
		for isIdentity(order) {
			order = rng.Perm(dim)
		}
	}

	strides := permutedStrides(l.Allocation, order)
	for i := range strides {
		strides[i] *= l.Steps[i]
	}

	return &Handle{
		Name:            r.Name,
		Shape:           l.Size.Clone(),
		Steps:           slices.Clone(l.Steps),
		Strides:         strides,
		Order:           order,
		Allocation:      l.Allocation.Clone(),
		Numel:           l.Size.NumElements(),
		AllocationBytes: r.AllocationBytes(l),
		Contiguous:      IsContiguous(l.Size, strides),
		DType:           r.DType,
		Device:          r.Device,
		RequiresGrad:    r.RequiresGrad,
	}
}

// permutedStrides returns the strides of a dense allocation laid out so that
// axis order[len-1] varies fastest.
func permutedStrides(alloc Shape, order []int) []int64 {
	strides := make([]int64, len(alloc))
	acc := int64(1)
	for j := len(order) - 1; j >= 0; j-- {
		axis := order[j]
		strides[axis] = acc
		acc *= alloc[axis]
	}
	return strides
}

// IsContiguous reports whether a view with the given shape and strides is
// dense and row-major. Axes of extent 1 are ignored and empty views are
// contiguous.
func IsContiguous(shape Shape, strides []int64) bool {
	if shape.NumElements() == 0 {
		return true
	}
	expected := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] == 1 {
			continue
		}
		if strides[i] != expected {
			return false
		}
		expected *= shape[i]
	}
	return true
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func isIdentity(order []int) bool {
	for i, v := range order {
		if v != i {
			return false
		}
	}
	return true
}
