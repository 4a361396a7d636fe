package tensor

import (
	"fmt"
	"math"
)

// Shape represents the per-axis extents of a tensor.
type Shape []int64

// NumElements returns the total number of elements. Products that would
// overflow int64 saturate at math.MaxInt64 so budget checks stay meaningful.
func (s Shape) NumElements() int64 {
	return product(s)
}

// Validate checks that no extent is negative. Zero extents are legal.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int64 {
	strides := make([]int64, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Shapes are compared element-wise from right to left; two extents are
// compatible if they are equal or one of them is 1, and missing leading
// dimensions are treated as 1.
//
// Returns the broadcast shape, a flag indicating whether any axis had to be
// stretched, and an error if the shapes are incompatible.
//
//	(3, 1) + (3, 5) → (3, 5), true, nil
//	(3, 5) + (3, 5) → (3, 5), false, nil
//	(3, 4) + (3, 5) → nil, false, error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)
	needsBroadcast := false

	for i := 0; i < maxLen; i++ {
		aIdx := len(a) - 1 - i
		bIdx := len(b) - 1 - i

		aDim := int64(1)
		if aIdx >= 0 {
			aDim = a[aIdx]
		}

		bDim := int64(1)
		if bIdx >= 0 {
			bDim = b[bIdx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[maxLen-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, maxLen-1-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}

// product multiplies values, saturating at math.MaxInt64. Any zero factor
// yields zero.
func product(values []int64) int64 {
	out := int64(1)
	for _, v := range values {
		if v == 0 {
			return 0
		}
	}
	for _, v := range values {
		if v != 0 && out > math.MaxInt64/v {
			return math.MaxInt64
		}
		out *= v
	}
	return out
}
