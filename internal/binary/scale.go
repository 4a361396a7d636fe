package binary

import (
	"fmt"
	"strings"

	"github.com/vk/opfuzz/internal/param"
	"github.com/vk/opfuzz/internal/tensor"
)

// Scale selects the size regime of generated operands.
type Scale int

const (
	Small Scale = iota
	Medium
	Large
)

// String returns the lowercase scale name.
func (s Scale) String() string {
	switch s {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

// ParseScale parses "small", "medium" or "large".
func ParseScale(s string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "small":
		return Small, nil
	case "medium":
		return Medium, nil
	case "large":
		return Large, nil
	}
	return 0, fmt.Errorf("unknown scale %q: want small, medium or large", s)
}

const (
	minDimSize         = 8
	maxElements        = 32 * 1024 * 1024
	maxAllocationBytes = 2 * 1024 * 1024 * 1024
)

// Limits are the size bounds of one scale regime.
type Limits struct {
	MinDimSize int64
	MaxDimSize int64
	// PowTwoSizes are the powers of two in [MinDimSize, MaxDimSize].
	PowTwoSizes []int64
	// MinElements is the floor on the element count of x.
	MinElements        int64
	MaxElements        int64
	MaxAllocationBytes int64
}

// LimitsFor returns the limits of a scale regime.
func LimitsFor(s Scale) (Limits, error) {
	l := Limits{
		MinDimSize:         minDimSize,
		MaxElements:        maxElements,
		MaxAllocationBytes: maxAllocationBytes,
	}
	switch s {
	case Small:
		l.MaxDimSize, l.MinElements = 128, 0
	case Medium:
		l.MaxDimSize, l.MinElements = 1024, 128
	case Large:
		l.MaxDimSize, l.MinElements = 16*1024*1024, 4096
	default:
		return Limits{}, fmt.Errorf("unknown scale %v", s)
	}
	l.PowTwoSizes = param.PowersOfTwo(l.MinDimSize, l.MaxDimSize)
	return l, nil
}

// Attributes are the tensor properties fixed for a whole fuzzer.
type Attributes struct {
	DType        tensor.DataType
	Device       tensor.Device
	RequiresGrad bool
}

// DefaultAttributes are float32 CPU tensors without gradient tracking.
func DefaultAttributes() Attributes {
	return Attributes{DType: tensor.Float32, Device: tensor.CPU}
}

// Variables exposes the limits to declarative space files.
func (l Limits) Variables() map[string]int64 {
	return map[string]int64{
		"min_dim_size":         l.MinDimSize,
		"max_dim_size":         l.MaxDimSize,
		"min_elements":         l.MinElements,
		"max_elements":         l.MaxElements,
		"max_allocation_bytes": l.MaxAllocationBytes,
	}
}
