package binary

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/opfuzz/internal/space"
	"github.com/vk/opfuzz/internal/tensor"
)

// ErrMalformedSample means a raw sample does not carry what the binary
// space declares. It indicates a bug, not bad input.
var ErrMalformedSample = errors.New("malformed binary sample")

// Case is the structured description of one trial.
type Case struct {
	XSize  []int64
	XSteps []int64
	YSize  []int64
	YSteps []int64
}

// Keys of Case.Map.
const (
	KeyXSize  = "x_size"
	KeyXSteps = "x_steps"
	KeyYSize  = "y_size"
	KeyYSteps = "y_steps"
)

// Map returns the case keyed by x_size, x_steps, y_size and y_steps.
func (c Case) Map() map[string][]int64 {
	return map[string][]int64{
		KeyXSize:  slices.Clone(c.XSize),
		KeyXSteps: slices.Clone(c.XSteps),
		KeyYSize:  slices.Clone(c.YSize),
		KeyYSteps: slices.Clone(c.YSteps),
	}
}

// Dim returns the operand rank.
func (c Case) Dim() int { return len(c.XSize) }

// BroadcastShape returns the shape of x op y.
func (c Case) BroadcastShape() (tensor.Shape, error) {
	shape, _, err := tensor.BroadcastShapes(c.XSize, c.YSize)
	return shape, err
}

// BroadcastAxes returns the axes along which y is stretched to match x.
func (c Case) BroadcastAxes() []int {
	var axes []int
	for i := range c.XSize {
		if c.YSize[i] == 1 && c.XSize[i] > 1 {
			axes = append(axes, i)
		}
	}
	return axes
}

// StructureParams projects a resolved sample onto a Case. All MaxDim entries
// of k*, x_step_*, y_k* and y_step_* must be present; the result keeps the
// first dim of each. Every other parameter is ignored. A missing key or an
// out-of-range dim returns an error wrapping ErrMalformedSample.
func StructureParams(sample space.Sample) (Case, error) {
	get := func(name string) (int64, error) {
		v, ok := sample[name]
		if !ok {
			return 0, fmt.Errorf("%w: missing %q", ErrMalformedSample, name)
		}
		return v, nil
	}

	if _, err := get(ParamRandomValue); err != nil {
		return Case{}, err
	}
	dim, err := get(ParamDim)
	if err != nil {
		return Case{}, err
	}
	if dim < 1 || dim > MaxDim {
		return Case{}, fmt.Errorf("%w: dim %d outside [1, %d]", ErrMalformedSample, dim, MaxDim)
	}

	axes := func(f func(int) string) ([]int64, error) {
		out := make([]int64, MaxDim)
		for i := range out {
			v, err := get(f(i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out[:dim:dim], nil
	}

	var c Case
	for _, field := range []struct {
		dst  *[]int64
		name func(int) string
	}{
		{&c.XSize, k},
		{&c.XSteps, xStep},
		{&c.YSize, yK},
		{&c.YSteps, yStep},
	} {
		if *field.dst, err = axes(field.name); err != nil {
			return Case{}, err
		}
	}
	return c, nil
}

// MustStructureParams is StructureParams for samples produced by NewSpace.
// It panics on a malformed sample.
func MustStructureParams(sample space.Sample) Case {
	c, err := StructureParams(sample)
	if err != nil {
		panic(err)
	}
	return c
}
