package binary

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/opfuzz/internal/param"
	"github.com/vk/opfuzz/internal/space"
	"github.com/vk/opfuzz/internal/tensor"
)

// MaxDim is the largest operand rank.
const MaxDim = 3

// Parameter names.
const (
	ParamDim         = "dim"
	ParamRandomValue = "random_value"

	TensorX = "x"
	TensorY = "y"
)

// Contiguous operands are three times as likely as permuted ones.
const probabilityContiguous = 0.75

func kAny(i int) string  { return fmt.Sprintf("k_any_%d", i) }
func kPow2(i int) string { return fmt.Sprintf("k_pow2_%d", i) }
func k(i int) string     { return fmt.Sprintf("k%d", i) }
func yK(i int) string    { return fmt.Sprintf("y_k%d", i) }
func xStep(i int) string { return fmt.Sprintf("x_step_%d", i) }
func yStep(i int) string { return fmt.Sprintf("y_step_%d", i) }

func names(f func(int) string) []string {
	out := make([]string, MaxDim)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func stepDistribution() param.Weighted {
	return param.NewWeighted(
		param.Value(1, 0.80),
		param.Value(2, 0.06),
		param.Value(4, 0.06),
		param.Value(8, 0.04),
		param.Value(16, 0.04),
	)
}

// NewSpace declares the binary-op parameter space for the given limits.
func NewSpace(l Limits, attrs Attributes) (*space.Space, error) {
	b := space.NewBuilder().Parameter(
		param.NewStrict(ParamDim, param.NewWeighted(
			param.Value(1, 0.3),
			param.Value(2, 0.4),
			param.Value(3, 0.3),
		)),
	)

	// Axis sizes are drawn both log-uniformly and from the powers of two;
	// k_i picks one of the two families.
	for i := range MaxDim {
		b.Parameter(param.New(kAny(i), param.LogUniform{Min: l.MinDimSize, Max: l.MaxDimSize}))
	}
	for i := range MaxDim {
		b.Parameter(param.New(kPow2(i), param.UniformOver(l.PowTwoSizes)))
	}
	for i := range MaxDim {
		b.Parameter(param.NewStrict(k(i), param.NewWeighted(
			param.Alias(kAny(i), 0.8),
			param.Alias(kPow2(i), 0.2),
		)))
	}
	// y either matches x along an axis or broadcasts over it.
	for i := range MaxDim {
		b.Parameter(param.NewStrict(yK(i), param.NewWeighted(
			param.Alias(k(i), 0.8),
			param.Value(1, 0.2),
		)))
	}
	for i := range MaxDim {
		b.Parameter(
			param.New(xStep(i), stepDistribution()),
			param.New(yStep(i), stepDistribution()),
		)
	}
	b.Parameter(param.New(ParamRandomValue, param.Uniform{Min: 0, Max: 1<<32 - 1}))

	b.Tensor(
		tensor.Request{
			Name:                  TensorX,
			Size:                  names(k),
			Steps:                 names(xStep),
			DimParam:              ParamDim,
			ProbabilityContiguous: probabilityContiguous,
			MinElements:           l.MinElements,
			MaxElements:           l.MaxElements,
			MaxAllocationBytes:    l.MaxAllocationBytes,
			DType:                 attrs.DType,
			Device:                attrs.Device,
			RequiresGrad:          attrs.RequiresGrad,
		},
		tensor.Request{
			Name:                  TensorY,
			Size:                  names(yK),
			Steps:                 names(yStep),
			DimParam:              ParamDim,
			ProbabilityContiguous: probabilityContiguous,
			MaxElements:           l.MaxElements,
			MaxAllocationBytes:    l.MaxAllocationBytes,
			DType:                 attrs.DType,
			Device:                attrs.Device,
			RequiresGrad:          attrs.RequiresGrad,
		},
	)
	return b.Build()
}

// ForceDim returns s with the operand rank fixed to dim.
func ForceDim(s *space.Space, dim int64) (*space.Space, error) {
	if dim < 1 || dim > MaxDim {
		return nil, fmt.Errorf("dim %d outside [1, %d]", dim, MaxDim)
	}
	return s.Override(ParamDim, param.Literal{Value: dim})
}

// ErrIncompatibleSpace means a space cannot drive the binary fuzzer.
var ErrIncompatibleSpace = errors.New("space is not a binary-op space")

// CheckSpace reports whether s declares every parameter StructureParams
// reads and the tensors x and y.
func CheckSpace(s *space.Space) error {
	required := []string{ParamDim, ParamRandomValue}
	for _, f := range []func(int) string{k, yK, xStep, yStep} {
		required = append(required, names(f)...)
	}

	var missing []string
	for _, name := range required {
		if _, ok := s.Parameter(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing parameters %s", ErrIncompatibleSpace, strings.Join(missing, ", "))
	}

	for _, name := range []string{TensorX, TensorY} {
		if !slices.ContainsFunc(s.Tensors(), func(r tensor.Request) bool { return r.Name == name }) {
			return fmt.Errorf("%w: missing tensor %q", ErrIncompatibleSpace, name)
		}
	}
	return nil
}
