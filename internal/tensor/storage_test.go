package tensor

import (
	"math/rand/v2"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planned(dtype DataType, device Device, size Shape) *Handle {
	r := Request{Name: "x", ProbabilityContiguous: 1, DType: dtype, Device: device}
	steps := make([]int64, len(size))
	for i := range steps {
		steps[i] = 1
	}
	return Plan(r, Layout{Size: size, Steps: steps, Allocation: size.Clone()}, rand.NewPCG(0, 0))
}

func TestPlanOnlyLeavesStorageEmpty(t *testing.T) {
	h := planned(Float32, CUDA, Shape{4})
	require.NoError(t, PlanOnly{}.Materialize(h, rand.NewPCG(1, 1)))
	assert.Nil(t, h.Storage)
}

func TestCPUAllocatorFillsNormalFloats(t *testing.T) {
	h := planned(Float64, CPU, Shape{100, 100})
	require.NoError(t, CPUAllocator{}.Materialize(h, rand.NewPCG(5, 6)))
	require.NotNil(t, h.Storage)
	assert.Equal(t, Float64, h.Storage.DType())
	assert.Equal(t, 10000, h.Storage.Len())

	mean, err := stats.Mean(h.Storage.AsFloat64())
	require.NoError(t, err)
	std, err := stats.StandardDeviation(h.Storage.AsFloat64())
	require.NoError(t, err)
	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 1, std, 0.05)
}

func TestCPUAllocatorIsDeterministic(t *testing.T) {
	a := planned(Float32, CPU, Shape{64})
	b := planned(Float32, CPU, Shape{64})
	require.NoError(t, CPUAllocator{}.Materialize(a, rand.NewPCG(9, 9)))
	require.NoError(t, CPUAllocator{}.Materialize(b, rand.NewPCG(9, 9)))
	assert.Equal(t, a.Storage.AsFloat32(), b.Storage.AsFloat32())
}

func TestCPUAllocatorIntegers(t *testing.T) {
	h := planned(Int64, CPU, Shape{1000})
	require.NoError(t, CPUAllocator{}.Materialize(h, rand.NewPCG(2, 3)))
	for _, v := range h.Storage.AsInt64() {
		require.GreaterOrEqual(t, v, int64(-100))
		require.LessOrEqual(t, v, int64(100))
	}
	assert.Panics(t, func() { h.Storage.AsFloat32() })
}

func TestCPUAllocatorRejects(t *testing.T) {
	err := CPUAllocator{}.Materialize(planned(Float32, CUDA, Shape{4}), rand.NewPCG(1, 1))
	assert.ErrorIs(t, err, ErrUnsupportedDevice)

	err = CPUAllocator{}.Materialize(planned(Float16, CPU, Shape{4}), rand.NewPCG(1, 1))
	assert.ErrorIs(t, err, ErrUnsupportedDType)

	err = CPUAllocator{MaxBytes: 8}.Materialize(planned(Float32, CPU, Shape{4}), rand.NewPCG(1, 1))
	assert.ErrorIs(t, err, ErrAllocationTooBig)
}
