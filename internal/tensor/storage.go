package tensor

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrUnsupportedDevice = errors.New("unsupported device")
	ErrUnsupportedDType  = errors.New("unsupported dtype")
	ErrAllocationTooBig  = errors.New("allocation exceeds materializer limit")
)

// Materializer backs planned handles with storage.
type Materializer interface {
	Materialize(h *Handle, src rand.Source) error
}

// PlanOnly leaves handles as pure layout descriptors.
type PlanOnly struct{}

// Materialize implements Materializer.
func (PlanOnly) Materialize(*Handle, rand.Source) error { return nil }

// CPUAllocator allocates host memory for each handle's backing allocation
// and fills it: standard normal draws for floating-point types, uniform
// integers in [-100, 100] (or [0, 255] for uint8) otherwise, and fair coin
// flips for bool.
type CPUAllocator struct {
	// MaxBytes caps a single allocation; 0 means no cap beyond the
	// request's own budget.
	MaxBytes int64
}

// Materialize implements Materializer.
func (a CPUAllocator) Materialize(h *Handle, src rand.Source) error {
	if h.Device != CPU {
		return fmt.Errorf("tensor %q on %s: %w", h.Name, h.Device, ErrUnsupportedDevice)
	}
	if a.MaxBytes > 0 && h.AllocationBytes > a.MaxBytes {
		return fmt.Errorf("tensor %q needs %d bytes: %w", h.Name, h.AllocationBytes, ErrAllocationTooBig)
	}
	s, err := newStorage(h.DType, h.Allocation.NumElements())
	if err != nil {
		return fmt.Errorf("tensor %q: %w", h.Name, err)
	}
	s.fill(src)
	h.Storage = s
	return nil
}

// Storage is a dense, typed host buffer.
type Storage struct {
	dtype DataType
	data  any
}

func newStorage(dtype DataType, n int64) (*Storage, error) {
	var data any
	switch dtype {
	case Float32:
		data = make([]float32, n)
	case Float64:
		data = make([]float64, n)
	case Int32:
		data = make([]int32, n)
	case Int64:
		data = make([]int64, n)
	case Uint8:
		data = make([]uint8, n)
	case Bool:
		data = make([]bool, n)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, dtype)
	}
	return &Storage{dtype: dtype, data: data}, nil
}

func (s *Storage) fill(src rand.Source) {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	rng := rand.New(src)
	switch d := s.data.(type) {
	case []float32:
		for i := range d {
			d[i] = float32(normal.Rand())
		}
	case []float64:
		for i := range d {
			d[i] = normal.Rand()
		}
	case []int32:
		for i := range d {
			d[i] = int32(rng.IntN(201) - 100)
		}
	case []int64:
		for i := range d {
			d[i] = int64(rng.IntN(201) - 100)
		}
	case []uint8:
		for i := range d {
			d[i] = uint8(rng.IntN(256))
		}
	case []bool:
		for i := range d {
			d[i] = rng.IntN(2) == 1
		}
	}
}

// DType returns the element type.
func (s *Storage) DType() DataType { return s.dtype }

// Len returns the number of elements.
func (s *Storage) Len() int {
	switch d := s.data.(type) {
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	case []int32:
		return len(d)
	case []int64:
		return len(d)
	case []uint8:
		return len(d)
	case []bool:
		return len(d)
	default:
		return 0
	}
}

// AsFloat32 returns the buffer as []float32.
// Panics if the storage's dtype is not Float32.
func (s *Storage) AsFloat32() []float32 {
	if s.dtype != Float32 {
		panic(fmt.Sprintf("storage dtype is %s, not float32", s.dtype))
	}
	return s.data.([]float32)
}

// AsFloat64 returns the buffer as []float64.
// Panics if the storage's dtype is not Float64.
func (s *Storage) AsFloat64() []float64 {
	if s.dtype != Float64 {
		panic(fmt.Sprintf("storage dtype is %s, not float64", s.dtype))
	}
	return s.data.([]float64)
}

// AsInt64 returns the buffer as []int64.
// Panics if the storage's dtype is not Int64.
func (s *Storage) AsInt64() []int64 {
	if s.dtype != Int64 {
		panic(fmt.Sprintf("storage dtype is %s, not int64", s.dtype))
	}
	return s.data.([]int64)
}
