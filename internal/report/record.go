package report

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/opfuzz/internal/binary"
	"github.com/vk/opfuzz/internal/tensor"
)

// namespace scopes trial IDs.
var namespace = uuid.MustParse("5b0f3c1e-8a44-4a3e-9a0b-6f0c2d7e1b90")

// TrialID returns the stable ID of trial index drawn with seed at scale.
func TrialID(seed int64, scale binary.Scale, index int) uuid.UUID {
	return uuid.NewSHA1(namespace, fmt.Appendf(nil, "%d/%s/%d", seed, scale, index))
}

// Operand summarizes one tensor of a trial.
type Operand struct {
	Shape           []int64 `json:"shape"`
	Steps           []int64 `json:"steps"`
	Strides         []int64 `json:"strides"`
	Order           []int   `json:"order"`
	Numel           int64   `json:"numel"`
	AllocationBytes int64   `json:"allocation_bytes"`
	Contiguous      bool    `json:"is_contiguous"`
}

func operandOf(h *tensor.Handle) Operand {
	return Operand{
		Shape:           h.Shape,
		Steps:           h.Steps,
		Strides:         h.Strides,
		Order:           h.Order,
		Numel:           h.Numel,
		AllocationBytes: h.AllocationBytes,
		Contiguous:      h.Contiguous,
	}
}

// Record is the flat form of one trial.
type Record struct {
	ID            string  `json:"id"`
	Seed          int64   `json:"seed"`
	Scale         string  `json:"scale"`
	Index         int     `json:"index"`
	Dim           int     `json:"dim"`
	XSize         []int64 `json:"x_size"`
	XSteps        []int64 `json:"x_steps"`
	YSize         []int64 `json:"y_size"`
	YSteps        []int64 `json:"y_steps"`
	Broadcast     []int64 `json:"broadcast_shape"`
	BroadcastAxes []int   `json:"broadcast_axes"`
	RandomValue   int64   `json:"random_value"`
	DType         string  `json:"dtype"`
	Device        string  `json:"device"`
	RequiresGrad  bool    `json:"requires_grad"`
	X             Operand `json:"x"`
	Y             Operand `json:"y"`
	Attempts      int     `json:"attempts"`
}

// NewRecord flattens a trial drawn with seed at scale.
func NewRecord(seed int64, scale binary.Scale, t *binary.Trial) (Record, error) {
	shape, err := t.Case.BroadcastShape()
	if err != nil {
		return Record{}, fmt.Errorf("trial %d: %w", t.Index, err)
	}
	axes := t.Case.BroadcastAxes()
	if axes == nil {
		axes = []int{}
	}
	return Record{
		ID:            TrialID(seed, scale, t.Index).String(),
		Seed:          seed,
		Scale:         scale.String(),
		Index:         t.Index,
		Dim:           t.Case.Dim(),
		XSize:         t.Case.XSize,
		XSteps:        t.Case.XSteps,
		YSize:         t.Case.YSize,
		YSteps:        t.Case.YSteps,
		Broadcast:     shape,
		BroadcastAxes: axes,
		RandomValue:   t.RandomValue,
		DType:         t.Attributes.DType.String(),
		Device:        t.Attributes.Device.String(),
		RequiresGrad:  t.Attributes.RequiresGrad,
		X:             operandOf(t.X()),
		Y:             operandOf(t.Y()),
		Attempts:      t.Attempts,
	}, nil
}
