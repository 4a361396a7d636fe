package binary

import (
	"context"
	"fmt"
	"iter"

	"github.com/vk/opfuzz/internal/fuzzer"
	"github.com/vk/opfuzz/internal/space"
	"github.com/vk/opfuzz/internal/tensor"
)

// Options configure a Fuzzer. The zero value generates small float32 CPU
// operands without storage.
type Options struct {
	Attributes   Attributes
	Scale        Scale
	MaxAttempts  int
	Materializer tensor.Materializer
	// Space replaces the space derived from Scale and Attributes, e.g. one
	// returned by ForceDim or loaded from HCL. New rejects it unless
	// CheckSpace accepts it.
	Space *space.Space
}

// Trial is one generated pair of operands.
type Trial struct {
	Index int
	Case  Case
	// Tensors holds the x and y handles.
	Tensors     map[string]*tensor.Handle
	Attributes  Attributes
	RandomValue int64
	// Raw is the full resolved sample, intermediate parameters included.
	Raw      space.Sample
	Attempts int
}

// X returns the left operand.
func (t *Trial) X() *tensor.Handle { return t.Tensors[TensorX] }

// Y returns the right operand.
func (t *Trial) Y() *tensor.Handle { return t.Tensors[TensorY] }

// Fuzzer generates binary-op trials for one seed.
type Fuzzer struct {
	engine *fuzzer.Fuzzer
	attrs  Attributes
	scale  Scale
}

// New returns a Fuzzer seeded with seed.
func New(seed int64, opts Options) (*Fuzzer, error) {
	s := opts.Space
	if s == nil {
		l, err := LimitsFor(opts.Scale)
		if err != nil {
			return nil, err
		}
		if s, err = NewSpace(l, opts.Attributes); err != nil {
			return nil, fmt.Errorf("building %s space: %w", opts.Scale, err)
		}
	} else if err := CheckSpace(s); err != nil {
		return nil, err
	}

	var engineOpts []fuzzer.Option
	if opts.MaxAttempts > 0 {
		engineOpts = append(engineOpts, fuzzer.WithMaxAttempts(opts.MaxAttempts))
	}
	if opts.Materializer != nil {
		engineOpts = append(engineOpts, fuzzer.WithMaterializer(opts.Materializer))
	}

	return &Fuzzer{
		engine: fuzzer.New(s, seed, engineOpts...),
		attrs:  opts.Attributes,
		scale:  opts.Scale,
	}, nil
}

// NewDefault returns a Fuzzer with DefaultAttributes at the given scale.
func NewDefault(seed int64, scale Scale) (*Fuzzer, error) {
	return New(seed, Options{Attributes: DefaultAttributes(), Scale: scale})
}

// Seed returns the seed.
func (f *Fuzzer) Seed() int64 { return f.engine.Seed() }

// Scale returns the scale regime.
func (f *Fuzzer) Scale() Scale { return f.scale }

// Stats returns the engine counters.
func (f *Fuzzer) Stats() fuzzer.Stats { return f.engine.Stats() }

// Next draws the next trial.
func (f *Fuzzer) Next(ctx context.Context) (*Trial, error) {
	t, err := f.engine.Next(ctx)
	if err != nil {
		return nil, err
	}
	c, err := StructureParams(t.Params)
	if err != nil {
		return nil, fmt.Errorf("trial %d: %w", t.Index, err)
	}
	return &Trial{
		Index:       t.Index,
		Case:        c,
		Tensors:     t.Tensors,
		Attributes:  f.attrs,
		RandomValue: t.Params[ParamRandomValue],
		Raw:         t.Params,
		Attempts:    t.Attempts,
	}, nil
}

// Trials returns a lazy, unbounded sequence of trials that stops after the
// first error. Replaying requires a new Fuzzer with the same seed.
func (f *Fuzzer) Trials(ctx context.Context) iter.Seq2[*Trial, error] {
	return func(yield func(*Trial, error) bool) {
		for {
			t, err := f.Next(ctx)
			if !yield(t, err) || err != nil {
				return
			}
		}
	}
}

// Take collects the next n trials.
func (f *Fuzzer) Take(ctx context.Context, n int) ([]*Trial, error) {
	out := make([]*Trial, 0, n)
	for range n {
		t, err := f.Next(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}
