package fuzzer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/vk/opfuzz/internal/ctxlog"
	"github.com/vk/opfuzz/internal/param"
	"github.com/vk/opfuzz/internal/space"
	"github.com/vk/opfuzz/internal/tensor"
)

// DefaultMaxAttempts bounds how many samples one trial may draw before the
// engine gives up.
const DefaultMaxAttempts = 1000

// Stream selectors keep the parameter stream and the payload streams apart.
const (
	paramStream uint64 = 0x5851f42d4c957f2d
	dataStream  uint64 = 0x14057b7ef767814f
)

// Trial is one accepted, fully resolved sample.
type Trial struct {
	Index int
	// Params holds every declared parameter, including intermediate ones.
	Params space.Sample
	// Tensors holds one handle per tensor request, keyed by request name.
	Tensors map[string]*tensor.Handle
	// Attempts is the number of samples drawn to produce this trial.
	Attempts int
}

// Stats counts drawn and rejected samples.
type Stats struct {
	Generated int
	Rejected  int
}

// RejectionRate returns Rejected/Generated, or 0 before any draw.
func (s Stats) RejectionRate() float64 {
	if s.Generated == 0 {
		return 0
	}
	return float64(s.Rejected) / float64(s.Generated)
}

// Add returns the sum of two sets of counters.
func (s Stats) Add(o Stats) Stats {
	return Stats{Generated: s.Generated + o.Generated, Rejected: s.Rejected + o.Rejected}
}

// Option configures a Fuzzer.
type Option func(*Fuzzer)

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(f *Fuzzer) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithMaterializer sets how planned handles are backed. The default leaves
// them as layout descriptors.
func WithMaterializer(m tensor.Materializer) Option {
	return func(f *Fuzzer) {
		if m != nil {
			f.materializer = m
		}
	}
}

// Fuzzer draws trials from a Space.
type Fuzzer struct {
	space        *space.Space
	seed         int64
	src          *rand.PCG
	maxAttempts  int
	materializer tensor.Materializer

	next  int
	stats Stats
}

// New returns a Fuzzer over s seeded with seed.
func New(s *space.Space, seed int64, opts ...Option) *Fuzzer {
	f := &Fuzzer{
		space:        s,
		seed:         seed,
		src:          rand.NewPCG(uint64(seed), paramStream),
		maxAttempts:  DefaultMaxAttempts,
		materializer: tensor.PlanOnly{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Seed returns the seed the Fuzzer was built with.
func (f *Fuzzer) Seed() int64 { return f.seed }

// Space returns the parameter space.
func (f *Fuzzer) Space() *space.Space { return f.space }

// Stats returns the counters accumulated so far.
func (f *Fuzzer) Stats() Stats { return f.stats }

// Next draws the next trial. Rejected samples are retried up to the attempt
// budget, after which an *ExhaustedError is returned and no trial is
// produced. Cancellation of ctx is observed between attempts.
func (f *Fuzzer) Next(ctx context.Context) (*Trial, error) {
	logger := ctxlog.FromContext(ctx).With("seed", f.seed, "trial", f.next)
	index := f.next
	f.next++

	strict := make(map[string]param.Choice)
	var last error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sample, err := f.resolve(strict)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", index, err)
		}
		f.stats.Generated++

		layouts, err := f.check(sample)
		if err != nil {
			if !isRejection(err) {
				return nil, fmt.Errorf("trial %d: %w", index, err)
			}
			f.stats.Rejected++
			last = err
			logger.Debug("Sample rejected.", "attempt", attempt, "reason", err)
			continue
		}

		tensors, err := f.materialize(index, layouts)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", index, err)
		}
		if attempt > 1 {
			logger.Debug("Trial accepted after resampling.", "attempts", attempt)
		}
		return &Trial{Index: index, Params: sample, Tensors: tensors, Attempts: attempt}, nil
	}

	logger.Warn("Attempt budget exhausted.", "attempts", f.maxAttempts, "last", last)
	return nil, &ExhaustedError{Trial: index, Attempts: f.maxAttempts, Last: last}
}

// Trials returns a lazy, unbounded sequence of trials. Iteration stops after
// the first error is yielded or when the consumer stops. The sequence
// continues from the Fuzzer's current position; start over with a new
// Fuzzer and the same seed to replay it.
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
	for len(out) < n {
		t, err := f.Next(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}

// resolve draws one full sample. Strict choices recorded in strict are
// reused; new strict choices are recorded there.
func (f *Fuzzer) resolve(strict map[string]param.Choice) (space.Sample, error) {
	sample := make(space.Sample, len(f.space.Order()))
	for _, name := range f.space.Order() {
		p, _ := f.space.Parameter(name)

		choice, held := strict[name]
		if !held {
			choice = p.Dist.Choose(f.src)
			if p.Strict {
				strict[name] = choice
			}
		}

		v, err := choice.Resolve(sample.Lookup)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		sample[name] = v
	}
	return sample, nil
}

// check evaluates constraints and tensor budgets. Rejections are reported
// as *ConstraintError or *tensor.BudgetError; any other error means the space
// cannot lay out this sample at all.
func (f *Fuzzer) check(sample space.Sample) ([]tensor.Layout, error) {
	for _, c := range f.space.Constraints() {
		if !c.OK(sample) {
			return nil, &ConstraintError{Name: c.Name}
		}
	}

	requests := f.space.Tensors()
	layouts := make([]tensor.Layout, len(requests))
	for i, r := range requests {
		l, err := r.Layout(sample.Lookup)
		if err != nil {
			return nil, err
		}
		if err := r.Check(l); err != nil {
			return nil, err
		}
		layouts[i] = l
	}
	return layouts, nil
}

func isRejection(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) || errors.Is(err, tensor.ErrBudget)
}

func (f *Fuzzer) materialize(index int, layouts []tensor.Layout) (map[string]*tensor.Handle, error) {
	requests := f.space.Tensors()
	out := make(map[string]*tensor.Handle, len(requests))
	for i, r := range requests {
		h := tensor.Plan(r, layouts[i], f.src)
		data := rand.NewPCG(uint64(f.seed)^dataStream, uint64(index)<<16|uint64(i))
		if err := f.materializer.Materialize(h, data); err != nil {
			return nil, err
		}
		out[r.Name] = h
	}
	return out, nil
}
