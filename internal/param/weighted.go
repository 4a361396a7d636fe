package param

import (
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Outcome is one candidate of a Weighted distribution.
type Outcome struct {
	Value  int64
	Alias  string
	Weight float64
}

// Value returns a literal outcome.
func Value(v int64, weight float64) Outcome {
	return Outcome{Value: v, Weight: weight}
}

// Alias returns an outcome that reuses the resolved value of name.
func Alias(name string, weight float64) Outcome {
	return Outcome{Alias: name, Weight: weight}
}

func (o Outcome) String() string {
	if o.Alias != "" {
		return fmt.Sprintf("alias(%s):%g", o.Alias, o.Weight)
	}
	return fmt.Sprintf("%d:%g", o.Value, o.Weight)
}

// Weighted picks one of its outcomes with probability proportional to its
// weight. Outcomes keep their declaration order.
type Weighted struct {
	Outcomes []Outcome
}

// NewWeighted returns a Weighted distribution over outcomes.
func NewWeighted(outcomes ...Outcome) Weighted {
	return Weighted{Outcomes: outcomes}
}

// UniformOver gives every value the same weight.
func UniformOver(values []int64) Weighted {
	outcomes := make([]Outcome, len(values))
	for i, v := range values {
		outcomes[i] = Value(v, 1/float64(len(values)))
	}
	return Weighted{Outcomes: outcomes}
}

// PowersOfTwo returns the powers of two in [lo, hi], ascending.
func PowersOfTwo(lo, hi int64) []int64 {
	if hi < 1 || lo > hi {
		return nil
	}
	var out []int64
	for e := 0; e < 63; e++ {
		p := int64(1) << e
		if p > hi {
			break
		}
		if p >= lo {
			out = append(out, p)
		}
	}
	return out
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo(v int64) bool {
	return v > 0 && bits.OnesCount64(uint64(v)) == 1
}

func (Weighted) Kind() Kind { return KindWeighted }

func (d Weighted) Validate() error {
	if len(d.Outcomes) == 0 {
		return fmt.Errorf("%w: weighted distribution has no outcomes", ErrInvalidParameter)
	}
	total := 0.0
	for i, o := range d.Outcomes {
		if o.Weight < 0 || math.IsNaN(o.Weight) || math.IsInf(o.Weight, 0) {
			return fmt.Errorf("%w: outcome %d has weight %g", ErrInvalidParameter, i, o.Weight)
		}
		total += o.Weight
	}
	if total == 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidParameter)
	}
	return nil
}

func (d Weighted) Dependencies() []string {
	var deps []string
	seen := make(map[string]bool)
	for _, o := range d.Outcomes {
		if o.Alias != "" && !seen[o.Alias] {
			seen[o.Alias] = true
			deps = append(deps, o.Alias)
		}
	}
	return deps
}

// Probabilities returns the normalized weights in outcome order.
func (d Weighted) Probabilities() []float64 {
	total := 0.0
	for _, o := range d.Outcomes {
		total += o.Weight
	}
	p := make([]float64, len(d.Outcomes))
	for i, o := range d.Outcomes {
		p[i] = o.Weight / total
	}
	return p
}

func (d Weighted) Choose(src rand.Source) Choice {
	weights := make([]float64, len(d.Outcomes))
	for i, o := range d.Outcomes {
		weights[i] = o.Weight
	}
	o := d.Outcomes[int(distuv.NewCategorical(weights, src).Rand())]
	return Choice{Value: o.Value, Alias: o.Alias}
}

func (d Weighted) String() string {
	parts := make([]string, len(d.Outcomes))
	for i, o := range d.Outcomes {
		parts[i] = o.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
