package param

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Kind tags the variant of a Distribution.
type Kind int

const (
	KindLiteral Kind = iota
	KindUniform
	KindLogUniform
	KindWeighted
)

// String returns the name used in declarative space files.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindUniform:
		return "uniform"
	case KindLogUniform:
		return "loguniform"
	case KindWeighted:
		return "weighted"
	default:
		return "unknown"
	}
}

// maxExactRange bounds integer ranges so every value stays representable
// in the float64 draw.
const maxExactRange = 1 << 52

// Distribution is the resolution rule of a parameter.
type Distribution interface {
	Kind() Kind
	// Validate reports configuration errors, wrapping ErrInvalidParameter.
	Validate() error
	// Dependencies lists the parameter names this distribution may alias.
	Dependencies() []string
	// Choose draws one outcome from src. It must only be called on a
	// distribution that passed Validate.
	Choose(src rand.Source) Choice
	String() string
}

// Literal always yields Value.
type Literal struct {
	Value int64
}

func (Literal) Kind() Kind                  { return KindLiteral }
func (Literal) Validate() error             { return nil }
func (Literal) Dependencies() []string      { return nil }
func (d Literal) Choose(rand.Source) Choice { return Choice{Value: d.Value} }
func (d Literal) String() string            { return fmt.Sprintf("%d", d.Value) }

// Uniform draws an integer uniformly from [Min, Max].
type Uniform struct {
	Min, Max int64
}

func (Uniform) Kind() Kind             { return KindUniform }
func (Uniform) Dependencies() []string { return nil }

func (d Uniform) Validate() error {
	if d.Min > d.Max {
		return fmt.Errorf("%w: uniform min %d > max %d", ErrInvalidParameter, d.Min, d.Max)
	}
	if uint64(d.Max-d.Min) >= maxExactRange {
		return fmt.Errorf("%w: uniform range [%d, %d] too wide", ErrInvalidParameter, d.Min, d.Max)
	}
	return nil
}

func (d Uniform) Choose(src rand.Source) Choice {
	u := distuv.Uniform{Min: float64(d.Min), Max: float64(d.Max) + 1, Src: src}
	return Choice{Value: clamp(int64(math.Floor(u.Rand())), d.Min, d.Max)}
}

func (d Uniform) String() string { return fmt.Sprintf("uniform[%d, %d]", d.Min, d.Max) }

// LogUniform draws trunc(2^u) with u uniform in [log2 Min, log2 Max], so
// every order of magnitude between the bounds is equally likely.
type LogUniform struct {
	Min, Max int64
}

func (LogUniform) Kind() Kind             { return KindLogUniform }
func (LogUniform) Dependencies() []string { return nil }

func (d LogUniform) Validate() error {
	if d.Min <= 0 {
		return fmt.Errorf("%w: loguniform min must be positive, got %d", ErrInvalidParameter, d.Min)
	}
	if d.Min > d.Max {
		return fmt.Errorf("%w: loguniform min %d > max %d", ErrInvalidParameter, d.Min, d.Max)
	}
	return nil
}

func (d LogUniform) Choose(src rand.Source) Choice {
	u := distuv.Uniform{Min: math.Log2(float64(d.Min)), Max: math.Log2(float64(d.Max)), Src: src}
	return Choice{Value: clamp(int64(math.Exp2(u.Rand())), d.Min, d.Max)}
}

func (d LogUniform) String() string { return fmt.Sprintf("loguniform[%d, %d]", d.Min, d.Max) }

func clamp(v, lo, hi int64) int64 {
	return max(lo, min(v, hi))
}
