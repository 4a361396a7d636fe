package space

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/opfuzz/internal/dag"
	"github.com/vk/opfuzz/internal/param"
	"github.com/vk/opfuzz/internal/tensor"
)

// Constraint is an extra predicate a resolved sample must satisfy.
type Constraint struct {
	Name string
	OK   func(Sample) bool
}

// Space is a validated, immutable parameter space.
type Space struct {
	params      []param.Parameter
	index       map[string]int
	order       []string
	tensors     []tensor.Request
	constraints []Constraint
}

// Builder accumulates declarations for a Space.
type Builder struct {
	params      []param.Parameter
	tensors     []tensor.Request
	constraints []Constraint
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Parameter declares one named parameter.
func (b *Builder) Parameter(p ...param.Parameter) *Builder {
	b.params = append(b.params, p...)
	return b
}

// Tensor declares a tensor request.
func (b *Builder) Tensor(r ...tensor.Request) *Builder {
	b.tensors = append(b.tensors, r...)
	return b
}

// Constraint declares an extra predicate on resolved samples.
func (b *Builder) Constraint(name string, ok func(Sample) bool) *Builder {
	b.constraints = append(b.constraints, Constraint{Name: name, OK: ok})
	return b
}

// Build validates the declarations and returns the Space. All failures are
// *ConfigError values matching ErrInvalidSpace.
func (b *Builder) Build() (*Space, error) {
	s := &Space{
		params:      slices.Clone(b.params),
		index:       make(map[string]int, len(b.params)),
		tensors:     slices.Clone(b.tensors),
		constraints: slices.Clone(b.constraints),
	}

	g := dag.New()
	for i, p := range s.params {
		if err := p.Validate(); err != nil {
			return nil, &ConfigError{Kind: "parameter", Subject: p.Name, Err: err}
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, &ConfigError{Kind: "parameter", Subject: p.Name, Err: errors.New("declared more than once")}
		}
		s.index[p.Name] = i
		g.AddNode(p.Name)
	}

	for _, p := range s.params {
		for _, dep := range p.Dist.Dependencies() {
			if _, ok := s.index[dep]; !ok {
				return nil, &ConfigError{Kind: "alias", Subject: p.Name, Err: fmt.Errorf("references undeclared parameter %q", dep)}
			}
			if err := g.AddEdge(dep, p.Name); err != nil {
				return nil, &ConfigError{Kind: "alias", Subject: p.Name, Err: err}
			}
		}
	}

	order, err := g.TopologicalOrder(func(name string) bool {
		return s.params[s.index[name]].Strict
	})
	if err != nil {
		return nil, &ConfigError{Kind: "cycle", Err: err}
	}
	s.order = order

	seen := make(map[string]bool)
	for _, r := range s.tensors {
		if err := r.Validate(); err != nil {
			return nil, &ConfigError{Kind: "tensor", Subject: r.Name, Err: err}
		}
		if seen[r.Name] {
			return nil, &ConfigError{Kind: "tensor", Subject: r.Name, Err: errors.New("declared more than once")}
		}
		seen[r.Name] = true
		for _, name := range r.Parameters() {
			if _, ok := s.index[name]; !ok {
				return nil, &ConfigError{Kind: "tensor", Subject: r.Name, Err: fmt.Errorf("reads undeclared parameter %q", name)}
			}
		}
	}

	for _, c := range s.constraints {
		if c.OK == nil {
			return nil, &ConfigError{Kind: "constraint", Subject: c.Name, Err: errors.New("nil predicate")}
		}
	}
	return s, nil
}

// Parameters returns the parameters in declaration order.
func (s *Space) Parameters() []param.Parameter {
	return slices.Clone(s.params)
}

// Parameter returns the named parameter.
func (s *Space) Parameter(name string) (param.Parameter, bool) {
	i, ok := s.index[name]
	if !ok {
		return param.Parameter{}, false
	}
	return s.params[i], true
}

// Order returns parameter names in resolution order: every parameter comes
// after the parameters it aliases, and strict parameters are resolved as
// early as their dependencies allow.
func (s *Space) Order() []string {
	return slices.Clone(s.order)
}

// Tensors returns the tensor requests in declaration order.
func (s *Space) Tensors() []tensor.Request {
	return slices.Clone(s.tensors)
}

// Constraints returns the extra sample predicates.
func (s *Space) Constraints() []Constraint {
	return slices.Clone(s.constraints)
}

// Override returns a new Space in which the named parameter draws from dist
// instead. The parameter keeps its name, position and strictness.
func (s *Space) Override(name string, dist param.Distribution) (*Space, error) {
	i, ok := s.index[name]
	if !ok {
		return nil, &ConfigError{Kind: "parameter", Subject: name, Err: errors.New("cannot override undeclared parameter")}
	}
	params := slices.Clone(s.params)
	params[i].Dist = dist
	b := &Builder{params: params, tensors: s.tensors, constraints: s.constraints}
	return b.Build()
}

// WithTensorAttributes returns a new Space whose tensor requests all use the
// given dtype, device and gradient flag.
func (s *Space) WithTensorAttributes(dtype tensor.DataType, device tensor.Device, requiresGrad bool) *Space {
	out := *s
	out.tensors = slices.Clone(s.tensors)
	for i := range out.tensors {
		out.tensors[i].DType = dtype
		out.tensors[i].Device = device
		out.tensors[i].RequiresGrad = requiresGrad
	}
	return &out
}
