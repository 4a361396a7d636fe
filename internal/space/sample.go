package space

import (
	"maps"
	"slices"
)

// Sample maps every declared parameter name to its resolved value for one
// trial.
type Sample map[string]int64

// Lookup adapts the sample to the lookup functions used by param and tensor.
func (s Sample) Lookup(name string) (int64, bool) {
	v, ok := s[name]
	return v, ok
}

// Clone returns an independent copy.
func (s Sample) Clone() Sample {
	return maps.Clone(s)
}

// Names returns the parameter names in sorted order.
func (s Sample) Names() []string {
	return slices.Sorted(maps.Keys(s))
}
