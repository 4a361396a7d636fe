// Package dag maintains the dependency graph between named parameters of a
// parameter space. An edge from A to B records that B aliases A and can only
// be resolved once A holds a concrete value.
//
// The graph rejects self references and unknown endpoints when edges are
// added, reports cycles together with the offending path, and produces a
// deterministic topological order whose ties are broken by a caller-supplied
// priority and then by insertion order.
package dag
