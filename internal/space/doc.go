// Package space holds the immutable description of a parameter space: the
// ordered set of named parameters, the tensor requests built from them and
// any extra constraints on a resolved sample.
//
// A Builder collects declarations and Build validates them as a whole:
// every alias must name a declared parameter, aliases must not form a cycle,
// and tensor requests may only read declared parameters. Build also fixes
// the resolution order used by the sampling engine. A built Space is never
// mutated and may be shared by any number of concurrent fuzzers.
package space
