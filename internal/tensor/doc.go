// Package tensor describes the tensors a fuzzer asks for and turns resolved
// parameters into concrete strided layouts.
//
// A Request names the parameters that hold a tensor's extents, per-axis step
// multipliers and dimensionality, together with its element and allocation
// budgets. Request.Layout reads those parameters from a resolved sample,
// Request.Check enforces the budgets, and Plan derives the final view: the
// memory order of the backing allocation (optionally permuted to produce a
// non-contiguous layout), the element strides of the stepped view, and
// whether that view is contiguous. A Materializer may then back the handle
// with real storage.
package tensor
