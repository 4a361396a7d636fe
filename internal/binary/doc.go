// Package binary generates inputs for element-wise binary operators.
//
// Each trial draws a left operand x and a right operand y of up to three
// axes. Axis extents mix log-uniform sizes with powers of two, y sometimes
// collapses an axis to 1 so that it broadcasts against x, and both operands
// may be stepped (strided) views into a larger allocation with a permuted
// memory order. The scale regime bounds axis sizes and the minimum size of x.
//
// NewSpace declares the parameter space, StructureParams projects a resolved
// sample onto the four fields a benchmark needs, and Fuzzer ties both to the
// sampling engine.
package binary
