// Package param defines named, probabilistic parameters and the distributions
// they are drawn from.
//
// A parameter resolves in two phases. Choose consumes randomness and returns
// a Choice, which is either a concrete value or an alias naming another
// parameter. Resolve then turns the choice into a value using the values
// already resolved for the current sample. Keeping the phases apart lets a
// sampling engine hold a strict parameter's choice fixed while the
// parameters it aliases are redrawn.
package param
