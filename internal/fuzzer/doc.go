// Package fuzzer is the sampling engine that turns a parameter space and a
// seed into a reproducible stream of trials.
//
// For each trial the engine resolves every parameter in the space's
// resolution order, substituting alias outcomes with values resolved earlier
// in the same sample. Strict parameters are chosen once per trial; when a
// resolved sample breaks a constraint or a tensor budget, the remaining
// parameters are redrawn while strict choices are kept, up to a bounded
// number of attempts. Accepted samples are turned into planned tensor
// handles and optionally backed by storage.
//
// A Fuzzer is deterministic for a given space and seed and is not safe for
// concurrent use; run one Fuzzer per goroutine over a shared Space instead.
package fuzzer
