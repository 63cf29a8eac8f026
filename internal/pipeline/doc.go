// Package pipeline chains the numerical stages into one run.
//
// A run flows through five stages in order:
//
//	coefficients → curve points → velocity field → vorticity field → invariants
//
// Run executes the chain for a single coefficient block. Runner adds the
// surrounding concerns: it resolves knot identifiers through a BlockSource,
// stamps every result with a run id and measures wall time.
//
// Params is immutable once built. Params.Key derives a content-addressed
// key from every field that affects the numerical result, so two runs with
// equal keys produce identical invariants. Caches and the run store index
// by this key.
package pipeline
