// Package biotsavart computes the velocity induced by a closed vortex
// filament with a discretized, regularized Biot–Savart law.
//
// For a closed polyline r_0..r_{K-1} (edge i runs to (i+1) mod K) and
// circulation Γ:
//
//	v(r) = (Γ/4π) Σ_i dl_i × (r − m_i) / (|r − m_i|³ + ε)
//
// with dl_i = r_{i+1} − r_i and m_i the segment midpoint. The ε term keeps
// the sum finite when r lies on the filament; zero-length segments and
// queries placed exactly on a midpoint contribute exactly zero.
//
// Evaluation over many query points is the dominant cost of the pipeline
// (O(K·Q)). Query points are split into contiguous chunks evaluated
// concurrently; each point's reduction over the K segments is independent,
// so no locking is needed. Solvers are immutable and safe for concurrent
// use.
package biotsavart
