// Package recompute caches and supersedes pipeline runs.
//
// Memo memoizes results by pipeline.Params.Key in a bounded LRU.
// Concurrent requests for the same key share one computation
// (singleflight), and freshly computed results can be written through to a
// Sink such as the run store. A caller is never failed by another caller's
// cancellation, so a Recomputer that resubmits the same parameters gets a
// result.
//
// Recomputer serves interactive callers whose parameters change faster
// than a run completes. Each Submit is tagged with a generation number and
// cancels the request before it. A finished request is published only if
// no newer request has been submitted since; otherwise it is discarded.
// Readers call Latest and always observe a complete Snapshot.
//
// Results handed out by either type are shared and must not be modified.
package recompute

import (
	"context"

	"github.com/roach88/knotfield/internal/pipeline"
)

// ComputeFunc runs one pipeline. (*pipeline.Runner).Run satisfies it.
type ComputeFunc func(ctx context.Context, p pipeline.Params) (*pipeline.Result, error)
