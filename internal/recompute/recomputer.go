package recompute

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/knotfield/internal/pipeline"
)

var (
	// ErrSuperseded is returned by a request that finished after a newer
	// request was submitted. Its result, if any, was discarded.
	ErrSuperseded = errors.New("recompute: superseded by a newer request")

	// ErrClosed is returned by requests submitted after Close.
	ErrClosed = errors.New("recompute: closed")
)

// Snapshot is a published result.
type Snapshot struct {
	Generation  uint64
	Params      pipeline.Params
	Result      *pipeline.Result
	PublishedAt time.Time
}

// Request tracks one Submit call.
type Request struct {
	Generation uint64

	done   chan struct{}
	result *pipeline.Result
	err    error
}

// Done is closed once the request has finished, successfully or not.
func (q *Request) Done() <-chan struct{} {
	return q.done
}

// Wait blocks until the request finishes or ctx is done. A request that was
// superseded reports ErrSuperseded.
func (q *Request) Wait(ctx context.Context) (*pipeline.Result, error) {
	select {
	case <-q.done:
		return q.result, q.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RecomputerOption configures a Recomputer.
type RecomputerOption func(*Recomputer)

// WithOnPublish registers fn to be called with every accepted snapshot.
// Calls are serialized and skip snapshots that were overtaken before fn
// could run, so fn never sees generations go backwards.
func WithOnPublish(fn func(*Snapshot)) RecomputerOption {
	return func(r *Recomputer) {
		r.onPublish = fn
	}
}

// Recomputer runs at most one useful request at a time: every Submit
// cancels the request before it.
//
// Thread-safety: all methods are safe for concurrent use.
type Recomputer struct {
	compute   ComputeFunc
	onPublish func(*Snapshot)

	mu     sync.Mutex // guards gen bumps, cancel, closed and publication
	gen    uint64
	cancel context.CancelFunc
	closed bool

	latest atomic.Pointer[Snapshot]
	wg     sync.WaitGroup
	cbMu   sync.Mutex
}

// NewRecomputer creates a Recomputer running requests with compute.
func NewRecomputer(compute ComputeFunc, opts ...RecomputerOption) *Recomputer {
	r := &Recomputer{compute: compute}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit starts computing p under a child of ctx and cancels the previous
// in-flight request. It returns immediately.
func (r *Recomputer) Submit(ctx context.Context, p pipeline.Params) *Request {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		q := &Request{done: make(chan struct{}), err: ErrClosed}
		close(q.done)
		return q
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	gen := r.gen
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	q := &Request{Generation: gen, done: make(chan struct{})}
	slog.Debug("recompute submitted", "generation", gen, "knot", p.KnotID, "key", p.Key())

	go func() {
		defer r.wg.Done()
		defer close(q.done)
		defer cancel()

		res, err := r.compute(cctx, p)
		if err != nil {
			if r.superseded(gen) {
				r.discard(q, gen)
				return
			}
			recomputeTotal.WithLabelValues(OutcomeFailed).Inc()
			slog.Warn("recompute failed", "generation", gen, "error", err)
			q.err = err
			return
		}

		snap := &Snapshot{Generation: gen, Params: p, Result: res, PublishedAt: time.Now()}
		if !r.publish(snap) {
			r.discard(q, gen)
			return
		}
		recomputeTotal.WithLabelValues(OutcomeAccepted).Inc()
		slog.Debug("recompute published", "generation", gen)
		q.result = res
		r.notify(snap)
	}()

	return q
}

// Latest returns the newest published snapshot, or nil before the first
// accepted request.
func (r *Recomputer) Latest() *Snapshot {
	return r.latest.Load()
}

// Generation returns the generation of the most recent Submit.
func (r *Recomputer) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Wait blocks until every submitted request has finished.
func (r *Recomputer) Wait() {
	r.wg.Wait()
}

// Close cancels the in-flight request, rejects further submissions and
// waits for running requests to finish.
func (r *Recomputer) Close() {
	r.mu.Lock()
	r.closed = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recomputer) superseded(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen != r.gen
}

// publish stores snap if its generation is still the newest.
func (r *Recomputer) publish(snap *Snapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap.Generation != r.gen {
		return false
	}
	r.latest.Store(snap)
	return true
}

func (r *Recomputer) discard(q *Request, gen uint64) {
	recomputeTotal.WithLabelValues(OutcomeSuperseded).Inc()
	slog.Debug("recompute discarded", "generation", gen)
	q.err = ErrSuperseded
}

func (r *Recomputer) notify(snap *Snapshot) {
	if r.onPublish == nil {
		return
	}
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	if cur := r.latest.Load(); cur != snap {
		return
	}
	r.onPublish(snap)
}
