package recompute

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/knotfield/internal/pipeline"
)

// DefaultCapacity is the default number of results a Memo retains.
const DefaultCapacity = 64

// Sink receives every result a Memo computes. *store.Store implements it.
type Sink interface {
	Record(ctx context.Context, res *pipeline.Result) error
}

// MemoStats is a point-in-time view of Memo counters.
type MemoStats struct {
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Computed  int64 `json:"computed"`
	Evictions int64 `json:"evictions"`
}

// MemoOption configures a Memo.
type MemoOption func(*Memo)

// WithCapacity bounds the number of retained results. Values < 1 are
// ignored.
func WithCapacity(n int) MemoOption {
	return func(m *Memo) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithSink writes every computed result through to s. A failing sink is
// logged and does not fail the lookup.
func WithSink(s Sink) MemoOption {
	return func(m *Memo) {
		m.sink = s
	}
}

// Memo is a bounded LRU of pipeline results keyed by parameter key.
//
// Thread-safety: all methods are safe for concurrent use.
type Memo struct {
	compute  ComputeFunc
	capacity int
	sink     Sink

	mu      sync.Mutex
	epoch   uint64 // bumped by Purge
	entries map[string]*list.Element
	lru     *list.List // front = most recently used; values are *memoEntry
	flight  singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	computed  atomic.Int64
	evictions atomic.Int64
}

type memoEntry struct {
	key    string
	result *pipeline.Result
}

// NewMemo creates a Memo computing misses with compute.
func NewMemo(compute ComputeFunc, opts ...MemoOption) *Memo {
	m := &Memo{
		compute:  compute,
		capacity: DefaultCapacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the result for p, computing it on a miss.
//
// Concurrent misses on the same key share a single computation that runs
// under the ctx of the caller that started it. Every caller stops waiting
// when its own ctx is done. A caller that joined a computation whose
// starter was cancelled retries under its own ctx instead of inheriting
// the cancellation. Errors are not cached.
func (m *Memo) Get(ctx context.Context, p pipeline.Params) (*pipeline.Result, error) {
	key := p.Key()
	if res, ok := m.lookup(key); ok {
		m.hits.Add(1)
		memoLookups.WithLabelValues("hit").Inc()
		return res, nil
	}
	m.misses.Add(1)
	memoLookups.WithLabelValues("miss").Inc()

	for {
		epoch := m.currentEpoch()
		led := false
		ch := m.flight.DoChan(flightKey(epoch, key), func() (interface{}, error) {
			led = true
			return m.fill(ctx, p, key, epoch)
		})

		var r singleflight.Result
		select {
		case r = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if r.Err != nil {
			if !led && ctx.Err() == nil && isContextErr(r.Err) {
				slog.Debug("memo computation abandoned by its starter, retrying", "key", key)
				continue
			}
			return nil, r.Err
		}
		if r.Shared {
			slog.Debug("memo computation shared", "key", key)
		}
		return r.Val.(*pipeline.Result), nil
	}
}

// fill computes p and caches the result unless the memo was purged since
// epoch.
func (m *Memo) fill(ctx context.Context, p pipeline.Params, key string, epoch uint64) (*pipeline.Result, error) {
	// A flight that finished between lookup and DoChan has already
	// inserted the entry.
	if res, ok := m.lookup(key); ok {
		return res, nil
	}
	res, err := m.compute(ctx, p)
	if err != nil {
		return nil, err
	}
	m.computed.Add(1)
	if !m.insert(epoch, key, res) {
		slog.Debug("memo result dropped after purge", "key", key)
		return res, nil
	}
	if m.sink != nil {
		if err := m.sink.Record(ctx, res); err != nil {
			slog.Warn("memo sink failed", "key", key, "error", err)
		}
	}
	return res, nil
}

func flightKey(epoch uint64, key string) string {
	return strconv.FormatUint(epoch, 10) + "/" + key
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Peek returns a cached result without computing or touching recency.
func (m *Memo) Peek(p pipeline.Params) (*pipeline.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[p.Key()]
	if !ok {
		return nil, false
	}
	return el.Value.(*memoEntry).result, true
}

// Len returns the number of cached results.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Purge drops every cached result. Computations already running when Purge
// is called still answer their callers but are not cached, and later
// lookups do not join them. Counters are kept.
func (m *Memo) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.entries = make(map[string]*list.Element)
	m.lru.Init()
}

// Stats returns current counters.
func (m *Memo) Stats() MemoStats {
	return MemoStats{
		Entries:   m.Len(),
		Capacity:  m.capacity,
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Computed:  m.computed.Load(),
		Evictions: m.evictions.Load(),
	}
}

func (m *Memo) lookup(key string) (*pipeline.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	m.lru.MoveToFront(el)
	return el.Value.(*memoEntry).result, true
}

func (m *Memo) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// insert caches res unless a Purge happened after epoch.
func (m *Memo) insert(epoch uint64, key string, res *pipeline.Result) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch {
		return false
	}
	if el, ok := m.entries[key]; ok {
		el.Value.(*memoEntry).result = res
		m.lru.MoveToFront(el)
		return true
	}
	for m.lru.Len() >= m.capacity {
		oldest := m.lru.Back()
		m.lru.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoEntry).key)
		m.evictions.Add(1)
	}
	m.entries[key] = m.lru.PushFront(&memoEntry{key: key, result: res})
	return true
}
