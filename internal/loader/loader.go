package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// BatchFunc fetches values for keys in one call.
//
// It must return a slice of the same length and order as keys, with one
// entry per key including duplicates. Absent records are represented by
// the zero value of V (nil for pointer types), never by an error.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// Option configures a Loader.
type Option func(*options)

type options struct {
	name     string
	wait     time.Duration
	maxBatch int
	logger   *slog.Logger
}

// WithWait arms a timer of length d when the first key of a batch arrives.
// The batch is dispatched when the timer fires unless it was dispatched
// earlier by Flush or WithMaxBatch.
//
// With d == 0 (the default) there is no timer and a pending batch is
// dispatched by Flush, by the size limit, or by the first Get on one of
// its thunks.
func WithWait(d time.Duration) Option {
	return func(o *options) {
		o.wait = d
	}
}

// WithMaxBatch dispatches a batch as soon as it holds n keys.
// n <= 0 means unbounded.
func WithMaxBatch(n int) Option {
	return func(o *options) {
		o.maxBatch = n
	}
}

// WithName labels the loader in logs and errors.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger used for batch diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Stats counts loader activity since construction.
type Stats struct {
	Batches   int // BatchFunc invocations
	Keys      int // keys passed to BatchFunc, duplicates included
	CacheHits int // loads answered from the cache
	Failures  int // failed batches
}

// Loader deduplicates and batches lookups for a single request.
//
// Thread-safety: all methods are safe for concurrent use. A Loader must
// not be shared across requests.
type Loader[K comparable, V any] struct {
	fetch BatchFunc[K, V]
	opts  options

	mu    sync.Mutex
	cache map[K]V
	batch *batch[K, V]
	stats Stats
}

// batch is the pending (key, thunk) list awaiting dispatch.
type batch[K comparable, V any] struct {
	ctx        context.Context
	keys       []K
	thunks     []*Thunk[V]
	timer      *time.Timer
	dispatched bool
}

// New creates a Loader backed by fetch.
func New[K comparable, V any](fetch BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader[K, V]{
		fetch: fetch,
		opts:  o,
		cache: make(map[K]V),
	}
}

// Load registers key in the pending batch and returns immediately.
// The returned Thunk resolves once the batch has been fetched, or at once
// if key is already cached.
func (l *Loader[K, V]) Load(ctx context.Context, key K) *Thunk[V] {
	l.mu.Lock()

	if v, ok := l.cache[key]; ok {
		l.stats.CacheHits++
		l.mu.Unlock()
		return Resolved(v, nil)
	}

	b := l.batch
	if b == nil {
		b = &batch[K, V]{ctx: context.WithoutCancel(ctx)}
		l.batch = b
		if l.opts.wait > 0 {
			b.timer = time.AfterFunc(l.opts.wait, func() { l.dispatchPending(b) })
		}
	}

	th := newThunk[V]()
	if l.opts.wait <= 0 {
		th.flush = func() { l.dispatchPending(b) }
	}
	b.keys = append(b.keys, key)
	b.thunks = append(b.thunks, th)

	full := l.opts.maxBatch > 0 && len(b.keys) >= l.opts.maxBatch
	if full {
		l.detach(b)
	}
	l.mu.Unlock()

	if full {
		// Load never blocks: a full batch is fetched in the background.
		go l.dispatch(b)
	}
	return th
}

// LoadMany registers every key, in order, in the pending batch.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) *ManyThunk[V] {
	thunks := make([]*Thunk[V], len(keys))
	for i, k := range keys {
		thunks[i] = l.Load(ctx, k)
	}
	return &ManyThunk[V]{thunks: thunks}
}

// Flush dispatches the pending batch, if any, and waits for it to finish.
// Flush on an empty loader is a no-op and never calls the BatchFunc.
func (l *Loader[K, V]) Flush() {
	l.mu.Lock()
	b := l.batch
	if b == nil {
		l.mu.Unlock()
		return
	}
	l.detach(b)
	l.mu.Unlock()

	l.dispatch(b)
}

// Pending returns the number of keys waiting in the current batch.
func (l *Loader[K, V]) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.batch == nil {
		return 0
	}
	return len(l.batch.keys)
}

// Clear drops key from the cache. The next Load for key is fetched again.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, key)
}

// ClearAll empties the cache.
func (l *Loader[K, V]) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[K]V)
}

// Prime stores value for key, replacing any cached entry.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[key] = value
}

// Stats returns a snapshot of the loader counters.
func (l *Loader[K, V]) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// detach removes b from the loader so new keys start a fresh batch.
// Caller must hold l.mu.
func (l *Loader[K, V]) detach(b *batch[K, V]) {
	if l.batch == b {
		l.batch = nil
	}
	b.dispatched = true
	if b.timer != nil {
		b.timer.Stop()
	}
}

// dispatchPending dispatches b unless another trigger already did.
func (l *Loader[K, V]) dispatchPending(b *batch[K, V]) {
	l.mu.Lock()
	if b.dispatched {
		l.mu.Unlock()
		return
	}
	l.detach(b)
	l.mu.Unlock()

	l.dispatch(b)
}

// dispatch runs the BatchFunc for b and resolves every thunk in it.
func (l *Loader[K, V]) dispatch(b *batch[K, V]) {
	values, err := l.call(b.ctx, b.keys)
	if err == nil && len(values) != len(b.keys) {
		err = errResultCount(len(b.keys), len(values))
	}

	l.mu.Lock()
	l.stats.Batches++
	l.stats.Keys += len(b.keys)
	if err != nil {
		l.stats.Failures++
	} else {
		for i, k := range b.keys {
			l.cache[k] = values[i]
		}
	}
	l.mu.Unlock()

	if err != nil {
		l.opts.logger.Debug("batch fetch failed", "loader", l.opts.name, "keys", len(b.keys), "error", err)
		bfe := &BatchFetchError{Loader: l.opts.name, Size: len(b.keys), Err: err}
		var zero V
		for _, th := range b.thunks {
			th.resolve(zero, bfe)
		}
		return
	}

	l.opts.logger.Debug("batch fetched", "loader", l.opts.name, "keys", len(b.keys))
	for i, th := range b.thunks {
		th.resolve(values[i], nil)
	}
}

// call invokes the BatchFunc, converting a panic into an error so that
// waiting callers are always released.
func (l *Loader[K, V]) call(ctx context.Context, keys []K) (values []V, err error) {
	defer func() {
		if r := recover(); r != nil {
			values = nil
			err = fmt.Errorf("batch function panicked: %v", r)
		}
	}()
	return l.fetch(ctx, keys)
}
