package loader

import (
	"context"
	"sync"
)

// Thunk is the pending result of a single Load.
type Thunk[V any] struct {
	done  chan struct{}
	once  sync.Once
	value V
	err   error

	// flush dispatches the owning batch early; nil when a wait window is
	// configured or the thunk was answered from the cache.
	flush func()
}

func newThunk[V any]() *Thunk[V] {
	return &Thunk[V]{done: make(chan struct{})}
}

// Resolved returns a thunk that already holds v and err. Resolvers use it
// to answer a field without touching a loader.
func Resolved[V any](v V, err error) *Thunk[V] {
	th := newThunk[V]()
	th.resolve(v, err)
	return th
}

func (t *Thunk[V]) resolve(v V, err error) {
	t.once.Do(func() {
		t.value = v
		t.err = err
		close(t.done)
	})
}

// Get waits for the result.
//
// If the owning batch is still pending and the loader has no wait window,
// Get dispatches it first. Get returns ctx.Err() if ctx ends before the
// batch resolves; the batch itself keeps running.
func (t *Thunk[V]) Get(ctx context.Context) (V, error) {
	select {
	case <-t.done:
		return t.value, t.err
	default:
	}

	if err := ctx.Err(); err != nil {
		var zero V
		return zero, err
	}
	if t.flush != nil {
		t.flush()
	}

	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Done is closed once the result is available.
func (t *Thunk[V]) Done() <-chan struct{} {
	return t.done
}

// ManyThunk is the pending result of LoadMany.
type ManyThunk[V any] struct {
	thunks []*Thunk[V]
}

// Get waits for every key and returns the values in request order.
// The first error encountered is returned; values are nil in that case.
func (m *ManyThunk[V]) Get(ctx context.Context) ([]V, error) {
	out := make([]V, len(m.thunks))
	for i, th := range m.thunks {
		v, err := th.Get(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Len returns the number of keys requested.
func (m *ManyThunk[V]) Len() int {
	return len(m.thunks)
}
