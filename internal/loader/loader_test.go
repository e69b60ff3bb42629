package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entity struct {
	ID string
}

// recorder is a BatchFunc that records every call it receives.
type recorder struct {
	mu      sync.Mutex
	calls   [][]string
	missing map[string]bool
	err     error
	block   chan struct{}
}

func (r *recorder) fetch(ctx context.Context, keys []string) ([]*entity, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), keys...))
	r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	out := make([]*entity, len(keys))
	for i, k := range keys {
		if r.missing[k] {
			continue
		}
		out[i] = &entity{ID: k}
	}
	return out, nil
}

func (r *recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func TestLoader_DuplicatesPreservedInOneFetch(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch)
	ctx := context.Background()

	many := l.LoadMany(ctx, []string{"1", "2", "1"})
	got, err := many.Get(ctx)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
	assert.Equal(t, "1", got[2].ID)
	assert.Equal(t, [][]string{{"1", "2", "1"}}, rec.Calls())
}

func TestLoader_PositionalDistribution(t *testing.T) {
	var calls int
	fetch := func(ctx context.Context, keys []string) ([]string, error) {
		calls++
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = fmt.Sprintf("%s@%d", k, i)
		}
		return out, nil
	}
	l := New(fetch)
	ctx := context.Background()

	a := l.Load(ctx, "a")
	b := l.Load(ctx, "b")
	c := l.Load(ctx, "c")
	l.Flush()

	for i, th := range []*Thunk[string]{a, b, c} {
		v, err := th.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%s@%d", string(rune('a'+i)), i), v)
	}
	assert.Equal(t, 1, calls)
}

func TestLoader_LoadDoesNotFetchUntilFlushed(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch)

	th := l.Load(context.Background(), "x")

	assert.Empty(t, rec.Calls())
	assert.Equal(t, 1, l.Pending())
	select {
	case <-th.Done():
		t.Fatal("thunk resolved before flush")
	default:
	}

	l.Flush()
	assert.Equal(t, 0, l.Pending())
	assert.Len(t, rec.Calls(), 1)
}

func TestLoader_CachedAfterResolution(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch)
	ctx := context.Background()

	first, err := l.Load(ctx, "k").Get(ctx)
	require.NoError(t, err)

	second, err := l.Load(ctx, "k").Get(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, rec.Calls(), 1, "second load must be served from cache")
	assert.Equal(t, 1, l.Stats().CacheHits)
}

func TestLoader_AbsentIsNotAnError(t *testing.T) {
	rec := &recorder{missing: map[string]bool{"ghost": true}}
	l := New(rec.fetch)
	ctx := context.Background()

	got, err := l.LoadMany(ctx, []string{"real", "ghost"}).Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotNil(t, got[0])
	assert.Nil(t, got[1])

	// Absent results are cached too.
	v, err := l.Load(ctx, "ghost").Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Len(t, rec.Calls(), 1)
}

func TestLoader_FailurePropagatesToEveryCaller(t *testing.T) {
	boom := errors.New("store offline")
	rec := &recorder{err: boom}
	l := New(rec.fetch, WithName("accounts"))
	ctx := context.Background()

	a := l.Load(ctx, "a")
	b := l.Load(ctx, "b")
	l.Flush()

	_, errA := a.Get(ctx)
	_, errB := b.Get(ctx)
	require.Error(t, errA)
	assert.Same(t, errA, errB, "every caller receives the same failure")
	assert.True(t, IsBatchFetchError(errA))
	assert.ErrorIs(t, errA, boom)
	assert.Contains(t, errA.Error(), "loader=accounts")

	// Nothing cached: the next load fetches again.
	rec.err = nil
	v, err := l.Load(ctx, "a").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", v.ID)
	assert.Len(t, rec.Calls(), 2)
	assert.Equal(t, 1, l.Stats().Failures)
}

func TestLoader_ManyThunkReturnsFailure(t *testing.T) {
	rec := &recorder{err: errors.New("nope")}
	l := New(rec.fetch)
	ctx := context.Background()

	got, err := l.LoadMany(ctx, []string{"a", "b"}).Get(ctx)
	assert.Nil(t, got)
	assert.True(t, IsBatchFetchError(err))
}

func TestLoader_ResultCountMismatch(t *testing.T) {
	fetch := func(ctx context.Context, keys []string) ([]*entity, error) {
		return []*entity{{ID: "only-one"}}, nil
	}
	l := New(fetch)
	ctx := context.Background()

	_, err := l.LoadMany(ctx, []string{"a", "b"}).Get(ctx)
	require.Error(t, err)
	assert.True(t, IsBatchFetchError(err))
	assert.Contains(t, err.Error(), "1 results for 2 keys")
}

func TestLoader_PanicBecomesFailure(t *testing.T) {
	fetch := func(ctx context.Context, keys []string) ([]*entity, error) {
		panic("bad fetch")
	}
	l := New(fetch)
	ctx := context.Background()

	_, err := l.Load(ctx, "a").Get(ctx)
	require.Error(t, err)
	assert.True(t, IsBatchFetchError(err))
	assert.Contains(t, err.Error(), "bad fetch")
}

func TestLoader_EmptyFlushNeverFetches(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch)

	l.Flush()
	l.Flush()

	assert.Empty(t, rec.Calls())
	assert.Equal(t, 0, l.Stats().Batches)
}

func TestLoader_LoadManyEmpty(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch)
	ctx := context.Background()

	got, err := l.LoadMany(ctx, nil).Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	l.Flush()
	assert.Empty(t, rec.Calls())
}

func TestLoader_MaxBatchSplits(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch, WithMaxBatch(2))
	ctx := context.Background()

	got, err := l.LoadMany(ctx, []string{"a", "b", "c"}).Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2].ID)

	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.ElementsMatch(t, [][]string{{"a", "b"}, {"c"}}, calls)
}

func TestLoader_WaitWindowCoalescesGoroutines(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch, WithWait(50*time.Millisecond))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*entity, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		th := l.Load(ctx, fmt.Sprintf("k%d", i))
		go func(i int) {
			defer wg.Done()
			v, err := th.Get(ctx)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	require.Len(t, rec.Calls(), 1)
	assert.Len(t, rec.Calls()[0], 5)
	for i, v := range results {
		assert.Equal(t, fmt.Sprintf("k%d", i), v.ID)
	}
}

func TestLoader_FlushBeforeWaitWindow(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch, WithWait(time.Hour))
	ctx := context.Background()

	th := l.Load(ctx, "a")
	l.Flush()

	v, err := th.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", v.ID)
	assert.Len(t, rec.Calls(), 1)
}

func TestLoader_CancelledCallerDoesNotAbortBatch(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	l := New(rec.fetch)

	a := l.Load(context.Background(), "a")
	b := l.Load(context.Background(), "b")

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Flush()
	}()
	require.Eventually(t, func() bool { return l.Pending() == 0 }, time.Second, time.Millisecond)

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Get(cctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(rec.block)
	<-done

	v, err := b.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", v.ID)

	v, err = a.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", v.ID)
}

func TestLoader_ClearAndPrime(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch)
	ctx := context.Background()

	_, err := l.Load(ctx, "a").Get(ctx)
	require.NoError(t, err)

	l.Clear("a")
	_, err = l.Load(ctx, "a").Get(ctx)
	require.NoError(t, err)
	assert.Len(t, rec.Calls(), 2)

	primed := &entity{ID: "primed"}
	l.Prime("a", primed)
	v, err := l.Load(ctx, "a").Get(ctx)
	require.NoError(t, err)
	assert.Same(t, primed, v)

	l.ClearAll()
	v, err = l.Load(ctx, "a").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", v.ID)
	assert.Len(t, rec.Calls(), 3)
}

func TestLoader_ConcurrentLoads(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch, WithWait(5*time.Millisecond))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			v, err := l.Load(ctx, key).Get(ctx)
			assert.NoError(t, err)
			assert.Equal(t, key, v.ID)
		}(i)
	}
	wg.Wait()

	stats := l.Stats()
	assert.Equal(t, 50, stats.Keys+stats.CacheHits)
}

func TestResolved(t *testing.T) {
	th := Resolved(42, nil)
	select {
	case <-th.Done():
	default:
		t.Fatal("resolved thunk must be done")
	}
	v, err := th.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Resolved[string]("", boom).Get(context.Background())
	assert.ErrorIs(t, err, boom)
}
