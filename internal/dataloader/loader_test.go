package dataloader

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/endpoint"
)

type countingFetcher struct {
	singleCalls int32
	batchCalls  int32
	batchFn     func(inputs []*dynamicvalue.Value) ([]*dynamicvalue.Value, error)
}

func (f *countingFetcher) Single(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	atomic.AddInt32(&f.singleCalls, 1)
	return input, nil
}

func (f *countingFetcher) Batch(ctx context.Context, ep *endpoint.Endpoint, inputs []*dynamicvalue.Value) ([]*dynamicvalue.Value, error) {
	atomic.AddInt32(&f.batchCalls, 1)
	if f.batchFn != nil {
		return f.batchFn(inputs)
	}
	return inputs, nil
}

func staticEndpoint() *endpoint.Endpoint {
	return &endpoint.Endpoint{Method: endpoint.MethodGet, Scheme: "http", Host: "h", Port: 80, Path: "/p"}
}

func TestLoadDedupesConcurrentIdenticalCalls(t *testing.T) {
	fetcher := &countingFetcher{}
	loader := New(fetcher, DefaultConfig)
	ep := staticEndpoint()

	var wg syncWaitGroup
	results := make([]*dynamicvalue.Value, 10)
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		i := i
		wg.add(func() {
			v, err := loader.Load(context.Background(), ep, dynamicvalue.String("same"))
			results[i], errs[i] = v, err
		})
	}
	wg.wait()

	for i := range results {
		require.NoError(t, errs[i])
		s, _ := results[i].AsString()
		require.Equal(t, "same", s)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&fetcher.singleCalls))
}

func TestBatchCoalescesIntoOneFetch(t *testing.T) {
	fetcher := &countingFetcher{}
	loader := New(fetcher, Config{Delay: 20 * time.Millisecond, MaxSize: 100})
	ep := staticEndpoint()
	ep.Batch = &endpoint.BatchConfig{GroupBy: []string{"id"}}

	var wg syncWaitGroup
	results := make([]*dynamicvalue.Value, 5)
	for i := 0; i < 5; i++ {
		i := i
		wg.add(func() {
			v, err := loader.Load(context.Background(), ep, dynamicvalue.Int(int64(i)))
			require.NoError(t, err)
			results[i] = v
		})
	}
	wg.wait()

	require.Equal(t, int32(1), fetcher.batchCalls)
	for i, r := range results {
		n, _ := r.AsInt()
		require.Equal(t, int64(i), n)
	}
}

func TestBatchLengthMismatchFailsWholeBatch(t *testing.T) {
	fetcher := &countingFetcher{
		batchFn: func(inputs []*dynamicvalue.Value) ([]*dynamicvalue.Value, error) {
			return inputs[:len(inputs)-1], nil
		},
	}
	loader := New(fetcher, Config{Delay: 20 * time.Millisecond, MaxSize: 100})
	ep := staticEndpoint()
	ep.Batch = &endpoint.BatchConfig{GroupBy: []string{"id"}}

	var wg syncWaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		i := i
		wg.add(func() {
			_, err := loader.Load(context.Background(), ep, dynamicvalue.Int(int64(i)))
			errs[i] = err
		})
	}
	wg.wait()

	for _, err := range errs {
		require.Error(t, err)
	}
}

// syncWaitGroup is a tiny helper so each test can fan out goroutines
// without importing sync directly for just this one pattern.
type syncWaitGroup struct {
	fns []func()
}

func (w *syncWaitGroup) add(fn func()) { w.fns = append(w.fns, fn) }

func (w *syncWaitGroup) wait() {
	done := make(chan struct{}, len(w.fns))
	for _, fn := range w.fns {
		fn := fn
		go func() {
			fn()
			done <- struct{}{}
		}()
	}
	for range w.fns {
		<-done
	}
}
