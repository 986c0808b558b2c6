// Package dataloader implements the request-scoped dedup and batch-window
// coalescing layer from spec.md §4.3: every Unsafe.endpointCall in a single
// GraphQL request is routed through one Loader so that identical calls
// share one upstream round trip, and calls against a @batch-annotated field
// accumulate into a shared window before the upstream is hit once.
package dataloader

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/endpoint"
	"github.com/tailcall-go/tailcall/internal/gqlerr"
)

// Fetcher performs the actual wire call(s) an Endpoint describes. Single
// issues one logical call; Batch issues N logical calls coalesced into one
// upstream round trip (spec.md §4.3(b)) and must return exactly len(inputs)
// results in the same order, or an error if the upstream's own response
// shape didn't line up — BatchingError handling lives in Loader, not here.
type Fetcher interface {
	Single(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error)
	Batch(ctx context.Context, ep *endpoint.Endpoint, inputs []*dynamicvalue.Value) ([]*dynamicvalue.Value, error)
}

// Config tunes batch-window behavior.
type Config struct {
	// Delay is how long a window stays open accumulating calls before it is
	// flushed, started from the first call to join the window.
	Delay time.Duration
	// MaxSize closes a window immediately once it reaches this many calls,
	// without waiting out Delay.
	MaxSize int
}

// DefaultConfig matches spec.md §4.3(b)'s seed scenario: a short
// coalescing window, generous enough to catch same-tick fan-out from a
// single GraphQL selection set.
var DefaultConfig = Config{Delay: 10 * time.Millisecond, MaxSize: 1000}

// Loader is constructed once per GraphQL request (spec.md §4.3(a): dedup
// scope is the single request) and discarded afterward.
type Loader struct {
	fetcher Fetcher
	cfg     Config

	flight  singleflight.Group
	done    sync.Map // fingerprint -> *dynamicvalue.Value of a completed deduped call
	windows *xsync.Map[string, *batchWindow]
}

func New(fetcher Fetcher, cfg Config) *Loader {
	return &Loader{fetcher: fetcher, cfg: cfg, windows: xsync.NewMap[string, *batchWindow]()}
}

type batchEntry struct {
	input  *dynamicvalue.Value
	result chan batchResult
}

type batchResult struct {
	value *dynamicvalue.Value
	err   error
}

type batchWindow struct {
	mu      sync.Mutex
	ep      *endpoint.Endpoint
	entries []*batchEntry
	timer   *time.Timer
	closed  bool
}

// Load resolves a single Unsafe.endpointCall, deduplicating identical calls
// within this request and, for @batch fields, coalescing with concurrent
// sibling calls against the same endpoint shape.
func (l *Loader) Load(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	if ep.Batch != nil {
		return l.loadBatched(ctx, ep, input)
	}
	return l.loadDeduped(ctx, ep, input)
}

func (l *Loader) loadDeduped(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	req, err := endpoint.Evaluate(ep, input)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindEvaluation, err, "build request")
	}
	fp := endpoint.Fingerprint(req, nil)

	v, err, _ := l.flight.Do(fp, func() (interface{}, error) {
		if prev, ok := l.done.Load(fp); ok {
			return prev, nil
		}
		res, err := l.fetcher.Single(ctx, ep, input)
		if err != nil {
			return nil, err
		}
		l.done.Store(fp, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dynamicvalue.Value), nil
}

func (l *Loader) loadBatched(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	req, err := endpoint.Evaluate(ep, input)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindEvaluation, err, "build request")
	}
	shape := endpoint.ShapeKey(ep, req)

	entry := &batchEntry{input: input, result: make(chan batchResult, 1)}

	for {
		win, _ := l.windows.LoadOrStore(shape, &batchWindow{ep: ep})
		win.mu.Lock()
		if win.closed {
			win.mu.Unlock()
			continue // lost the race with a flush; retry against a fresh window
		}
		win.entries = append(win.entries, entry)
		if len(win.entries) >= l.cfg.MaxSize {
			win.closed = true
			if win.timer != nil {
				win.timer.Stop()
			}
			entries := win.entries
			win.mu.Unlock()
			l.windows.Delete(shape)
			go l.flush(ctx, win.ep, entries)
		} else {
			if win.timer == nil {
				win.timer = time.AfterFunc(l.cfg.Delay, func() {
					win.mu.Lock()
					if win.closed {
						win.mu.Unlock()
						return
					}
					win.closed = true
					entries := win.entries
					win.mu.Unlock()
					l.windows.Delete(shape)
					l.flush(ctx, win.ep, entries)
				})
			}
			win.mu.Unlock()
		}
		break
	}

	select {
	case res := <-entry.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// flush executes the batched fetch and distributes results back to every
// logical caller waiting on the window. A length mismatch between results
// and entries fails the whole batch (SPEC_FULL.md §11 Open Question (b)):
// there is no reliable way to attribute upstream results to individual
// callers once the upstream's own response shape disagrees with the
// request it was sent.
func (l *Loader) flush(ctx context.Context, ep *endpoint.Endpoint, entries []*batchEntry) {
	inputs := make([]*dynamicvalue.Value, len(entries))
	for i, e := range entries {
		inputs[i] = e.input
	}

	results, err := l.fetcher.Batch(ctx, ep, inputs)
	if err == nil && len(results) != len(entries) {
		err = gqlerr.New(gqlerr.KindBatching, "upstream returned %d results for a batch of %d", len(results), len(entries))
	}
	if err != nil {
		for _, e := range entries {
			e.result <- batchResult{err: gqlerr.Wrap(gqlerr.KindBatching, err, "batch fetch failed")}
		}
		return
	}

	for i, e := range entries {
		e.result <- batchResult{value: results[i]}
	}
}
