package usecase

import (
	"context"
	"sync"
	"time"
)

// Result holds the settled outcome of one keyed operation.
type Result[V any] struct {
	Value V
	Err   error
}

// RunKeyed runs fn for every key concurrently and waits until all members
// settle. A member's failure is recorded under its key and never cancels
// siblings; fallback-value selection stays with the call site. Each call is
// bounded by its own timeout so an unresponsive remote cannot hang the batch.
func RunKeyed[K comparable, V any](ctx context.Context, keys []K, timeout time.Duration, fn func(context.Context, K) (V, error)) map[K]Result[V] {
	results := make(map[K]Result[V], len(keys))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, key := range keys {
		wg.Add(1)
		go func(k K) {
			defer wg.Done()

			callCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			v, err := fn(callCtx, k)

			mu.Lock()
			results[k] = Result[V]{Value: v, Err: err}
			mu.Unlock()
		}(key)
	}

	wg.Wait()
	return results
}
