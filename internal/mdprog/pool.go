// Public domain.

package mdprog

import (
	"context"
	"runtime"
)

// job is one unit of work with a ticket for its result.
type job[T any] struct {
	i   int
	rch chan result[T]
}

type result[T any] struct {
	v   T
	err error
}

// ordered runs f(ctx, i) for i in [0, n) on up to GOMAXPROCS workers and
// returns results in index order.  The first error stops dispatching new
// work and is returned once workers already running have finished.
func ordered[T any](ctx context.Context, n int, f func(context.Context, int) (T, error)) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// prCh keeps result tickets in submission order.  it is buffered so
	// that a fast worker can drop off a result without waiting for
	// workers ahead of it.
	maxWorkers := runtime.GOMAXPROCS(0)
	prCh := make(chan chan result[T], maxWorkers*2)
	jobCh := make(chan job[T])

	// dispatcher.  attach a ticket to each job, wait for a worker,
	// then queue the ticket for collection.
	go func() {
		defer close(prCh)
		defer close(jobCh)
		for i := 0; i < n; i++ {
			rch := make(chan result[T], 1)
			select {
			case jobCh <- job[T]{i, rch}:
			case <-ctx.Done():
				return
			}
			prCh <- rch
		}
	}()

	// workers are started only as jobs arrive; there may be more cores
	// than jobs.
	go func() {
		for w := 0; w < maxWorkers; w++ {
			j, ok := <-jobCh
			if !ok {
				return
			}
			go func() {
				for ; ok; j, ok = <-jobCh {
					v, err := f(ctx, j.i)
					j.rch <- result[T]{v, err} // buffered
				}
			}()
		}
	}()

	out := make([]T, 0, n)
	var first error
	for rch := range prCh {
		r := <-rch
		if r.err != nil && first == nil {
			first = r.err
			cancel()
		}
		out = append(out, r.v)
	}
	if first != nil {
		return nil, first
	}
	if err := ctx.Err(); err != nil && len(out) < n {
		return nil, err
	}
	return out, nil
}
