// Package workpool runs independent jobs on a fixed number of workers and
// returns their results in submission order.
package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"

	"zonerama/pkg/logger"
)

// Handler processes one item. It must not panic and should return promptly
// once ctx is done.
type Handler[T, R any] func(ctx context.Context, item T) R

type job[T any] struct {
	index int
	item  T
}

type result[R any] struct {
	index int
	value R
}

// Pool fans items out to workers
type Pool[T, R any] struct {
	workers  int
	handle   Handler[T, R]
	onResult func(index int, r R)
	log      logger.Logger
}

// New creates a pool with the given number of workers (at least one)
func New[T, R any](workers int, handle Handler[T, R], log logger.Logger) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool[T, R]{workers: workers, handle: handle, log: log}
}

// OnResult registers a callback invoked from the collecting goroutine as each
// result arrives, so callers may update progress without locking.
func (p *Pool[T, R]) OnResult(fn func(index int, r R)) *Pool[T, R] {
	p.onResult = fn
	return p
}

// Run processes every item and returns the results indexed like items.
// Every item is handed to a worker even after ctx is done; the handler is
// expected to short-circuit.
func (p *Pool[T, R]) Run(ctx context.Context, items []T) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	workers := p.workers
	if workers > len(items) {
		workers = len(items)
	}
	p.log.DebugWithFields("starting worker pool", map[string]interface{}{
		"workers": workers,
		"jobs":    len(items),
	})

	jobs := make(chan job[T], workers*2)
	done := make(chan result[R], workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for j := range jobs {
				done <- result[R]{index: j.index, value: p.handle(gctx, j.item)}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for i, item := range items {
			jobs <- job[T]{index: i, item: item}
		}
	}()

	go func() {
		_ = g.Wait()
		close(done)
	}()

	for r := range done {
		results[r.index] = r.value
		if p.onResult != nil {
			p.onResult(r.index, r.value)
		}
	}

	p.log.Debug("worker pool drained")
	return results
}
