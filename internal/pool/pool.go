// Package pool provides a bounded worker pool for one-shot fan-out.
package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task processes one input. ok=false drops the result.
type Task[T, R any] func(ctx context.Context, in T) (out R, ok bool)

// PanicHandler is told about a task that panicked. The input is dropped.
type PanicHandler[T any] func(in T, err error)

// Size returns the number of workers used for n inputs with ceiling limit.
func Size(limit, n int) int {
	if n <= 0 {
		return 0
	}
	if limit <= 0 {
		limit = 1
	}
	return min(limit, n)
}

// Map runs task over inputs on Size(workers, len(inputs)) goroutines and
// returns the kept results in completion order. It returns once every
// dispatched task has finished. A failing or panicking task never affects
// the others.
func Map[T, R any](ctx context.Context, workers int, inputs []T, task Task[T, R], onPanic PanicHandler[T]) []R {
	size := Size(workers, len(inputs))
	if size == 0 {
		return nil
	}

	jobs := make(chan T)
	results := make(chan R, len(inputs))

	var g errgroup.Group
	for range size {
		g.Go(func() error {
			for in := range jobs {
				if out, ok := runTask(ctx, task, in, onPanic); ok {
					results <- out
				}
			}
			return nil
		})
	}

	for _, in := range inputs {
		jobs <- in
	}
	close(jobs)
	_ = g.Wait()
	close(results)

	out := make([]R, 0, len(results))
	for r := range results {
		out = append(out, r)
	}
	return out
}

func runTask[T, R any](ctx context.Context, task Task[T, R], in T, onPanic PanicHandler[T]) (out R, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			var zero R
			out, ok = zero, false
			if onPanic != nil {
				onPanic(in, fmt.Errorf("task panic: %v", rec))
			}
		}
	}()
	return task(ctx, in)
}
