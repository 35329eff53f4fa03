// Package worker runs per-file work on a bounded number of goroutines.
package worker

import (
	"context"
	"sync"
)

// Task is the work done for one file
type Task[T any] func(ctx context.Context, path string) (T, error)

// Result is the outcome of one Task
type Result[T any] struct {
	Path  string
	Value T
	Err   error
}

// Pool runs one Task over many files
type Pool[T any] struct {
	task    Task[T]
	workers int
}

// NewPool creates a pool running task on up to workers goroutines
func NewPool[T any](task Task[T], workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T]{task: task, workers: workers}
}

// Run returns one result per path, in input order. Paths not yet started
// when ctx is cancelled carry ctx's error.
func (p *Pool[T]) Run(ctx context.Context, paths []string) []Result[T] {
	results := make([]Result[T], len(paths))
	if len(paths) == 0 {
		return results
	}

	workers := min(p.workers, len(paths))
	queue := make(chan int, workers*2)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				results[i] = p.do(ctx, paths[i])
			}
		}()
	}

	for i := range paths {
		queue <- i
	}
	close(queue)
	wg.Wait()

	return results
}

func (p *Pool[T]) do(ctx context.Context, path string) Result[T] {
	if err := ctx.Err(); err != nil {
		return Result[T]{Path: path, Err: err}
	}
	v, err := p.task(ctx, path)
	return Result[T]{Path: path, Value: v, Err: err}
}

// Errors returns the failed results, in order
func Errors[T any](results []Result[T]) []Result[T] {
	var out []Result[T]
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
