// Package pool runs tasks with a sliding-window concurrency cap and a
// per-task wall-clock timeout.
//
// The pool never lets one stuck task block overall progress: when a
// task exceeds its timeout the slot is reclaimed and the task is
// recorded as timed out even if the underlying goroutine (typically
// blocked on an external process) has not returned. The orphaned work
// keeps running detached; that is an accepted cost of always draining.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Task is one unit of work. Key correlates the result back to its
// origin; completion order is nondeterministic so position never
// identifies a task.
type Task[T any] struct {
	Key string
	Run func(ctx context.Context) (T, error)
}

// Result is the outcome of one task.
type Result[T any] struct {
	Key      string
	Value    T
	Err      error
	TimedOut bool
	Duration time.Duration
}

// Pool executes tasks with bounded concurrency. The zero value is not
// usable; construct with New.
type Pool[T any] struct {
	cap     int
	timeout time.Duration

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// New creates a pool with the given concurrency cap and per-task
// timeout. A cap below one is treated as one; a zero timeout disables
// the per-task deadline.
func New[T any](maxConcurrency int, perTaskTimeout time.Duration) *Pool[T] {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Pool[T]{cap: maxConcurrency, timeout: perTaskTimeout}
}

// MaxInFlight returns the highest number of tasks ever observed
// running simultaneously. Used to verify the cap in tests.
func (p *Pool[T]) MaxInFlight() int64 {
	return p.maxInFlight.Load()
}

// RunAll executes every task and returns exactly one result per task,
// in submission order. A task's failure never aborts its siblings; the
// pool always drains. Cancelling ctx stops launching new tasks and
// records ctx.Err() for the tasks never started.
func (p *Pool[T]) RunAll(ctx context.Context, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	sem := make(chan struct{}, p.cap)
	var wg sync.WaitGroup

	for i, task := range tasks {
		select {
		case <-ctx.Done():
			results[i] = Result[T]{Key: task.Key, Err: ctx.Err()}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go p.supervise(ctx, task, &results[i], sem, &wg)
	}

	wg.Wait()
	return results
}

// supervise runs one task and releases the slot when the task
// completes or times out, whichever comes first.
func (p *Pool[T]) supervise(ctx context.Context, task Task[T], out *Result[T], sem chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() { <-sem }()

	p.trackStart()
	defer p.inFlight.Add(-1)

	taskCtx := ctx
	var cancel context.CancelFunc
	var deadline <-chan time.Time
	if p.timeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	start := time.Now()
	done := make(chan Result[T], 1)
	go func() {
		value, err := task.Run(taskCtx)
		done <- Result[T]{Key: task.Key, Value: value, Err: err, Duration: time.Since(start)}
	}()

	select {
	case r := <-done:
		*out = r
	case <-deadline:
		// Best-effort cancellation happened via taskCtx; the slot is
		// freed regardless of whether the task ever returns.
		*out = Result[T]{
			Key:      task.Key,
			Err:      context.DeadlineExceeded,
			TimedOut: true,
			Duration: time.Since(start),
		}
	}
}

func (p *Pool[T]) trackStart() {
	n := p.inFlight.Add(1)
	for {
		seen := p.maxInFlight.Load()
		if n <= seen || p.maxInFlight.CompareAndSwap(seen, n) {
			return
		}
	}
}
