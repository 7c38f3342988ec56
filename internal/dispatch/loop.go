// Package dispatch provides the single logical thread on which all model
// state is mutated. Network work runs on its own goroutines; completions are
// queued back onto the Loop and executed one at a time, so callbacks can
// touch shared state without locks.
package dispatch

import (
	"context"
	"sync/atomic"
)

const defaultQueueSize = 64

// Loop is a serial completion queue.
type Loop struct {
	queue   chan func()
	pending atomic.Int64
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{queue: make(chan func(), defaultQueueSize)}
}

// Go runs work on a new goroutine and queues done on the loop with its
// result. The send happens off the loop, so callbacks may start more work.
// ctx is the cancellation token for the request: it is handed to work, and
// if it is canceled by the time the completion is dequeued, done is not
// called.
func Go[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), done func(T, error)) {
	l.pending.Add(1)
	go func() {
		result, err := work(ctx)
		l.queue <- func() {
			if ctx.Err() != nil {
				return
			}
			done(result, err)
		}
	}()
}

// Pending returns the number of queued or in-flight completions.
func (l *Loop) Pending() int64 {
	return l.pending.Load()
}

// Queue exposes the completion channel for an external event loop. Every
// value received from it must be passed to Exec.
func (l *Loop) Queue() <-chan func() {
	return l.queue
}

// Exec runs one dequeued completion.
func (l *Loop) Exec(fn func()) {
	defer l.pending.Add(-1)
	fn()
}

// Run executes completions until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			l.Exec(fn)
		}
	}
}

// RunUntilIdle executes completions until nothing is queued or in flight.
// Callbacks that start new work keep the loop going.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	for l.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			l.Exec(fn)
		}
	}
	return nil
}
