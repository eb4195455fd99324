// Package workpool implements the bounded worker pool with backpressure
// described in spec.md §5 "Scheduling model": ingestion and maintenance
// jobs run on a shared pool with a bounded queue, and TrySubmit returns the
// plain sentinel ErrPoolSaturated rather than blocking when the queue is
// full. Nothing maps ErrPoolSaturated to an error code or HTTP status, and no
// HTTP handler submits work to the pool. No teacher or pack repo
// implements a bounded goroutine pool directly, so this is built fresh in
// the channel-plus-semaphore idiom idiomatic Go favors for this shape.
package workpool

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolSaturated is returned by Submit when the bounded queue is full.
var ErrPoolSaturated = errors.New("workpool: queue saturated")

type job struct {
	ctx context.Context
	fn  func(context.Context) error
	res chan error
}

// Pool runs submitted jobs on a fixed number of workers, queuing up to
// queueSize pending jobs before rejecting new submissions.
type Pool struct {
	jobs    chan job
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// New starts a pool with workers goroutines and a queue bounded at
// queueSize.
func New(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{jobs: make(chan job, queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.res <- j.fn(j.ctx)
	}
}

// Submit enqueues fn for execution and blocks until it completes, returning
// its error. If the queue is already full, Submit returns ErrPoolSaturated
// immediately instead of blocking (spec.md §5: "caller receives a
// 429-equivalent when the pool is saturated").
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, res: make(chan error, 1)}

	select {
	case p.jobs <- j:
	default:
		return ErrPoolSaturated
	}

	select {
	case err := <-j.res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues fn without waiting for completion, returning
// ErrPoolSaturated if the queue is full. The caller receives results, if
// any, via the supplied callback on the worker goroutine.
func (p *Pool) TrySubmit(ctx context.Context, fn func(context.Context) error, onDone func(error)) error {
	j := job{ctx: ctx, fn: fn, res: make(chan error, 1)}
	select {
	case p.jobs <- j:
	default:
		return ErrPoolSaturated
	}
	go func() {
		err := <-j.res
		if onDone != nil {
			onDone(err)
		}
	}()
	return nil
}

// Close stops accepting new jobs and waits for in-flight and queued jobs to
// drain.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()
	p.wg.Wait()
}
