// Package worker provides a bounded worker pool used to run blocking or
// CPU-bound work (embedding calls, legacy document conversion, PDF parsing)
// off the request-handling goroutines.
//
// Request handlers submit work with Do and wait for its result. The pool caps
// how many of those calls run at once so a burst of slow calls cannot starve
// the rest of the process.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
)

var defaultJobQueueSize uint = 256

var (
	// ErrPoolClosed is returned when work is submitted after Close.
	ErrPoolClosed = errors.New("worker pool closed")

	// ErrPanic is returned by Do when the submitted function panicked.
	ErrPanic = errors.New("worker job panicked")
)

// Job is a unit of work for the worker pool to execute.
type Job func(ctx context.Context)

type task struct {
	ctx context.Context
	job Job
}

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool.
	// Defaults to GOMAXPROCS.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool executes jobs on a fixed set of goroutines.
type Pool struct {
	config *Config
	queue  chan task
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c == nil {
		c = &Config{}
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = uint(runtime.GOMAXPROCS(0))
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan task, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() uint {
	return p.config.NumWorkers
}

// Submit queues a job, blocking while the queue is full.
// It returns ctx.Err() if the context ends first and ErrPoolClosed after Close.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- task{ctx: ctx, job: job}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for t := range p.queue {
		p.run(id, t)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

func (p *Pool) run(id uint, t task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker job panicked",
				"worker_id", id,
				"panic", r,
			)
		}
	}()

	t.job(t.ctx)
}

// Do runs fn on the pool and waits for its result.
// A nil pool runs fn on the calling goroutine.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}

	type result struct {
		val T
		err error
	}

	done := make(chan result, 1)
	err := p.Submit(ctx, func(ctx context.Context) {
		var res result
		defer func() {
			if r := recover(); r != nil {
				res = result{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
			done <- res
		}()

		res.val, res.err = fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
