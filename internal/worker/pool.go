// Package worker provides the shared task pool used to parallelize pack
// saving and other independent build steps.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

// Task is one unit of work executed by the pool.
type Task func() error

// Pool runs tasks on a fixed set of workers over a shared channel. Workers
// start on the first Submit and run until Close. Submit and Wait must not be
// called concurrently with each other for the same batch; the usual pattern
// is submit everything, then Wait once.
type Pool struct {
	workers int

	mu      sync.Mutex
	tasks   chan Task
	started bool
	closed  bool

	wg      sync.WaitGroup // worker goroutines
	pending sync.WaitGroup // tasks in flight

	errMu sync.Mutex
	errs  []error
}

// NewPool creates a pool with the given worker count. Values below one fall
// back to two workers, enough to save both packs concurrently.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	return &Pool{workers: workers}
}

// Submit queues a task for execution. It blocks when the backlog is full and
// fails once the pool is closed.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return apperrors.InvalidArgument("worker.Submit", "task must not be nil")
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return apperrors.New(apperrors.CategoryInternal, apperrors.SeverityError,
			"worker pool is closed")
	}
	if !p.started {
		p.start()
	}
	p.pending.Add(1)
	p.mu.Unlock()

	p.tasks <- task
	return nil
}

// Wait blocks until every submitted task has finished and returns their
// joined errors, clearing them so the pool can serve the next build.
func (p *Pool) Wait() error {
	p.pending.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	err := errors.Join(p.errs...)
	p.errs = nil
	return err
}

// Close drains outstanding tasks, stops the workers, and returns any errors
// left uncollected by Wait. Closing an already closed pool is a no-op.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	err := p.Wait()
	if started {
		close(p.tasks)
		p.wg.Wait()
	}
	return err
}

// start launches the workers. Callers must hold p.mu.
func (p *Pool) start() {
	p.tasks = make(chan Task, p.workers*4)
	for i := range p.workers {
		p.wg.Add(1)
		go p.run(fmt.Sprintf("worker-%d", i))
	}
	p.started = true
	slog.Debug("Started worker pool", "workers", p.workers)
}

func (p *Pool) run(id string) {
	defer p.wg.Done()
	for task := range p.tasks {
		if err := task(); err != nil {
			p.errMu.Lock()
			p.errs = append(p.errs, err)
			p.errMu.Unlock()
			slog.Debug("Worker task failed", "worker", id, "err", err)
		}
		p.pending.Done()
	}
}

// Session marks a pool as shared across successive builds. Watch mode holds
// one so individual builds reuse the workers instead of tearing them down;
// closing the session closes the pool.
type Session struct {
	pool *Pool
	once sync.Once
}

// NewSession wraps pool for reuse across builds.
func NewSession(pool *Pool) *Session {
	return &Session{pool: pool}
}

// Pool returns the shared pool.
func (s *Session) Pool() *Pool {
	return s.pool
}

// Close shuts the underlying pool down. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pool.Close()
	})
	return err
}
