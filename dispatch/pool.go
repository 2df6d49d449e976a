package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/logger"
)

// Config configures a Pool.
type Config struct {
	// Name identifies the pool in logs.
	Name string
	// Workers is the maximum number of functions running at once.
	// Zero means runtime.NumCPU().
	Workers int
	// OnAcquire and OnRelease observe slot usage.
	OnAcquire func(name string)
	OnRelease func(name string)
}

// DefaultConfig returns a config sized to the machine.
func DefaultConfig(name string) Config {
	return Config{Name: name, Workers: runtime.NumCPU()}
}

// Pool bounds the concurrency of submitted functions.
type Pool struct {
	config Config
	sem    chan struct{}
	wg     sync.WaitGroup
	// mu orders submissions against Close so wg.Add never races wg.Wait.
	mu     sync.RWMutex
	closed bool
	log    *logger.Logger
}

// NewPool creates a pool.
func NewPool(config Config) *Pool {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.Name == "" {
		config.Name = "dispatch"
	}
	return &Pool{
		config: config,
		sem:    make(chan struct{}, config.Workers),
		log:    logger.Get("dispatch").WithFields(logger.Fields("pool", config.Name)),
	}
}

// Workers returns the concurrency bound.
func (p *Pool) Workers() int { return p.config.Workers }

// InUse returns the number of functions currently running.
func (p *Pool) InUse() int { return len(p.sem) }

// Close stops accepting submissions and waits for every submitted function
// to finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debug("pool closed")
	return nil
}

func (p *Pool) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if p.config.OnAcquire != nil {
		p.config.OnAcquire(p.config.Name)
	}
	return nil
}

func (p *Pool) release() {
	<-p.sem
	if p.config.OnRelease != nil {
		p.config.OnRelease(p.config.Name)
	}
}

// Task is the pending result of a submitted function.
type Task[T any] struct {
	id   string
	done chan struct{}
	val  T
	err  error
}

// ID returns the task identifier.
func (t *Task[T]) ID() string { return t.id }

// Done is closed once the task has finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx is done. It may be called more
// than once; every call returns the same result.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (t *Task[T]) finish(val T, err error) {
	t.val, t.err = val, err
	close(t.done)
}

// Go submits fn to the pool and returns its task immediately. fn runs once a
// slot is free; if ctx is done first, the task fails with ctx's error. A panic
// in fn is recovered and reported as an internal error.
func Go[T any](p *Pool, ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{id: uuid.NewString(), done: make(chan struct{})}
	var zero T
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		t.finish(zero, errors.Unavailable(p.config.Name))
		return t
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	go func() {
		defer p.wg.Done()
		if err := p.acquire(ctx); err != nil {
			t.finish(zero, err)
			return
		}
		defer p.release()
		t.finish(run(ctx, t.id, fn))
	}()
	return t
}

func run[T any](ctx context.Context, id string, fn func(context.Context) (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(fmt.Errorf("task panicked: %v", r)).WithDetail("task_id", id)
		}
	}()
	return fn(ctx)
}
