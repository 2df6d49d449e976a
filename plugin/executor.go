package plugin

import (
	"context"

	"github.com/kbukum/kindflow/align"
	"github.com/kbukum/kindflow/dispatch"
	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/logger"
	"github.com/kbukum/kindflow/observability"
	"github.com/kbukum/kindflow/pipeline"
	"github.com/kbukum/kindflow/record"
)

// Handle is a compute call running elsewhere.
type Handle interface {
	ID() string
	Wait(ctx context.Context) (*record.Chunk, error)
}

// Dispatcher runs compute calls off the pulling goroutine.
type Dispatcher interface {
	Submit(ctx context.Context, fn func(context.Context) (*record.Chunk, error)) Handle
}

// NewPoolDispatcher submits compute calls to a dispatch pool.
func NewPoolDispatcher(pool *dispatch.Pool) Dispatcher {
	return poolDispatcher{pool: pool}
}

type poolDispatcher struct {
	pool *dispatch.Pool
}

func (d poolDispatcher) Submit(ctx context.Context, fn func(context.Context) (*record.Chunk, error)) Handle {
	return dispatch.Go(d.pool, ctx, fn)
}

// Result is one element of an output stream: a computed chunk, or the handle
// of a dispatched compute call.
type Result struct {
	chunk   *record.Chunk
	pending Handle
}

// Pending reports whether the result is a dispatched call.
func (r Result) Pending() bool { return r.pending != nil }

// Chunk returns the computed chunk, nil when pending.
func (r Result) Chunk() *record.Chunk { return r.chunk }

// Handle returns the dispatched call, nil when computed inline.
func (r Result) Handle() Handle { return r.pending }

// Resolve returns the chunk, waiting for a dispatched call.
func (r Result) Resolve(ctx context.Context) (*record.Chunk, error) {
	if r.pending == nil {
		return r.chunk, nil
	}
	return r.pending.Wait(ctx)
}

// Chunks resolves results in the order they were yielded. ctx scopes the
// returned iterator; every Next still waits under its own context.
func Chunks(ctx context.Context, results pipeline.Iterator[Result]) align.Chunks {
	resolved := pipeline.Map(pipeline.From(results), func(ctx context.Context, r Result) (*record.Chunk, error) {
		return r.Resolve(ctx)
	})
	return resolved.Iter(ctx)
}

type executor struct {
	in         *Instance
	iters      map[string]align.Chunks
	groups     KindGroups
	dispatcher Dispatcher
	metrics    *observability.StreamMetrics

	batch  int
	rows   int
	done   bool
	closed bool
}

func (e *executor) Next(ctx context.Context) (Result, bool, error) {
	if e.done {
		return Result{}, false, nil
	}

	deps := e.in.deps
	if len(deps) == 0 && e.batch > 0 {
		e.finish()
		return Result{}, false, nil
	}

	chunks := make(map[string]*record.Chunk, len(deps))
	for _, d := range deps {
		c, ok, err := e.iters[d.Name].Next(ctx)
		if err != nil {
			e.done = true
			return Result{}, false, err
		}
		if !ok {
			e.finish()
			return Result{}, false, nil
		}
		chunks[d.Name] = c
	}

	b := &Batch{
		Index:  e.batch,
		chunks: chunks,
		deps:   deps,
		groups: e.groups,
		schema: e.in.desc.Schema,
	}
	e.batch++

	if e.in.desc.Parallel && e.dispatcher != nil {
		h := e.dispatcher.Submit(ctx, func(ctx context.Context) (*record.Chunk, error) {
			return e.compute(ctx, b)
		})
		e.in.log.Debug("batch dispatched", logger.Fields(
			logger.FieldBatch, b.Index,
			logger.FieldTaskID, h.ID(),
		))
		return Result{pending: h}, true, nil
	}

	out, err := e.compute(ctx, b)
	if err != nil {
		e.done = true
		return Result{}, false, err
	}
	e.rows += out.Len()
	return Result{chunk: out}, true, nil
}

// compute runs one compute call. It may run on a dispatcher goroutine and
// must not touch executor state.
func (e *executor) compute(ctx context.Context, b *Batch) (*record.Chunk, error) {
	desc := e.in.desc
	ctx, cc := observability.StartCompute(ctx, e.metrics, desc.Provides, string(desc.DataKind), b.Index)
	out, err := e.in.plugin.Compute(ctx, b)
	if err == nil {
		switch {
		case out == nil:
			out = record.Empty(desc.Schema)
		case !out.Schema().Equal(desc.Schema):
			err = errors.Configuration("plugin %q produced fields %s, declared %s",
				desc.Provides, out.Schema(), desc.Schema)
		}
	}
	cc.End(ctx, out.Len(), err)
	if err != nil {
		e.in.log.WithError(err).Debug("compute failed", logger.Fields(logger.FieldBatch, b.Index))
		return nil, err
	}
	return out, nil
}

func (e *executor) finish() {
	e.done = true
	e.in.log.Debug("stream finished", logger.Fields(
		logger.FieldChunks, e.batch,
		logger.FieldRows, e.rows,
	))
}

func (e *executor) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.done = true
	return closeStreams(e.iters)
}
