package dag

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbukum/kindflow/align"
	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/logger"
	"github.com/kbukum/kindflow/pipeline"
	"github.com/kbukum/kindflow/plugin"
)

// StreamOption configures Stream.
type StreamOption func(*streamOptions)

type streamOptions struct {
	sources  map[string]align.Chunks
	prefetch int
	iterOpts []plugin.IterOption
	runID    string
}

// WithSource feeds the output name from it instead of from its plugin. The
// stream takes ownership of it and closes it, used or not.
func WithSource(name string, it align.Chunks) StreamOption {
	return func(o *streamOptions) {
		if o.sources == nil {
			o.sources = make(map[string]align.Chunks)
		}
		o.sources[name] = it
	}
}

// WithPrefetch pulls every plugin output up to n chunks ahead on its own
// goroutine. Zero or less keeps the stream strictly pull-driven.
func WithPrefetch(n int) StreamOption {
	return func(o *streamOptions) { o.prefetch = n }
}

// WithIterOptions applies opts to every plugin of the stream.
func WithIterOptions(opts ...plugin.IterOption) StreamOption {
	return func(o *streamOptions) { o.iterOpts = append(o.iterOpts, opts...) }
}

// WithRunID sets the run identifier used for logging and plugin versions.
// A random one is generated otherwise.
func WithRunID(id string) StreamOption {
	return func(o *streamOptions) { o.runID = id }
}

// Stream wires the plugins needed for target and returns its chunks. Every
// plugin is bound afresh and its output iterated once; outputs read by more
// than one plugin are split with pipeline.Tee. Closing the returned iterator
// closes the whole chain, sources included.
func (g *Graph) Stream(ctx context.Context, target string, opts ...StreamOption) (align.Chunks, error) {
	o := streamOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	w := &wiring{
		g:       g,
		opts:    o,
		outputs: make(map[string][]align.Chunks),
		log: logger.Get("dag").WithFields(logger.Fields(
			logger.FieldRunID, o.runID,
			logger.FieldTarget, target,
		)),
	}
	out, err := w.wire(ctx, target)
	if err != nil {
		w.closeAll()
		return nil, err
	}
	return out, nil
}

type wiring struct {
	g       *Graph
	opts    streamOptions
	outputs map[string][]align.Chunks
	log     *logger.Logger
}

func (w *wiring) wire(ctx context.Context, target string) (align.Chunks, error) {
	if _, ok := w.g.plugins[target]; !ok {
		return nil, errors.NotFound("plugin", target)
	}
	for name := range w.opts.sources {
		if _, ok := w.g.plugins[name]; !ok {
			return nil, errors.NotFound("plugin", name).WithDetail("source", true)
		}
	}

	required := w.required(target)
	consumers := map[string]int{target: 1}
	for name := range required {
		if _, sourced := w.opts.sources[name]; sourced {
			continue
		}
		for _, dep := range w.g.deps[name] {
			consumers[dep]++
		}
	}

	wired := 0
	for _, level := range w.g.levels {
		for _, name := range level {
			if !required[name] {
				continue
			}
			stream, err := w.output(ctx, name)
			if err != nil {
				return nil, err
			}
			if n := consumers[name]; n > 1 {
				w.outputs[name] = pipeline.Tee(stream, n)
			} else {
				w.outputs[name] = []align.Chunks{stream}
			}
			wired++
		}
	}

	for name, src := range w.opts.sources {
		if !required[name] {
			_ = src.Close()
		}
	}
	w.opts.sources = nil

	w.log.Debug("stream wired", logger.Fields("plugins", wired))
	return w.take(target), nil
}

// required returns the names reachable from target, stopping at sourced names.
func (w *wiring) required(target string) map[string]bool {
	seen := make(map[string]bool)
	stack := []string{target}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, sourced := w.opts.sources[name]; sourced {
			continue
		}
		stack = append(stack, w.g.deps[name]...)
	}
	return seen
}

// output returns the chunk stream of name, fed from its source or its plugin.
func (w *wiring) output(ctx context.Context, name string) (align.Chunks, error) {
	if src, ok := w.opts.sources[name]; ok {
		delete(w.opts.sources, name)
		return src, nil
	}

	in, err := w.g.bind(name)
	if err != nil {
		return nil, err
	}
	inputs := make(map[string]align.Chunks, len(w.g.deps[name]))
	for _, dep := range w.g.deps[name] {
		inputs[dep] = w.take(dep)
	}
	results, err := in.Iter(ctx, inputs, w.opts.iterOpts...)
	if err != nil {
		return nil, err
	}
	w.log.Debug("plugin wired", logger.Fields(
		logger.FieldPlugin, name,
		logger.FieldKind, string(in.Kind()),
		"version", in.Version(w.opts.runID),
	))

	out := plugin.Chunks(ctx, results)
	if w.opts.prefetch > 0 {
		out = pipeline.Buffer(pipeline.From(out), w.opts.prefetch).Iter(ctx)
	}
	return out, nil
}

// take hands the next unclaimed branch of name to a consumer.
func (w *wiring) take(name string) align.Chunks {
	branches := w.outputs[name]
	it := branches[0]
	w.outputs[name] = branches[1:]
	return it
}

// closeAll closes every stream not yet handed to a consumer.
func (w *wiring) closeAll() {
	for _, branches := range w.outputs {
		_ = pipeline.CloseAll(branches...)
	}
	for _, src := range w.opts.sources {
		_ = src.Close()
	}
	w.outputs = nil
	w.opts.sources = nil
}
