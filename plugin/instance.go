package plugin

import (
	"context"
	"sync/atomic"

	"github.com/kbukum/kindflow/align"
	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/logger"
	"github.com/kbukum/kindflow/observability"
	"github.com/kbukum/kindflow/pipeline"
	"github.com/kbukum/kindflow/record"
	"github.com/kbukum/kindflow/validation"
)

// Instance is a plugin bound to its resolved dependencies.
type Instance struct {
	plugin Plugin
	desc   Descriptor
	deps   []Dependency
	log    *logger.Logger

	streaming atomic.Bool
}

// Bind applies descriptor defaults, validates the descriptor, resolves the
// declared dependencies among available and fixes the output schema. Every
// failure is a configuration error raised before any data flows.
func Bind(p Plugin, available ...Dependency) (*Instance, error) {
	desc := p.Describe()
	if desc.DataKind == "" {
		desc.DataKind = record.DataKind(desc.Provides)
	}
	if desc.Version == "" {
		desc.Version = DefaultVersion
	}
	if desc.Save == 0 {
		desc.Save = SaveIfMain
	}
	if err := validation.ValidateStruct(desc); err != nil {
		return nil, errors.Configuration("plugin %q has an invalid descriptor", desc.Provides).WithCause(err)
	}

	byName := make(map[string]Dependency, len(available))
	for _, d := range available {
		byName[d.Name] = d
	}
	deps := make([]Dependency, len(desc.DependsOn))
	for i, name := range desc.DependsOn {
		d, ok := byName[name]
		if !ok {
			return nil, errors.NotRegistered(name).WithDetail("plugin", desc.Provides)
		}
		deps[i] = d
	}

	if _, err := Classify(deps, true); err != nil {
		return nil, err
	}
	if c, ok := p.(DependencyChecker); ok {
		if err := c.CheckDependencies(deps); err != nil {
			return nil, err
		}
	}

	if desc.Schema == nil {
		inf, ok := p.(SchemaInferrer)
		if !ok {
			return nil, errors.Configuration("plugin %q declares no schema and cannot infer one", desc.Provides)
		}
		schema, err := inf.InferSchema(deps)
		if err != nil {
			return nil, err
		}
		desc.Schema = schema
	}

	return &Instance{
		plugin: p,
		desc:   desc,
		deps:   deps,
		log:    logger.Get("plugin").WithPlugin(desc.Provides),
	}, nil
}

// Plugin returns the bound plugin.
func (in *Instance) Plugin() Plugin { return in.plugin }

// Descriptor returns the descriptor with defaults applied and schema resolved.
func (in *Instance) Descriptor() Descriptor { return in.desc }

// Provides returns the output name.
func (in *Instance) Provides() string { return in.desc.Provides }

// Kind returns the output data kind.
func (in *Instance) Kind() record.DataKind { return in.desc.DataKind }

// Schema returns the output schema.
func (in *Instance) Schema() *record.Schema { return in.desc.Schema }

// SavePreference returns the advisory persistence preference.
func (in *Instance) SavePreference() SavePreference { return in.desc.Save }

// Dependencies returns the resolved dependencies in declared order.
func (in *Instance) Dependencies() []Dependency { return in.deps }

// Output describes the instance's output as a dependency of downstream plugins.
func (in *Instance) Output() Dependency {
	return Dependency{Name: in.desc.Provides, Kind: in.desc.DataKind, Schema: in.desc.Schema}
}

// Version returns the plugin version applicable to runID. Plugins currently
// have a single version for every run.
func (in *Instance) Version(runID string) string { return in.desc.Version }

// Lineage returns the caching identity of the output for runID. It is not
// computed yet and is always nil.
func (in *Instance) Lineage(runID string) map[string]string { return nil }

// IterOption configures a stream.
type IterOption func(*iterOptions)

type iterOptions struct {
	batchSize  int
	dispatcher Dispatcher
	metrics    *observability.StreamMetrics
}

// WithBatchSize bounds the rows pulled per batch by rechunking the canonical
// dependency of the first kind group. Zero or less disables it.
func WithBatchSize(n int) IterOption {
	return func(o *iterOptions) { o.batchSize = n }
}

// WithDispatcher runs compute calls of Parallel plugins on d.
func WithDispatcher(d Dispatcher) IterOption {
	return func(o *iterOptions) { o.dispatcher = d }
}

// WithMetrics records compute metrics on m.
func WithMetrics(m *observability.StreamMetrics) IterOption {
	return func(o *iterOptions) { o.metrics = m }
}

// Iter streams the instance's output from the upstream iterators, keyed by
// dependency name. The instance takes ownership of those iterators: they are
// closed when the returned iterator is closed, or before Iter returns an
// error. An instance streams at most once.
func (in *Instance) Iter(ctx context.Context, iters map[string]align.Chunks, opts ...IterOption) (pipeline.Iterator[Result], error) {
	var o iterOptions
	for _, opt := range opts {
		opt(&o)
	}

	if in.streaming.Swap(true) {
		_ = closeStreams(iters)
		return nil, errors.Configuration("plugin %q is already streaming", in.desc.Provides)
	}

	groups, err := Classify(in.deps, true)
	if err != nil {
		_ = closeStreams(iters)
		return nil, err
	}

	owned := make(map[string]align.Chunks, len(in.deps))
	schemas := make(map[string]*record.Schema, len(in.deps))
	for _, d := range in.deps {
		it, ok := iters[d.Name]
		if !ok || it == nil {
			_ = closeStreams(iters)
			return nil, errors.Configuration("plugin %q has no input stream for dependency %q", in.desc.Provides, d.Name).
				WithDetail("dependency", d.Name)
		}
		owned[d.Name] = it
		schemas[d.Name] = d.Schema
	}

	if s, ok := in.plugin.(Starter); ok {
		if err := s.Start(ctx); err != nil {
			_ = closeStreams(iters)
			return nil, err
		}
	}

	in.synchronize(groups, owned, schemas, o.batchSize)

	in.log.Debug("stream started", logger.Fields(
		logger.FieldKind, string(in.desc.DataKind),
		"kinds", len(groups),
		"dependencies", len(in.deps),
	))
	return &executor{
		in:         in,
		iters:      owned,
		groups:     groups,
		dispatcher: o.dispatcher,
		metrics:    o.metrics,
	}, nil
}

// synchronize replaces the entries of iters with aligned iterators.
func (in *Instance) synchronize(groups KindGroups, iters map[string]align.Chunks, schemas map[string]*record.Schema, batchSize int) {
	if len(groups) == 0 {
		return
	}

	if batchSize > 0 {
		name := groups[0].Canonical().Name
		iters[name] = align.Rechunk(iters[name], batchSize)
	}

	if len(groups) > 1 {
		canon := make(map[string]align.Chunks, len(groups))
		for _, g := range groups {
			name := g.Canonical().Name
			canon[name] = iters[name]
		}
		for name, it := range align.AlignByKey(canon, align.Endtime, align.WithSchemas(schemas)) {
			iters[name] = it
		}
	}

	for _, g := range groups {
		if len(g.Deps) < 2 {
			continue
		}
		members := make(map[string]align.Chunks, len(g.Deps))
		for _, d := range g.Deps {
			members[d.Name] = iters[d.Name]
		}
		synced := align.AlignByLength(members,
			align.WithLeader(g.Canonical().Name),
			align.WithSchemas(schemas))
		for name, it := range synced {
			iters[name] = it
		}
	}
}

func closeStreams(iters map[string]align.Chunks) error {
	all := make([]align.Chunks, 0, len(iters))
	for _, it := range iters {
		if it != nil {
			all = append(all, it)
		}
	}
	return pipeline.CloseAll(all...)
}
