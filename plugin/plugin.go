package plugin

import (
	"context"

	"github.com/kbukum/kindflow/record"
)

// DefaultVersion is the version of a plugin that does not declare one.
const DefaultVersion = "0.0.0"

// Descriptor declares what a plugin provides and consumes.
type Descriptor struct {
	// Provides is the name of the output.
	Provides string `validate:"required,identifier"`
	// DependsOn lists upstream outputs in the order they are pulled.
	DependsOn []string `mapstructure:"depends_on" validate:"unique,dive,identifier"`
	// DataKind of the output. Defaults to Provides.
	DataKind record.DataKind `mapstructure:"data_kind" validate:"omitempty,identifier"`
	// Schema of the output. When nil the plugin must implement SchemaInferrer.
	Schema *record.Schema `validate:"-"`
	// Save is the advisory persistence preference.
	Save SavePreference `validate:"gte=0,lte=4"`
	// Version identifies the computation. Defaults to DefaultVersion.
	Version string
	// Parallel lets compute calls run on a Dispatcher.
	Parallel bool
}

// Dependency is the planning view of an upstream output.
type Dependency struct {
	Name   string
	Kind   record.DataKind
	Schema *record.Schema
}

// Plugin computes one output chunk per aligned batch of input chunks.
type Plugin interface {
	Describe() Descriptor
	Compute(ctx context.Context, b *Batch) (*record.Chunk, error)
}

// Starter is implemented by plugins that prepare state before streaming.
type Starter interface {
	Start(ctx context.Context) error
}

// SchemaInferrer is implemented by plugins that derive their output schema
// from their dependencies.
type SchemaInferrer interface {
	InferSchema(deps []Dependency) (*record.Schema, error)
}

// DependencyChecker is implemented by plugins with extra requirements on
// their dependencies. It runs at Bind.
type DependencyChecker interface {
	CheckDependencies(deps []Dependency) error
}

// Func computes an output chunk from a batch.
type Func func(ctx context.Context, b *Batch) (*record.Chunk, error)

// New returns a plugin computing with fn.
func New(desc Descriptor, fn Func) Plugin {
	return &funcPlugin{desc: desc, fn: fn}
}

type funcPlugin struct {
	desc Descriptor
	fn   Func
}

func (p *funcPlugin) Describe() Descriptor { return p.desc }

func (p *funcPlugin) Compute(ctx context.Context, b *Batch) (*record.Chunk, error) {
	return p.fn(ctx, b)
}

// Batch is one aligned set of input chunks, one per dependency.
type Batch struct {
	// Index counts batches from zero within one stream.
	Index int

	chunks map[string]*record.Chunk
	deps   []Dependency
	groups KindGroups
	schema *record.Schema
}

// Chunk returns the input chunk of a dependency.
func (b *Batch) Chunk(name string) *record.Chunk { return b.chunks[name] }

// Chunks returns the input chunks in declared dependency order.
func (b *Batch) Chunks() []*record.Chunk {
	out := make([]*record.Chunk, len(b.deps))
	for i, d := range b.deps {
		out[i] = b.chunks[d.Name]
	}
	return out
}

// Dependencies returns the dependencies in declared order.
func (b *Batch) Dependencies() []Dependency { return b.deps }

// Groups returns the dependencies grouped by kind.
func (b *Batch) Groups() KindGroups { return b.groups }

// Schema returns the output schema.
func (b *Batch) Schema() *record.Schema { return b.schema }

// NewBuilder returns a builder for n output rows.
func (b *Batch) NewBuilder(n int) *record.Builder { return record.NewBuilder(b.schema, n) }
