package plugin

import (
	"context"
	"fmt"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/record"
)

// LoopFunc fills the output row for one base record. contained holds, per
// non-base kind, the records lying within the base record's time interval.
type LoopFunc func(base record.Record, contained map[record.DataKind]*record.Chunk, out record.Row) error

// LoopPlugin computes one output row per record of its loop kind.
type LoopPlugin struct {
	desc     Descriptor
	loopOver record.DataKind
	fn       LoopFunc
}

// LoopOption configures a LoopPlugin.
type LoopOption func(*LoopPlugin)

// LoopOver sets the kind to loop over. It defaults to the kind of the first
// declared dependency.
func LoopOver(kind record.DataKind) LoopOption {
	return func(p *LoopPlugin) { p.loopOver = kind }
}

// NewLoop returns a containment-loop plugin. The descriptor must declare at
// least one dependency and an output schema.
func NewLoop(desc Descriptor, fn LoopFunc, opts ...LoopOption) (*LoopPlugin, error) {
	if len(desc.DependsOn) == 0 {
		return nil, errors.Configuration("loop plugin %q must declare its dependencies", desc.Provides)
	}
	p := &LoopPlugin{desc: desc, fn: fn}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Describe implements Plugin.
func (p *LoopPlugin) Describe() Descriptor { return p.desc }

// CheckDependencies verifies the loop kind is among the dependency kinds.
func (p *LoopPlugin) CheckDependencies(deps []Dependency) error {
	if p.loopOver == "" {
		return nil
	}
	for _, d := range deps {
		if d.Kind == p.loopOver {
			return nil
		}
	}
	return errors.Configuration("loop plugin %q loops over %q, which none of its dependencies provide",
		p.desc.Provides, p.loopOver)
}

// Compute implements Plugin.
func (p *LoopPlugin) Compute(ctx context.Context, b *Batch) (*record.Chunk, error) {
	if p.fn == nil {
		return nil, errors.Unimplemented("compute_loop", p.desc.Provides)
	}

	loopOver := p.loopOver
	if loopOver == "" {
		loopOver = b.Dependencies()[0].Kind
	}

	merged := make(map[record.DataKind]*record.Chunk, len(b.Groups()))
	for _, g := range b.Groups() {
		chunks := make([]*record.Chunk, len(g.Deps))
		for i, d := range g.Deps {
			chunks[i] = b.Chunk(d.Name)
		}
		m, err := record.Merge(chunks...)
		if err != nil {
			return nil, err
		}
		merged[g.Kind] = m
	}

	base, ok := merged[loopOver]
	if !ok {
		return nil, errors.Configuration("loop plugin %q loops over %q, which none of its dependencies provide",
			p.desc.Provides, loopOver)
	}

	parts := make(map[record.DataKind][]*record.Chunk, len(merged)-1)
	for kind, things := range merged {
		if kind == loopOver {
			continue
		}
		split, err := record.PartitionByContainment(things, base)
		if err != nil {
			return nil, err
		}
		parts[kind] = split
	}

	out := b.NewBuilder(base.Len())
	for i := 0; i < base.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		contained := make(map[record.DataKind]*record.Chunk, len(parts))
		for kind, split := range parts {
			contained[kind] = split[i]
		}
		if err := p.fn(base.Record(i), contained, out.Row(i)); err != nil {
			return nil, fmt.Errorf("loop plugin %q, base row %d: %w", p.desc.Provides, i, err)
		}
	}
	return out.Build()
}
