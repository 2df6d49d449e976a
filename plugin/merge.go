package plugin

import (
	"context"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/record"
)

// MergePlugin concatenates the fields of dependencies of one data kind, row
// by row. Its output schema is inferred from the dependencies unless declared.
type MergePlugin struct {
	desc Descriptor
}

// NewMerge returns a merge plugin. The descriptor must declare at least one
// dependency. Save defaults to SaveIfExplicit.
func NewMerge(desc Descriptor) (*MergePlugin, error) {
	if len(desc.DependsOn) == 0 {
		return nil, errors.Configuration("merge plugin %q must declare its dependencies", desc.Provides)
	}
	if desc.Save == 0 {
		desc.Save = SaveIfExplicit
	}
	return &MergePlugin{desc: desc}, nil
}

// Describe implements Plugin.
func (p *MergePlugin) Describe() Descriptor { return p.desc }

// CheckDependencies requires every dependency to be of one kind.
func (p *MergePlugin) CheckDependencies(deps []Dependency) error {
	groups, err := Classify(deps, true)
	if err != nil {
		return err
	}
	if len(groups) != 1 {
		return errors.Configuration("merge plugin %q can only merge data of one kind, got %s",
			p.desc.Provides, groups).WithDetail("kinds", len(groups))
	}
	return nil
}

// InferSchema concatenates the dependency schemas in declared order.
func (p *MergePlugin) InferSchema(deps []Dependency) (*record.Schema, error) {
	if err := p.CheckDependencies(deps); err != nil {
		return nil, err
	}
	schemas := make([]*record.Schema, len(deps))
	for i, d := range deps {
		schemas[i] = d.Schema
	}
	schema, err := record.Concat(schemas...)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr.WithDetail("plugin", p.desc.Provides)
		}
		return nil, err
	}
	return schema, nil
}

// Compute implements Plugin.
func (p *MergePlugin) Compute(_ context.Context, b *Batch) (*record.Chunk, error) {
	return record.Merge(b.Chunks()...)
}
