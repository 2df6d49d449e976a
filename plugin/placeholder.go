package plugin

import (
	"context"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/record"
)

// Placeholder stands in for an output supplied from outside the graph, such
// as raw records from an acquisition system. It never computes.
type Placeholder struct {
	desc Descriptor
}

// NewPlaceholder returns a placeholder for provides.
func NewPlaceholder(provides string, kind record.DataKind, schema *record.Schema) *Placeholder {
	return &Placeholder{desc: Descriptor{
		Provides: provides,
		DataKind: kind,
		Schema:   schema,
		Save:     SaveNever,
	}}
}

// Describe implements Plugin.
func (p *Placeholder) Describe() Descriptor { return p.desc }

// Compute always fails: no plugin is registered that computes this output.
func (p *Placeholder) Compute(context.Context, *Batch) (*record.Chunk, error) {
	return nil, errors.NotRegistered(p.desc.Provides)
}
