package record

import (
	"fmt"

	"github.com/kbukum/kindflow/errors"
)

// Builder assembles a fixed number of zero-initialized rows of one schema.
// Setter failures are sticky: the first one is reported by Err and Build.
type Builder struct {
	schema *Schema
	rows   [][]any
	err    error
}

// NewBuilder preallocates n rows with every field set to its zero value.
func NewBuilder(schema *Schema, n int) *Builder {
	rows := make([][]any, n)
	for i := range rows {
		row := make([]any, schema.Len())
		for j, f := range schema.fields {
			row[j] = f.Type.zero()
		}
		rows[i] = row
	}
	return &Builder{schema: schema, rows: rows}
}

// Len returns the number of rows.
func (b *Builder) Len() int { return len(b.rows) }

// Row returns the setter for row i.
func (b *Builder) Row(i int) Row { return Row{b: b, i: i} }

// Err returns the first setter error.
func (b *Builder) Err() error { return b.err }

// Build returns the assembled chunk.
func (b *Builder) Build() (*Chunk, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Chunk{schema: b.schema, rows: b.rows}, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Row writes named fields of one output row.
type Row struct {
	b *Builder
	i int
}

// Index returns the row position.
func (r Row) Index() int { return r.i }

func (r Row) set(name string, t FieldType, v any) {
	j, ok := r.b.schema.Index(name)
	if !ok {
		r.b.fail(errors.MissingField(name).WithDetail("row", r.i))
		return
	}
	if f := r.b.schema.fields[j]; f.Type != t {
		r.b.fail(errors.InvalidInput(name, fmt.Sprintf("field is %s, got %s", f.Type, t)))
		return
	}
	r.b.rows[r.i][j] = v
}

// SetInt64 sets an int64 field.
func (r Row) SetInt64(name string, v int64) { r.set(name, Int64, v) }

// SetFloat64 sets a float64 field.
func (r Row) SetFloat64(name string, v float64) { r.set(name, Float64, v) }

// SetString sets a string field.
func (r Row) SetString(name string, v string) { r.set(name, String, v) }

// SetBool sets a bool field.
func (r Row) SetBool(name string, v bool) { r.set(name, Bool, v) }

// Set sets a field from a dynamically typed value. Go int values are widened
// to int64 for convenience.
func (r Row) Set(name string, v any) {
	switch x := v.(type) {
	case int:
		r.SetInt64(name, int64(x))
	case int64:
		r.SetInt64(name, x)
	case float64:
		r.SetFloat64(name, x)
	case string:
		r.SetString(name, x)
	case bool:
		r.SetBool(name, x)
	default:
		r.b.fail(errors.InvalidInput(name, fmt.Sprintf("unsupported value type %T", v)))
	}
}

// SetAll sets every entry of a field-name to value mapping.
func (r Row) SetAll(values map[string]any) {
	for name, v := range values {
		r.Set(name, v)
	}
}
