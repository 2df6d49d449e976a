package record

import (
	"fmt"

	"github.com/kbukum/kindflow/errors"
)

// Chunk is a finite, time-ordered batch of records sharing one schema.
// Chunks are treated as immutable once built; Slice shares storage.
type Chunk struct {
	schema *Schema
	rows   [][]any
}

// NewChunk builds a chunk, checking every value against the schema.
func NewChunk(schema *Schema, rows ...[]any) (*Chunk, error) {
	for i, row := range rows {
		if len(row) != schema.Len() {
			return nil, errors.InvalidInput("", fmt.Sprintf("row %d has %d values, schema has %d fields", i, len(row), schema.Len()))
		}
		for j, v := range row {
			f := schema.fields[j]
			if !f.Type.accepts(v) {
				return nil, errors.InvalidInput(f.Name, fmt.Sprintf("row %d: %T is not %s", i, v, f.Type))
			}
		}
	}
	return &Chunk{schema: schema, rows: rows}, nil
}

// Empty returns a chunk with no rows.
func Empty(schema *Schema) *Chunk {
	return &Chunk{schema: schema}
}

// Schema returns the chunk's schema.
func (c *Chunk) Schema() *Schema { return c.schema }

// Len returns the number of records.
func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rows)
}

// Record returns the i-th record.
func (c *Chunk) Record(i int) Record {
	return Record{schema: c.schema, values: c.rows[i]}
}

// Slice returns records [i, j) as a new chunk sharing storage.
func (c *Chunk) Slice(i, j int) *Chunk {
	return &Chunk{schema: c.schema, rows: c.rows[i:j:j]}
}

// Append returns a chunk holding c's records followed by o's.
func (c *Chunk) Append(o *Chunk) *Chunk {
	if o.Len() == 0 {
		return c
	}
	if c.Len() == 0 {
		return o
	}
	rows := make([][]any, 0, len(c.rows)+len(o.rows))
	rows = append(rows, c.rows...)
	rows = append(rows, o.rows...)
	return &Chunk{schema: c.schema, rows: rows}
}

// Start returns the time of the first record.
func (c *Chunk) Start() (int64, bool) {
	if c.Len() == 0 || c.schema.timeIdx < 0 {
		return 0, false
	}
	return c.rows[0][c.schema.timeIdx].(int64), true
}

// Endtime returns the largest record endtime in the chunk.
func (c *Chunk) Endtime() (int64, bool) {
	if c.Len() == 0 {
		return 0, false
	}
	end := c.schema.endtime(c.rows[0])
	for _, row := range c.rows[1:] {
		if e := c.schema.endtime(row); e > end {
			end = e
		}
	}
	return end, true
}

// Int64s returns a copy of an int64 column.
func (c *Chunk) Int64s(name string) []int64 {
	i, ok := c.schema.Index(name)
	if !ok {
		return nil
	}
	out := make([]int64, len(c.rows))
	for r, row := range c.rows {
		out[r], _ = row[i].(int64)
	}
	return out
}

// Float64s returns a copy of a float64 column.
func (c *Chunk) Float64s(name string) []float64 {
	i, ok := c.schema.Index(name)
	if !ok {
		return nil
	}
	out := make([]float64, len(c.rows))
	for r, row := range c.rows {
		out[r], _ = row[i].(float64)
	}
	return out
}

// Record is a read-only view of one row.
type Record struct {
	schema *Schema
	values []any
}

// Schema returns the record's schema.
func (r Record) Schema() *Schema { return r.schema }

// Get returns the value of a field.
func (r Record) Get(name string) (any, bool) {
	i, ok := r.schema.Index(name)
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Int64 returns an int64 field, or zero if it is absent or of another type.
func (r Record) Int64(name string) int64 {
	v, _ := r.Get(name)
	n, _ := v.(int64)
	return n
}

// Float64 returns a float64 field, or zero if it is absent or of another type.
func (r Record) Float64(name string) float64 {
	v, _ := r.Get(name)
	f, _ := v.(float64)
	return f
}

// String returns a string field, or "" if it is absent or of another type.
func (r Record) String(name string) string {
	v, _ := r.Get(name)
	s, _ := v.(string)
	return s
}

// Bool returns a bool field, or false if it is absent or of another type.
func (r Record) Bool(name string) bool {
	v, _ := r.Get(name)
	b, _ := v.(bool)
	return b
}

// Time returns the record's start time.
func (r Record) Time() int64 {
	if r.schema.timeIdx < 0 {
		return 0
	}
	return r.values[r.schema.timeIdx].(int64)
}

// Endtime returns the record's exclusive upper time bound.
func (r Record) Endtime() int64 { return r.schema.endtime(r.values) }

// Values returns a copy of the row values in schema order.
func (r Record) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}
