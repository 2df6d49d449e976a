package record

import (
	"github.com/kbukum/kindflow/errors"
)

// Merge concatenates the fields of row-corresponding chunks. All chunks must
// have the same number of rows. The output schema follows Concat.
func Merge(chunks ...*Chunk) (*Chunk, error) {
	if len(chunks) == 0 {
		return nil, errors.InvalidInput("", "merge needs at least one chunk")
	}
	if len(chunks) == 1 {
		return chunks[0], nil
	}

	n := chunks[0].Len()
	schemas := make([]*Schema, len(chunks))
	for i, c := range chunks {
		if c.Len() != n {
			return nil, errors.Misaligned("cannot merge chunks of %d and %d rows", n, c.Len()).
				WithDetail("input", i)
		}
		schemas[i] = c.schema
	}
	schema, err := Concat(schemas...)
	if err != nil {
		return nil, err
	}

	// source[k] locates output field k in the first input providing it.
	type loc struct{ chunk, col int }
	source := make([]loc, schema.Len())
	for k, f := range schema.fields {
		for ci, c := range chunks {
			if j, ok := c.schema.Index(f.Name); ok {
				source[k] = loc{ci, j}
				break
			}
		}
	}

	rows := make([][]any, n)
	for r := range rows {
		row := make([]any, schema.Len())
		for k, l := range source {
			row[k] = chunks[l.chunk].rows[r][l.col]
		}
		rows[r] = row
	}
	return &Chunk{schema: schema, rows: rows}, nil
}
