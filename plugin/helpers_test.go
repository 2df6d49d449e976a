package plugin

import (
	"context"
	"testing"

	"github.com/kbukum/kindflow/align"
	"github.com/kbukum/kindflow/pipeline"
	"github.com/kbukum/kindflow/record"
)

var (
	pointSchema    = record.MustSchema(record.F(record.FieldTime, record.Int64))
	intervalSchema = record.MustSchema(record.F(record.FieldTime, record.Int64), record.F(record.FieldEndtime, record.Int64))
)

func chunkOf(t *testing.T, schema *record.Schema, rows ...[]any) *record.Chunk {
	t.Helper()
	c, err := record.NewChunk(schema, rows...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func pointsChunk(t *testing.T, times ...int64) *record.Chunk {
	t.Helper()
	rows := make([][]any, len(times))
	for i, tm := range times {
		rows[i] = []any{tm}
	}
	return chunkOf(t, pointSchema, rows...)
}

func source(chunks ...*record.Chunk) align.Chunks {
	return pipeline.Slice(chunks...)
}

func dep(name, kind string, schema *record.Schema) Dependency {
	return Dependency{Name: name, Kind: record.DataKind(kind), Schema: schema}
}

func drain(t *testing.T, results pipeline.Iterator[Result]) []*record.Chunk {
	t.Helper()
	it := Chunks(context.Background(), results)
	defer it.Close()
	var out []*record.Chunk
	for {
		c, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, c)
	}
}

func totalRows(chunks []*record.Chunk) int {
	n := 0
	for _, c := range chunks {
		n += c.Len()
	}
	return n
}
