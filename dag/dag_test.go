package dag

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/kindflow/align"
	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/pipeline"
	"github.com/kbukum/kindflow/plugin"
	"github.com/kbukum/kindflow/record"
)

// --- test helpers ---

var (
	rawSchema = record.MustSchema(record.F(record.FieldTime, record.Int64), record.F("x", record.Int64))
	aSchema   = record.MustSchema(record.F(record.FieldTime, record.Int64), record.F("a", record.Int64))
	bSchema   = record.MustSchema(record.F(record.FieldTime, record.Int64), record.F("b", record.Int64))
)

func rawChunk(t *testing.T, xs ...int64) *record.Chunk {
	t.Helper()
	rows := make([][]any, len(xs))
	for i, x := range xs {
		rows[i] = []any{x, x}
	}
	c, err := record.NewChunk(rawSchema, rows...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

// mapPlugin derives one int64 field from the x field of its single dependency.
func mapPlugin(provides, from, field string, schema *record.Schema, fn func(int64) int64) plugin.Plugin {
	return plugin.New(plugin.Descriptor{
		Provides:  provides,
		DependsOn: []string{from},
		DataKind:  "samples",
		Schema:    schema,
	}, func(_ context.Context, b *plugin.Batch) (*record.Chunk, error) {
		in := b.Chunk(from)
		out := b.NewBuilder(in.Len())
		for i := 0; i < in.Len(); i++ {
			rec := in.Record(i)
			out.Row(i).SetInt64(record.FieldTime, rec.Time())
			out.Row(i).SetInt64(field, fn(rec.Int64("x")))
		}
		return out.Build()
	})
}

func registry(t *testing.T, plugins ...plugin.Plugin) *Registry {
	t.Helper()
	reg, err := NewRegistry(plugins...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return reg
}

// diamond: raw feeds a and b, which ab merges.
func diamond(t *testing.T) *Registry {
	t.Helper()
	merge, err := plugin.NewMerge(plugin.Descriptor{Provides: "ab", DependsOn: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return registry(t,
		plugin.NewPlaceholder("raw", "samples", rawSchema),
		mapPlugin("a", "raw", "a", aSchema, func(x int64) int64 { return x + 1 }),
		mapPlugin("b", "raw", "b", bSchema, func(x int64) int64 { return x * 10 }),
		merge,
	)
}

func collect(t *testing.T, it align.Chunks) *record.Chunk {
	t.Helper()
	defer it.Close()
	var out *record.Chunk
	for {
		c, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			return out
		}
		if out == nil {
			out = c
			continue
		}
		out = out.Append(c)
	}
}

type countingSource struct {
	src    align.Chunks
	pulls  int
	closed bool
}

func (c *countingSource) Next(ctx context.Context) (*record.Chunk, bool, error) {
	c.pulls++
	return c.src.Next(ctx)
}

func (c *countingSource) Close() error {
	c.closed = true
	return c.src.Close()
}

// --- Registry tests ---

func TestNewRegistry_Duplicate(t *testing.T) {
	_, err := NewRegistry(
		plugin.NewPlaceholder("raw", "samples", rawSchema),
		plugin.NewPlaceholder("raw", "samples", rawSchema),
	)
	if !errors.HasCode(err, errors.ErrCodeAlreadyExists) {
		t.Fatalf("expected already-exists error, got %v", err)
	}
}

func TestNewRegistry_InvalidNames(t *testing.T) {
	_, err := NewRegistry(
		plugin.NewPlaceholder("", "samples", rawSchema),
		plugin.NewPlaceholder("9lives", "samples", rawSchema),
	)
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !errors.HasCode(stderrors.Unwrap(err), errors.ErrCodeInvalidInput) {
		t.Fatalf("expected the validation failures as cause, got %v", err)
	}
}

func TestRegistry_GetAndList(t *testing.T) {
	reg := diamond(t)
	if diff := cmp.Diff([]string{"a", "ab", "b", "raw"}, reg.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if _, ok := reg.Get("raw"); !ok {
		t.Fatal("expected raw to be registered")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Fatal("expected missing to be absent")
	}
}

// --- BuildLevels tests ---

func TestBuildLevels_Linear(t *testing.T) {
	levels, err := BuildLevels([]string{"a", "b", "c"}, []Edge{{From: "a", To: "b"}, {From: "b", To: "c"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([][]string{{"a"}, {"b"}, {"c"}}, levels); diff != "" {
		t.Fatalf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLevels_Parallel(t *testing.T) {
	levels, err := BuildLevels([]string{"d", "c", "b", "a"}, []Edge{
		{From: "a", To: "b"}, {From: "a", To: "c"},
		{From: "b", To: "d"}, {From: "c", To: "d"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([][]string{{"a"}, {"b", "c"}, {"d"}}, levels); diff != "" {
		t.Fatalf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLevels_Cycle(t *testing.T) {
	_, err := BuildLevels([]string{"a", "b"}, []Edge{{From: "a", To: "b"}, {From: "b", To: "a"}})
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error for cycle, got %v", err)
	}
}

func TestBuildLevels_UnknownNode(t *testing.T) {
	_, err := BuildLevels([]string{"a"}, []Edge{{From: "a", To: "missing"}})
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

// --- Build tests ---

func TestBuild_BindsInLevelOrder(t *testing.T) {
	g, err := Build(diamond(t), "ab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([][]string{{"raw"}, {"a", "b"}, {"ab"}}, g.Levels()); diff != "" {
		t.Fatalf("levels mismatch (-want +got):\n%s", diff)
	}
	in, ok := g.Instance("ab")
	if !ok {
		t.Fatal("expected ab to be bound")
	}
	if diff := cmp.Diff([]string{"time", "a", "b"}, in.Schema().Names()); diff != "" {
		t.Fatalf("inferred schema mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_OnlyRequiredPlugins(t *testing.T) {
	g, err := Build(diamond(t), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "raw"}, g.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_UnknownTarget(t *testing.T) {
	_, err := Build(diamond(t), "nope")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestBuild_UnknownDependency(t *testing.T) {
	reg := registry(t, mapPlugin("a", "raw", "a", aSchema, func(x int64) int64 { return x }))
	_, err := Build(reg, "a")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestBuild_Cycle(t *testing.T) {
	reg := registry(t,
		mapPlugin("a", "b", "a", aSchema, func(x int64) int64 { return x }),
		mapPlugin("b", "a", "b", bSchema, func(x int64) int64 { return x }),
	)
	_, err := Build(reg, "a")
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error for cycle, got %v", err)
	}
}

func TestBuild_NoTargets(t *testing.T) {
	if _, err := Build(diamond(t)); !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

// --- Stream tests ---

func TestStream_Linear(t *testing.T) {
	g, err := Build(diamond(t), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Stream(context.Background(), "a",
		WithSource("raw", pipeline.Slice(rawChunk(t, 1, 2), rawChunk(t, 3))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := collect(t, out)
	if diff := cmp.Diff([]int64{2, 3, 4}, got.Int64s("a")); diff != "" {
		t.Fatalf("a mismatch (-want +got):\n%s", diff)
	}
}

func TestStream_FanOutPullsSourceOnce(t *testing.T) {
	g, err := Build(diamond(t), "ab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := &countingSource{src: pipeline.Slice(rawChunk(t, 1, 2), rawChunk(t, 3, 4))}
	out, err := g.Stream(context.Background(), "ab", WithSource("raw", src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := collect(t, out)
	if diff := cmp.Diff([]int64{2, 3, 4, 5}, got.Int64s("a")); diff != "" {
		t.Errorf("a mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{10, 20, 30, 40}, got.Int64s("b")); diff != "" {
		t.Errorf("b mismatch (-want +got):\n%s", diff)
	}
	if src.pulls != 3 {
		t.Errorf("expected two chunks and one end-of-stream pull, got %d pulls", src.pulls)
	}
	if !src.closed {
		t.Error("expected the source to be closed with the output")
	}
}

func TestStream_RepeatableOnSameGraph(t *testing.T) {
	g, err := Build(diamond(t), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		out, err := g.Stream(context.Background(), "a", WithSource("raw", pipeline.Slice(rawChunk(t, 5))))
		if err != nil {
			t.Fatalf("stream %d: unexpected error: %v", i, err)
		}
		if got := collect(t, out); got.Len() != 1 {
			t.Fatalf("stream %d: expected 1 row, got %d", i, got.Len())
		}
	}
}

func TestStream_Prefetch(t *testing.T) {
	g, err := Build(diamond(t), "ab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Stream(context.Background(), "ab",
		WithSource("raw", pipeline.Slice(rawChunk(t, 1), rawChunk(t, 2), rawChunk(t, 3))),
		WithPrefetch(2),
		WithRunID("run-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := collect(t, out)
	if diff := cmp.Diff([]int64{10, 20, 30}, got.Int64s("b")); diff != "" {
		t.Fatalf("b mismatch (-want +got):\n%s", diff)
	}
}

// endlessSource yields raw chunks forever and records any Close that
// overlaps a Next.
type endlessSource struct {
	t          *testing.T
	x          int64
	inNext     atomic.Bool
	closed     atomic.Bool
	overlapped atomic.Bool
}

func (e *endlessSource) Next(context.Context) (*record.Chunk, bool, error) {
	e.inNext.Store(true)
	defer e.inNext.Store(false)
	time.Sleep(time.Millisecond)
	if e.closed.Load() {
		e.overlapped.Store(true)
	}
	e.x++
	return rawChunk(e.t, e.x), true, nil
}

func (e *endlessSource) Close() error {
	if e.inNext.Load() {
		e.overlapped.Store(true)
	}
	e.closed.Store(true)
	return nil
}

func TestStream_PrefetchCloseMidStream(t *testing.T) {
	g, err := Build(diamond(t), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := &endlessSource{t: t}
	out, err := g.Stream(context.Background(), "a", WithSource("raw", src), WithPrefetch(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok, err := out.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected a chunk, got %v %v", ok, err)
	}
	if diff := cmp.Diff([]int64{2}, c.Int64s("a")); diff != "" {
		t.Fatalf("a mismatch (-want +got):\n%s", diff)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !src.closed.Load() {
		t.Fatal("expected the source to be closed")
	}
	if src.overlapped.Load() {
		t.Fatal("source closed while still being pulled")
	}
}

func TestStream_BatchSizeOption(t *testing.T) {
	g, err := Build(diamond(t), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Stream(context.Background(), "a",
		WithSource("raw", pipeline.Slice(rawChunk(t, 1, 2, 3, 4, 5))),
		WithIterOptions(plugin.WithBatchSize(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Close()
	var sizes []int
	for {
		c, ok, err := out.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			break
		}
		sizes = append(sizes, c.Len())
	}
	if diff := cmp.Diff([]int{2, 2, 1}, sizes); diff != "" {
		t.Fatalf("chunk sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestStream_PlaceholderWithoutSource(t *testing.T) {
	g, err := Build(diamond(t), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Stream(context.Background(), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Close()
	_, _, err = out.Next(context.Background())
	if !errors.HasCode(err, errors.ErrCodeNotRegistered) {
		t.Fatalf("expected not-registered error, got %v", err)
	}
}

func TestStream_SourceForUnknownName(t *testing.T) {
	g, err := Build(diamond(t), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := &countingSource{src: pipeline.Slice(rawChunk(t, 1))}
	_, err = g.Stream(context.Background(), "a", WithSource("elsewhere", src))
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if !src.closed {
		t.Fatal("expected the rejected source to be closed")
	}
}

func TestStream_UnusedSourceIsClosed(t *testing.T) {
	g, err := Build(diamond(t), "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unused := &countingSource{src: pipeline.Slice(rawChunk(t, 1))}
	out, err := g.Stream(context.Background(), "a",
		WithSource("raw", pipeline.Slice(rawChunk(t, 1))),
		WithSource("b", unused))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Close()
	if !unused.closed || unused.pulls != 0 {
		t.Fatalf("expected unused source closed without pulls, got closed=%v pulls=%d", unused.closed, unused.pulls)
	}
}

func TestStream_SourceReplacesIntermediate(t *testing.T) {
	g, err := Build(diamond(t), "ab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	aChunk, err := record.NewChunk(aSchema, []any{int64(7), int64(70)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Stream(context.Background(), "ab",
		WithSource("raw", pipeline.Slice(rawChunk(t, 7))),
		WithSource("a", pipeline.Slice(aChunk)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := collect(t, out)
	if diff := cmp.Diff([]int64{70}, got.Int64s("a")); diff != "" {
		t.Fatalf("a mismatch (-want +got):\n%s", diff)
	}
}
