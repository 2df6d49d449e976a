package demo

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/kindflow/align"
	"github.com/kbukum/kindflow/dag"
	"github.com/kbukum/kindflow/dispatch"
	"github.com/kbukum/kindflow/plugin"
	"github.com/kbukum/kindflow/record"
)

func build(t *testing.T, targets ...string) *dag.Graph {
	t.Helper()
	reg, err := Registry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := dag.Build(reg, targets...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func collect(t *testing.T, it align.Chunks) (*record.Chunk, int) {
	t.Helper()
	defer it.Close()
	var (
		out    *record.Chunk
		chunks int
	)
	for {
		c, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			return out, chunks
		}
		chunks++
		if out == nil {
			out = c
		} else {
			out = out.Append(c)
		}
	}
}

func sum(xs []int64) int64 {
	var s int64
	for _, x := range xs {
		s += x
	}
	return s
}

func TestRecords_Reproducible(t *testing.T) {
	cfg := RecordsConfig{Count: 25, ChunkSize: 10, Channels: 4, Seed: 7}
	a, chunks := collect(t, Records(cfg))
	b, _ := collect(t, Records(cfg))
	if chunks != 3 || a.Len() != 25 {
		t.Fatalf("expected 25 records in 3 chunks, got %d in %d", a.Len(), chunks)
	}
	if diff := cmp.Diff(a.Int64s(record.FieldTime), b.Int64s(record.FieldTime)); diff != "" {
		t.Fatalf("same seed produced different records (-a +b):\n%s", diff)
	}
	for i := 1; i < a.Len(); i++ {
		if a.Record(i).Time() < a.Record(i-1).Endtime() {
			t.Fatalf("record %d overlaps its predecessor", i)
		}
	}
}

func TestEventBasics_CountsEveryPeakOnce(t *testing.T) {
	cfg := RecordsConfig{Count: 250, ChunkSize: 40, Channels: 8, Seed: 3}
	g := build(t, EventBasics)
	out, err := g.Stream(context.Background(), EventBasics, dag.WithSource(dag.RecordsName, Records(cfg)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	basics, _ := collect(t, out)
	if got := sum(basics.Int64s("n_peaks")); got != 250 {
		t.Fatalf("expected every peak in exactly one event, got %d", got)
	}
	for i := 0; i < basics.Len(); i++ {
		r := basics.Record(i)
		if r.Int64("n_peaks") < 1 || r.Float64("largest_area") > r.Float64("area") {
			t.Fatalf("inconsistent event %d: %v", i, r.Values())
		}
	}
}

func TestEventBasics_MatchesEventPeakCounts(t *testing.T) {
	cfg := RecordsConfig{Count: 120, ChunkSize: 16, Channels: 2, Seed: 11}
	g := build(t, Events, EventBasics)

	events, err := g.Stream(context.Background(), Events, dag.WithSource(dag.RecordsName, Records(cfg)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev, _ := collect(t, events)

	basics, err := g.Stream(context.Background(), EventBasics, dag.WithSource(dag.RecordsName, Records(cfg)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eb, _ := collect(t, basics)

	if diff := cmp.Diff(ev.Int64s("n_peaks"), eb.Int64s("n_peaks")); diff != "" {
		t.Fatalf("per-event peak counts differ (-events +basics):\n%s", diff)
	}
}

func TestPeakInfo_MergesClassification(t *testing.T) {
	g := build(t, PeakInfo)
	in, _ := g.Instance(PeakInfo)
	want := []string{"time", "endtime", "channel", "area", "peak_type"}
	if diff := cmp.Diff(want, in.Schema().Names()); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}
	if in.SavePreference() != plugin.SaveIfExplicit {
		t.Fatalf("expected IF_EXPLICIT, got %s", in.SavePreference())
	}

	pool := dispatch.NewPool(dispatch.Config{Name: "test", Workers: 3})
	defer pool.Close()

	cfg := RecordsConfig{Count: 90, ChunkSize: 25, Seed: 5}
	out, err := g.Stream(context.Background(), PeakInfo,
		dag.WithSource(dag.RecordsName, Records(cfg)),
		dag.WithIterOptions(plugin.WithDispatcher(plugin.NewPoolDispatcher(pool))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, _ := collect(t, out)
	if info.Len() != 90 {
		t.Fatalf("expected 90 peaks, got %d", info.Len())
	}
	for i := 0; i < info.Len(); i++ {
		r := info.Record(i)
		large := r.Float64("area") >= LargeArea
		if typ := r.Int64("peak_type"); (typ == 2) != large {
			t.Fatalf("peak %d: type %d does not match area %v", i, typ, r.Float64("area"))
		}
	}
	times := info.Int64s(record.FieldTime)
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			t.Fatalf("dispatched results out of order at %d", i)
		}
	}
}
