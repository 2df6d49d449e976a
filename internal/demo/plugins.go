package demo

import (
	"context"

	"github.com/kbukum/kindflow/dag"
	"github.com/kbukum/kindflow/plugin"
	"github.com/kbukum/kindflow/record"
)

// Output names.
const (
	Peaks              = "peaks"
	PeakClassification = "peak_classification"
	PeakInfo           = "peak_info"
	Events             = "events"
	EventBasics        = "event_basics"
)

const (
	// EventGap is the largest gap between peaks of one event.
	EventGap = 1000
	// LargeArea separates large peaks (type 2) from small ones (type 1).
	LargeArea = 40_000
)

var (
	PeaksSchema = record.MustSchema(
		record.F(record.FieldTime, record.Int64),
		record.F(record.FieldEndtime, record.Int64),
		record.F("channel", record.Int64),
		record.F("area", record.Float64),
	)
	ClassificationSchema = record.MustSchema(
		record.F(record.FieldTime, record.Int64),
		record.F(record.FieldEndtime, record.Int64),
		record.F("peak_type", record.Int64),
	)
	EventsSchema = record.MustSchema(
		record.F(record.FieldTime, record.Int64),
		record.F(record.FieldEndtime, record.Int64),
		record.F("n_peaks", record.Int64),
	)
	EventBasicsSchema = record.MustSchema(
		record.F(record.FieldTime, record.Int64),
		record.F(record.FieldEndtime, record.Int64),
		record.F("n_peaks", record.Int64),
		record.F("area", record.Float64),
		record.F("largest_area", record.Float64),
	)
)

// Plugins returns the chain's plugins, without the records placeholder.
func Plugins() ([]plugin.Plugin, error) {
	info, err := plugin.NewMerge(plugin.Descriptor{
		Provides:  PeakInfo,
		DependsOn: []string{Peaks, PeakClassification},
	})
	if err != nil {
		return nil, err
	}
	basics, err := plugin.NewLoop(plugin.Descriptor{
		Provides:  EventBasics,
		DependsOn: []string{Events, Peaks},
		Schema:    EventBasicsSchema,
		Save:      plugin.SaveAlways,
		Version:   "0.2.0",
	}, eventBasics)
	if err != nil {
		return nil, err
	}
	return []plugin.Plugin{
		plugin.New(plugin.Descriptor{
			Provides:  Peaks,
			DependsOn: []string{dag.RecordsName},
			Schema:    PeaksSchema,
			Version:   "0.1.0",
			Parallel:  true,
		}, findPeaks),
		plugin.New(plugin.Descriptor{
			Provides:  PeakClassification,
			DependsOn: []string{Peaks},
			DataKind:  Peaks,
			Schema:    ClassificationSchema,
		}, classifyPeaks),
		info,
		plugin.New(plugin.Descriptor{
			Provides:  Events,
			DependsOn: []string{Peaks},
			Schema:    EventsSchema,
		}, findEvents),
		basics,
	}, nil
}

// Registry registers the records placeholder, the chain and extra.
func Registry(extra ...plugin.Plugin) (*dag.Registry, error) {
	chain, err := Plugins()
	if err != nil {
		return nil, err
	}
	all := append(dag.DefaultSources(), chain...)
	return dag.NewRegistry(append(all, extra...)...)
}

// findPeaks turns every record into one peak spanning the record.
func findPeaks(_ context.Context, b *plugin.Batch) (*record.Chunk, error) {
	recs := b.Chunk(dag.RecordsName)
	out := b.NewBuilder(recs.Len())
	for i := 0; i < recs.Len(); i++ {
		r := recs.Record(i)
		row := out.Row(i)
		row.SetInt64(record.FieldTime, r.Time())
		row.SetInt64(record.FieldEndtime, r.Endtime())
		row.SetInt64("channel", r.Int64("channel"))
		row.SetFloat64("area", float64(r.Int64("pulse_length")*r.Int64(record.FieldDt))*r.Float64("baseline")/100)
	}
	return out.Build()
}

func classifyPeaks(_ context.Context, b *plugin.Batch) (*record.Chunk, error) {
	peaks := b.Chunk(Peaks)
	out := b.NewBuilder(peaks.Len())
	for i := 0; i < peaks.Len(); i++ {
		p := peaks.Record(i)
		row := out.Row(i)
		row.SetInt64(record.FieldTime, p.Time())
		row.SetInt64(record.FieldEndtime, p.Endtime())
		if p.Float64("area") >= LargeArea {
			row.SetInt64("peak_type", 2)
		} else {
			row.SetInt64("peak_type", 1)
		}
	}
	return out.Build()
}

// findEvents joins peaks separated by at most EventGap into events. Events
// do not span chunk boundaries.
func findEvents(_ context.Context, b *plugin.Batch) (*record.Chunk, error) {
	peaks := b.Chunk(Peaks)
	type span struct{ start, end, n int64 }
	var spans []span
	for i := 0; i < peaks.Len(); i++ {
		p := peaks.Record(i)
		if n := len(spans); n > 0 && p.Time() <= spans[n-1].end+EventGap {
			last := &spans[n-1]
			last.end = max(last.end, p.Endtime())
			last.n++
			continue
		}
		spans = append(spans, span{start: p.Time(), end: p.Endtime(), n: 1})
	}

	out := b.NewBuilder(len(spans))
	for i, s := range spans {
		out.Row(i).SetAll(map[string]any{
			record.FieldTime:    s.start,
			record.FieldEndtime: s.end,
			"n_peaks":           s.n,
		})
	}
	return out.Build()
}

func eventBasics(event record.Record, contained map[record.DataKind]*record.Chunk, out record.Row) error {
	peaks := contained[Peaks]
	var total, largest float64
	for _, a := range peaks.Float64s("area") {
		total += a
		largest = max(largest, a)
	}
	out.SetInt64(record.FieldTime, event.Time())
	out.SetInt64(record.FieldEndtime, event.Endtime())
	out.SetInt64("n_peaks", int64(peaks.Len()))
	out.SetFloat64("area", total)
	out.SetFloat64("largest_area", largest)
	return nil
}
