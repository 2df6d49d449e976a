package record

import (
	"fmt"
	"sort"

	"github.com/kbukum/kindflow/errors"
)

// Contains reports whether thing's [time, endtime) lies within base's
// [time, endtime). A zero-length thing sitting on base's endtime belongs to
// the next interval, not this one.
func Contains(base, thing Record) bool {
	bStart, bEnd := base.Time(), base.Endtime()
	tStart, tEnd := thing.Time(), thing.Endtime()
	return tStart >= bStart && tEnd <= bEnd && tStart < bEnd
}

// PartitionByContainment splits things into one sub-chunk per base row,
// holding, in order, the things contained in that base row. Things outside
// every base row are dropped. Base rows must be sorted and must not overlap.
func PartitionByContainment(things, bases *Chunk) ([]*Chunk, error) {
	n := bases.Len()
	if n > 0 && !bases.schema.HasTime() {
		return nil, errors.MissingField(FieldTime).WithDetail("input", "bases")
	}
	if things.Len() > 0 && !things.schema.HasTime() {
		return nil, errors.MissingField(FieldTime).WithDetail("input", "things")
	}

	starts := make([]int64, n)
	for i := 0; i < n; i++ {
		b := bases.Record(i)
		starts[i] = b.Time()
		if i > 0 && starts[i] < bases.Record(i-1).Endtime() {
			return nil, errors.InvalidInput("bases", fmt.Sprintf(
				"base row %d starts at %d before base row %d ends at %d",
				i, starts[i], i-1, bases.Record(i-1).Endtime()))
		}
	}

	groups := make([][][]any, n)
	for j := 0; j < things.Len(); j++ {
		t := things.Record(j)
		// last base starting at or before the thing
		k := sort.Search(n, func(i int) bool { return starts[i] > t.Time() }) - 1
		if k < 0 || !Contains(bases.Record(k), t) {
			continue
		}
		groups[k] = append(groups[k], things.rows[j])
	}

	out := make([]*Chunk, n)
	for i, rows := range groups {
		out[i] = &Chunk{schema: things.schema, rows: rows}
	}
	return out, nil
}
