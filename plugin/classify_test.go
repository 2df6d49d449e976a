package plugin

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/record"
)

var valueSchema = record.MustSchema(record.F("area", record.Float64))

func TestClassify_TimeBearingFirst(t *testing.T) {
	groups, err := Classify([]Dependency{
		dep("peak_widths", "peaks", valueSchema),
		dep("peaks", "peaks", pointSchema),
	}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if diff := cmp.Diff([]string{"peaks", "peak_widths"}, groups[0].Names()); diff != "" {
		t.Fatalf("time-bearing dependency must come first (-want +got):\n%s", diff)
	}
	if groups[0].Canonical().Name != "peaks" {
		t.Fatalf("expected canonical peaks, got %s", groups[0].Canonical().Name)
	}
}

func TestClassify_LastTimeBearingIsCanonical(t *testing.T) {
	groups, err := Classify([]Dependency{
		dep("peaks", "peaks", pointSchema),
		dep("peak_basics", "peaks", intervalSchema),
		dep("peak_widths", "peaks", valueSchema),
	}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"peak_basics", "peaks", "peak_widths"}, groups[0].Names()); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestClassify_GroupsInOrderOfAppearance(t *testing.T) {
	groups, err := Classify([]Dependency{
		dep("events", "events", intervalSchema),
		dep("peaks", "peaks", pointSchema),
		dep("event_info", "events", valueSchema),
	}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]record.DataKind{"events", "peaks"}, groups.Kinds()); diff != "" {
		t.Fatalf("kind order mismatch (-want +got):\n%s", diff)
	}
	events, ok := groups.Find("events")
	if !ok || len(events.Deps) != 2 {
		t.Fatalf("expected two events dependencies, got %+v", events)
	}
	if _, ok := groups.Find("hits"); ok {
		t.Fatal("unexpected hits group")
	}
}

func TestClassify_KindWithoutTime(t *testing.T) {
	_, err := Classify([]Dependency{
		dep("events", "events", intervalSchema),
		dep("peak_widths", "peaks", valueSchema),
	}, true)
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"peaks"`) {
		t.Fatalf("expected the offending kind to be named, got %v", err)
	}
}

func TestClassify_WithoutTimeRequirement(t *testing.T) {
	groups, err := Classify([]Dependency{
		dep("peak_widths", "peaks", valueSchema),
		dep("peaks", "peaks", pointSchema),
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"peak_widths", "peaks"}, groups[0].Names()); diff != "" {
		t.Fatalf("declaration order must be kept (-want +got):\n%s", diff)
	}
}

func TestClassify_Empty(t *testing.T) {
	groups, err := Classify(nil, true)
	if err != nil || len(groups) != 0 {
		t.Fatalf("expected no groups and no error, got %v, %v", groups, err)
	}
}

func TestKindGroups_String(t *testing.T) {
	groups, _ := Classify([]Dependency{
		dep("events", "events", intervalSchema),
		dep("peaks", "peaks", pointSchema),
	}, true)
	if got := groups.String(); got != "{events: [events], peaks: [peaks]}" {
		t.Fatalf("unexpected string %q", got)
	}
}
