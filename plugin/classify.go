package plugin

import (
	"strings"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/record"
)

// KindGroup holds the dependencies of one data kind. When classified with
// time required, the first dependency is the canonical time-bearing one.
type KindGroup struct {
	Kind record.DataKind
	Deps []Dependency
}

// Canonical returns the dependency carrying the group's time boundaries.
func (g KindGroup) Canonical() Dependency { return g.Deps[0] }

// Names returns the dependency names in group order.
func (g KindGroup) Names() []string {
	out := make([]string, len(g.Deps))
	for i, d := range g.Deps {
		out[i] = d.Name
	}
	return out
}

// KindGroups are kind groups ordered by first appearance in the dependencies.
type KindGroups []KindGroup

// Kinds returns the kinds in order.
func (gs KindGroups) Kinds() []record.DataKind {
	out := make([]record.DataKind, len(gs))
	for i, g := range gs {
		out[i] = g.Kind
	}
	return out
}

// Find returns the group of a kind.
func (gs KindGroups) Find(kind record.DataKind) (KindGroup, bool) {
	for _, g := range gs {
		if g.Kind == kind {
			return g, true
		}
	}
	return KindGroup{}, false
}

func (gs KindGroups) String() string {
	parts := make([]string, len(gs))
	for i, g := range gs {
		parts[i] = string(g.Kind) + ": " + errors.Join(g.Names())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Classify groups deps by kind. With requireTime, every time-bearing
// dependency is moved to the front of its group as it is seen, so the last
// declared one ends up canonical, and every group must start with a
// time-bearing dependency.
func Classify(deps []Dependency, requireTime bool) (KindGroups, error) {
	var groups KindGroups
	index := make(map[record.DataKind]int)
	for _, d := range deps {
		i, ok := index[d.Kind]
		if !ok {
			i = len(groups)
			index[d.Kind] = i
			groups = append(groups, KindGroup{Kind: d.Kind})
		}
		g := &groups[i]
		if requireTime && d.Schema.HasTime() {
			g.Deps = append([]Dependency{d}, g.Deps...)
		} else {
			g.Deps = append(g.Deps, d)
		}
	}

	if requireTime {
		for _, g := range groups {
			if !g.Canonical().Schema.HasTime() {
				return nil, errors.Configuration("no dependency of data kind %q has time information", g.Kind).
					WithDetail("kind", string(g.Kind)).
					WithDetail("dependencies", g.Names())
			}
		}
	}
	return groups, nil
}
