package dag

import (
	"sort"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/plugin"
)

// Graph is the set of plugins needed to produce some targets, bound in
// dependency order.
type Graph struct {
	targets   []string
	plugins   map[string]plugin.Plugin
	deps      map[string][]string
	levels    [][]string
	instances map[string]*plugin.Instance
}

// Edge represents a dependency: To depends on From.
type Edge struct {
	From string
	To   string
}

// Build collects the transitive dependencies of targets from reg, orders them
// by dependency level and binds every plugin. Unknown names, cycles and
// plugin configuration errors are reported before any data flows.
func Build(reg *Registry, targets ...string) (*Graph, error) {
	if len(targets) == 0 {
		return nil, errors.Configuration("no targets to build")
	}
	g := &Graph{
		targets:   append([]string(nil), targets...),
		plugins:   make(map[string]plugin.Plugin),
		deps:      make(map[string][]string),
		instances: make(map[string]*plugin.Instance),
	}

	var edges []Edge
	pending := append([]string(nil), targets...)
	for len(pending) > 0 {
		name := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, seen := g.plugins[name]; seen {
			continue
		}
		p, ok := reg.Get(name)
		if !ok {
			return nil, errors.NotFound("plugin", name)
		}
		g.plugins[name] = p
		deps := p.Describe().DependsOn
		g.deps[name] = deps
		for _, dep := range deps {
			if _, known := reg.Get(dep); !known {
				return nil, errors.NotFound("plugin", dep).WithDetail("required_by", name)
			}
			edges = append(edges, Edge{From: dep, To: name})
			pending = append(pending, dep)
		}
	}

	levels, err := BuildLevels(g.Names(), edges)
	if err != nil {
		return nil, err
	}
	g.levels = levels

	for _, level := range levels {
		for _, name := range level {
			in, err := g.bind(name)
			if err != nil {
				return nil, err
			}
			g.instances[name] = in
		}
	}
	return g, nil
}

// bind binds a fresh instance of name against the outputs of the instances
// already bound.
func (g *Graph) bind(name string) (*plugin.Instance, error) {
	available := make([]plugin.Dependency, 0, len(g.deps[name]))
	for _, dep := range g.deps[name] {
		upstream, ok := g.instances[dep]
		if !ok {
			return nil, errors.Configuration("plugin %q is bound before its dependency %q", name, dep)
		}
		available = append(available, upstream.Output())
	}
	return plugin.Bind(g.plugins[name], available...)
}

// BuildLevels uses Kahn's algorithm to group names by dependency level.
// Names within a level are sorted. Returns an error if a cycle is detected.
func BuildLevels(names []string, edges []Edge) ([][]string, error) {
	inDegree := make(map[string]int, len(names))
	dependents := make(map[string][]string)
	for _, name := range names {
		inDegree[name] = 0
	}

	for _, e := range edges {
		if _, ok := inDegree[e.From]; !ok {
			return nil, errors.NotFound("plugin", e.From)
		}
		if _, ok := inDegree[e.To]; !ok {
			return nil, errors.NotFound("plugin", e.To)
		}
		inDegree[e.To]++
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}

	var levels [][]string
	visited := 0
	for len(queue) > 0 {
		sort.Strings(queue)
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, name := range queue {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if visited != len(inDegree) {
		var cyclic []string
		for name, deg := range inDegree {
			if deg > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return nil, errors.Configuration("dependency cycle among %s", errors.Join(cyclic)).
			WithDetail("plugins", cyclic)
	}
	return levels, nil
}

// Targets returns the names the graph was built for.
func (g *Graph) Targets() []string { return append([]string(nil), g.targets...) }

// Levels returns the plugin names grouped by dependency level.
func (g *Graph) Levels() [][]string {
	out := make([][]string, len(g.levels))
	for i, level := range g.levels {
		out[i] = append([]string(nil), level...)
	}
	return out
}

// Names returns the sorted names of every plugin in the graph.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.plugins))
	for name := range g.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instance returns the instance bound for name by Build. It describes the
// plugin's output; every Stream binds instances of its own.
func (g *Graph) Instance(name string) (*plugin.Instance, bool) {
	in, ok := g.instances[name]
	return in, ok
}
