package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/kindflow/dag"
	"github.com/kbukum/kindflow/internal/demo"
	"github.com/kbukum/kindflow/plugin"
)

// PluginInfo describes one bound plugin of a graph.
type PluginInfo struct {
	Provides  string   `json:"provides"`
	Kind      string   `json:"data_kind"`
	Version   string   `json:"version"`
	Save      string   `json:"save"`
	Parallel  bool     `json:"parallel,omitempty"`
	DependsOn []string `json:"depends_on,omitempty"`
	Fields    []string `json:"fields"`
}

// GraphInfo is the output of the graph command.
type GraphInfo struct {
	Targets []string       `json:"targets"`
	Levels  [][]PluginInfo `json:"levels"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [target...]",
		Short: "Print the dependency levels of the demo chain",
		Long: `Build the graph needed for the given targets and print it level by level.
Without targets every registered output is included.

Example:
  kindflow graph event_basics
  kindflow graph --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := buildGraph(rootOpts, args...)
			if err != nil {
				return err
			}
			info := describeGraph(g)
			return rootOpts.emit(cmd.OutOrStdout(), info, func(w io.Writer) error {
				return writeGraph(w, info)
			})
		},
	}
}

// buildGraph registers the demo chain plus configured sources and builds the
// graph for targets, or for every registered output when none are given.
func buildGraph(opts *RootOptions, targets ...string) (*dag.Graph, error) {
	var extra []plugin.Plugin
	if path := opts.Config.Sources; path != "" {
		sources, err := dag.LoadSources(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "loading sources", err)
		}
		extra = sources
	}
	reg, err := demo.Registry(extra...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "registering plugins", err)
	}
	if len(targets) == 0 {
		targets = reg.List()
	}
	g, err := dag.Build(reg, targets...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "building graph", err)
	}
	return g, nil
}

func describeGraph(g *dag.Graph) GraphInfo {
	info := GraphInfo{Targets: g.Targets()}
	for _, level := range g.Levels() {
		plugins := make([]PluginInfo, 0, len(level))
		for _, name := range level {
			in, _ := g.Instance(name)
			desc := in.Descriptor()
			fields := make([]string, 0, desc.Schema.Len())
			for _, f := range desc.Schema.Fields() {
				fields = append(fields, f.Name+":"+f.Type.String())
			}
			plugins = append(plugins, PluginInfo{
				Provides:  desc.Provides,
				Kind:      string(desc.DataKind),
				Version:   desc.Version,
				Save:      desc.Save.String(),
				Parallel:  desc.Parallel,
				DependsOn: desc.DependsOn,
				Fields:    fields,
			})
		}
		info.Levels = append(info.Levels, plugins)
	}
	return info
}

func writeGraph(w io.Writer, info GraphInfo) error {
	for i, level := range info.Levels {
		if _, err := fmt.Fprintf(w, "level %d\n", i); err != nil {
			return err
		}
		for _, p := range level {
			line := fmt.Sprintf("  %-20s kind=%s version=%s save=%s", p.Provides, p.Kind, p.Version, p.Save)
			if len(p.DependsOn) > 0 {
				line += " depends_on=" + strings.Join(p.DependsOn, ",")
			}
			if p.Parallel {
				line += " parallel"
			}
			if _, err := fmt.Fprintf(w, "%s\n    fields: %s\n", line, strings.Join(p.Fields, ", ")); err != nil {
				return err
			}
		}
	}
	return nil
}
