package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kbukum/kindflow/config"
	"github.com/kbukum/kindflow/logger"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags and the configuration they load.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
	Format     string
	Verbose    bool

	Config config.Config
}

// NewRootCommand creates the kindflow root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kindflow",
		Short: "Stream records through a graph of plugins",
		Long: `kindflow wires plugins into a dependency graph and streams chunks of
records through them, aligning inputs of different data kinds by time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to config.yml")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "path to a .env file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

func (o *RootOptions) load() error {
	if !slices.Contains(ValidFormats, o.Format) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats), nil)
	}

	var loaderOpts []config.LoaderOption
	if o.ConfigFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(o.ConfigFile))
	}
	if o.EnvFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(o.EnvFile))
	}
	if err := config.LoadConfig("kindflow", &o.Config, loaderOpts...); err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}
	o.Config.ApplyDefaults()
	if o.Verbose {
		o.Config.Logging.Level = "debug"
	}
	if err := o.Config.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	logger.Init(o.Config.Logging)
	return nil
}

// emit writes v as indented JSON, or calls text when the format is text.
func (o *RootOptions) emit(w io.Writer, v any, text func(io.Writer) error) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
