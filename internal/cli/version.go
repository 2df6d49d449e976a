package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/kindflow/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kindflow build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			return rootOpts.emit(cmd.OutOrStdout(), info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "kindflow %s (%s)\n", info, info.GoVersion)
				return err
			})
		},
	}
}
