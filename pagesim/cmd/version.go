package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the version of the simulator. It is set at link time.
var Version = "dev"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of pagesim.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pagesim version %s\n", Version)
		},
	}
}
