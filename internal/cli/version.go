// ABOUTME: version subcommand
// ABOUTME: Prints the product name, version and commit
package cli

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmbridge/internal/version"
	"github.com/spf13/cobra"
)

// VersionCommand creates the version command
func VersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
