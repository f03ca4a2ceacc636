package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perastrom/koto/pkg/plugins"
)

// NewPluginsCommand creates the plugins command.
func NewPluginsCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "plugins",
		Short:         "List the built-in plugin kinds",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, kind := range plugins.Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), kind)
			}
			return nil
		},
	}
}
