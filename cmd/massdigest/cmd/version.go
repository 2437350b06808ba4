package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"massnet.org/massdigest/version"
)

func newVersionCmd() *cobra.Command {
	var detail bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if detail {
				fmt.Fprintln(cmd.OutOrStdout(), version.Detail())
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersion())
		},
	}
	cmd.Flags().BoolVarP(&detail, "detail", "d", false, "include go version and platform")
	return cmd
}
