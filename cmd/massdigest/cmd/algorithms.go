package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"massnet.org/massdigest/crypto/sha256"
)

func newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List supported digest algorithms and block transforms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := [][]string{{"NAME", "SIZE", "BLOCK"}}
			for _, alg := range sha256.Algorithms() {
				rows = append(rows, []string{alg.Name, fmt.Sprint(alg.Size), fmt.Sprint(alg.BlockSize)})
			}
			if err := printTable(cmd.OutOrStdout(), rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\ntransforms: %s\n", strings.Join(sha256.Transforms(), ", "))
			return nil
		},
	}
}
