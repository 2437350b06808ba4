package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/fatih/set.v0"
)

// uniquePaths drops repeated arguments, keeping the first occurrence.
func uniquePaths(args []string) []string {
	seen := set.New(set.ThreadSafe).(*set.Set)
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		if seen.Has(arg) {
			continue
		}
		seen.Add(arg)
		paths = append(paths, arg)
	}
	return paths
}

func printTable(w io.Writer, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
