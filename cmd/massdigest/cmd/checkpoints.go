package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"massnet.org/massdigest/checkpoint"
	"massnet.org/massdigest/errors"
	"massnet.org/massdigest/logging"
)

func newCheckpointsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Manage saved checkpoints",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *checkpoint.Store) error {
				records, err := store.List()
				if err != nil {
					return errors.New(errors.ErrCheckpointLoad, err)
				}
				rows := [][]string{{"PATH", "ALGORITHM", "OFFSET", "SIZE", "PROGRESS", "UPDATED"}}
				for _, r := range records {
					rows = append(rows, []string{
						r.Path,
						r.Algorithm,
						fmt.Sprint(r.Offset),
						fmt.Sprint(r.Size),
						progress(r),
						r.UpdatedAt.Format(time.RFC3339),
					})
				}
				return printTable(cmd.OutOrStdout(), rows)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all saved checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *checkpoint.Store) error {
				n, err := store.Clear()
				if err != nil {
					return errors.New(errors.ErrCheckpointSave, err)
				}
				logging.CPrint(logging.INFO, "checkpoints cleared", logging.LogFormat{"count": n})
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d checkpoints\n", n)
				return nil
			})
		},
	})
	return cmd
}

func (a *app) withStore(fn func(store *checkpoint.Store) error) error {
	if a.cfg.Checkpoint.Disable {
		return errors.New(errors.ErrInvalidParameter, fmt.Errorf("checkpoints are disabled"))
	}
	store, err := checkpoint.Open(a.cfg.Checkpoint.DBType, a.cfg.Checkpoint.Dir)
	if err != nil {
		return errors.New(errors.ErrCheckpointLoad, err)
	}
	defer store.Close()
	return fn(store)
}

func progress(r *checkpoint.Record) string {
	if r.Size <= 0 {
		return "100.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(r.Offset)*100/float64(r.Size))
}
