package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"massnet.org/massdigest/checkpoint"
	"massnet.org/massdigest/config"
	"massnet.org/massdigest/crypto/sha256"
	"massnet.org/massdigest/errors"
	"massnet.org/massdigest/hasher"
	"massnet.org/massdigest/logging"
)

type sumFlags struct {
	algo         string
	resume       bool
	interval     string
	noCheckpoint bool
}

func newSumCmd(a *app) *cobra.Command {
	f := &sumFlags{}
	cmd := &cobra.Command{
		Use:   "sum <file>...",
		Short: "Print checksums of files",
		Long: "Print the checksum of every file in sha256sum format.\n" +
			"Progress is checkpointed, an interrupted run continues with --resume.",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
				logging.CPrint(logging.ERROR, "wrong argument count", logging.LogFormat{"count": len(args)})
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(a.cfg); err != nil {
				return err
			}
			return a.runSum(cmd, uniquePaths(args), f.resume)
		},
	}
	cmd.Flags().StringVarP(&f.algo, "algo", "a", "", "digest algorithm, sha256 or sha224 (default from config)")
	cmd.Flags().BoolVarP(&f.resume, "resume", "r", false, "continue from saved checkpoints")
	cmd.Flags().StringVar(&f.interval, "checkpoint-interval", "", "bytes hashed between checkpoints, e.g. 64MiB")
	cmd.Flags().BoolVar(&f.noCheckpoint, "no-checkpoint", false, "do not save checkpoints")
	return cmd
}

func (f *sumFlags) apply(cfg *config.Config) error {
	if f.algo != "" {
		v, err := sha256.ParseVariant(f.algo)
		if err != nil {
			return errors.New(errors.ErrUnknownAlgorithm, fmt.Errorf("%q", f.algo))
		}
		cfg.Hash.Algorithm = v.String()
	}
	if f.interval != "" {
		n, err := config.ParseSize(f.interval)
		if err != nil {
			return errors.New(errors.ErrInvalidParameter, fmt.Errorf("checkpoint interval %q", f.interval))
		}
		cfg.Checkpoint.Interval = n
	}
	if f.noCheckpoint {
		cfg.Checkpoint.Disable = true
	}
	if err := config.CheckConfig(cfg); err != nil {
		return errors.New(errors.ErrInvalidParameter, err)
	}
	return nil
}

func (a *app) runSum(cmd *cobra.Command, paths []string, resume bool) error {
	var store *checkpoint.Store
	if !a.cfg.Checkpoint.Disable {
		var err error
		if store, err = checkpoint.Open(a.cfg.Checkpoint.DBType, a.cfg.Checkpoint.Dir); err != nil {
			return errors.New(errors.ErrCheckpointLoad, err)
		}
		defer store.Close()
	}

	svc, err := hasher.NewService(a.cfg, store)
	if err != nil {
		return err
	}
	if err := svc.Start(); err != nil {
		return err
	}
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cancelOnInterrupt(ctx, cancel)

	out, errOut := cmd.OutOrStdout(), cmd.OutOrStderr()
	jobs := make([]*hasher.Job, len(paths))
	failed := 0
	for i, path := range paths {
		job, err := svc.Submit(ctx, hasher.Request{Path: path, Resume: resume})
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			failed++
			continue
		}
		jobs[i] = job
	}
	for i, job := range jobs {
		if job == nil {
			continue
		}
		res, err := job.Wait()
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", paths[i], err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s  %s\n", res.Hex(), res.Path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

// cancelOnInterrupt cancels running jobs on SIGINT or SIGTERM so that
// their checkpoints are kept for --resume.
func cancelOnInterrupt(ctx context.Context, cancel context.CancelFunc) {
	interruptCh := make(chan os.Signal, 2)
	signal.Notify(interruptCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interruptCh)
	select {
	case sig := <-interruptCh:
		logging.CPrint(logging.WARN, "received signal, saving checkpoints", logging.LogFormat{"signal": sig})
		cancel()
	case <-ctx.Done():
	}
}
