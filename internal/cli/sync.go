package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/journal"
	"github.com/roach88/graphsync/internal/remote"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Seed    string
	Journal string
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Seed a remote store, mirror it and print the tree",
		Long: `Build a remote project tree from a CUE seed, mirror it into a local
graph, subscribe every entity and print the mirrored tree.

With --journal, every remote commit is appended to a SQLite journal.
Projects already in the journal are restored first, so repeated runs
accumulate projects.

Exit codes:
  0 - Mirror matches the remote
  1 - Mirror diverged from the remote
  2 - Command error (unreadable seed, journal, etc.)

Examples:
  graphsync sync --seed ./tree.cue
  graphsync sync --seed ./seeds --journal ./graphsync.db
  graphsync sync --config ./graphsync.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Seed, "seed", "", "CUE seed file or directory (default from config)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal path (default from config)")

	return cmd
}

func runSync(ctx context.Context, opts *SyncOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)
	logger := opts.logger()

	seedPath := firstNonEmpty(opts.Seed, opts.Config.Seed)
	if seedPath == "" {
		return NewExitError(ExitCommandError, "a seed is required (--seed or seed in config)")
	}
	seed, err := remote.LoadSeed(seedPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load seed", err)
	}

	ropts := []remote.Option{remote.WithLogger(logger)}
	var j *journal.Journal
	if path := firstNonEmpty(opts.Journal, opts.Config.Journal); path != "" {
		j, err = journal.Open(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
		ropts = append(ropts, remote.WithJournal(j))
	}
	r := remote.New(ropts...)

	if j != nil {
		if err := r.Restore(ctx, j); err != nil {
			return WrapExitError(ExitCommandError, "failed to restore journal", err)
		}
		f.VerboseLog("restored %d record(s) from journal", r.Clock())
	}

	if _, err := r.Seed(ctx, seed); err != nil {
		return WrapExitError(ExitCommandError, "failed to seed remote", err)
	}
	f.VerboseLog("seeded project %q (%d documents)", seed.Name, r.Len())

	reg := prometheus.NewRegistry()
	g := graph.New(r, graph.WithLogger(logger), graph.WithMetrics(graph.NewMetrics(reg)))
	if err := mirrorAll(ctx, r, g); err != nil {
		return WrapExitError(ExitCommandError, "failed to mirror", err)
	}
	reportMetrics(f, reg)

	res, err := describe(r, g)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to describe mirror", err)
	}
	return outputMirror(f, res)
}

// outputMirror writes res and turns a divergence into exit code 1.
func outputMirror(f *OutputFormatter, res MirrorResult) error {
	var failure *ResponseError
	if !res.Consistent {
		failure = &ResponseError{Code: "E_DIVERGED", Message: "mirror diverged from remote"}
	}
	if f.Format == "json" {
		if err := f.JSON(res, failure); err != nil {
			return err
		}
	} else {
		writeMirrorText(f, res)
	}
	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
