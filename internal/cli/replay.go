package cli

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/journal"
	"github.com/roach88/graphsync/internal/remote"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Journal string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the remote from its journal and verify the mirror",
		Long: `Replay every journaled commit into an empty remote store, mirror the
result and check that the mirror matches the rebuilt store.

Exit codes:
  0 - Mirror matches the replayed remote
  1 - Mirror diverged from the replayed remote
  2 - Command error (journal not found, corrupt record, etc.)

Examples:
  graphsync replay --journal ./graphsync.db
  graphsync replay --journal ./graphsync.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal path (default from config)")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)
	logger := opts.logger()

	path := firstNonEmpty(opts.Journal, opts.Config.Journal)
	if path == "" {
		return NewExitError(ExitCommandError, "a journal is required (--journal or journal in config)")
	}
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	n, err := j.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	f.VerboseLog("journal %s holds %d record(s)", path, n)

	r := remote.New(remote.WithLogger(logger))
	if err := r.Restore(ctx, j); err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}

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
