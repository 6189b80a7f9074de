package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/graphsync/internal/canon"
	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/journal"
	"github.com/roach88/graphsync/internal/logging"
	"github.com/roach88/graphsync/internal/remote"
	"github.com/roach88/graphsync/internal/testutil"
)

// execution is the state of one scenario run.
type execution struct {
	journal *journal.Journal
	r       *remote.Remote
	g       *graph.Graph
	project *graph.Project
	logger  *slog.Logger
}

// Option configures a run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes the remote's and the graph's logs to l.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh remote store backed by an in-memory
// journal, with sequential IDs on both sides for reproducible output.
//
// Execution flow:
//  1. Seed the remote and mirror the project into a new graph
//  2. Execute the steps, checking each expectation
//  3. Evaluate the assertions
//  4. Check the mirror against the remote and the journal against both
//
// The returned error covers setup failures only; scenario failures are
// reported through Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	seed, err := loadSeed(scenario)
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	r := remote.New(
		remote.WithJournal(j),
		remote.WithIDGenerator(testutil.NewSequentialIDs("doc")),
		remote.WithLogger(o.logger),
	)
	g := graph.New(r,
		graph.WithIDGenerator(testutil.NewSequentialIDs("local")),
		graph.WithLogger(o.logger),
	)

	d, err := r.Seed(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}
	p, err := g.NewProject(d)
	if err != nil {
		return nil, fmt.Errorf("failed to mirror project: %w", err)
	}
	if err := g.StartAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	x := &execution{journal: j, r: r, g: g, project: p, logger: o.logger}
	result := NewResult()
	x.executeSteps(ctx, scenario.Steps, result)

	for _, errMsg := range evaluateAssertions(ctx, x, result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	if err := x.checkConsistency(ctx); err != nil {
		result.AddError(err.Error())
	}

	result.Tree = g.Snapshot()
	if result.Journal, err = j.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count journal: %w", err)
	}
	return result, nil
}

func loadSeed(s *Scenario) (remote.Seed, error) {
	if s.Seed != nil {
		return *s.Seed, nil
	}
	seed, err := remote.LoadSeed(s.SeedFile)
	if err != nil {
		return remote.Seed{}, fmt.Errorf("failed to load seed: %w", err)
	}
	return seed, nil
}

// executeSteps runs every step in order. A step whose outcome differs from
// its expectation fails the scenario but does not stop the run.
func (x *execution) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		got := x.executeStep(ctx, step)
		// Deliveries are synchronous, but a step may have left notes queued
		// behind a concurrent flush.
		x.r.Drain()

		result.AddStep(step.Op, step.Path, got)
		if !expectationMet(step.Expect, got) {
			want := step.Expect
			if want == "" {
				want = ExpectOK
			}
			result.AddError(fmt.Sprintf("steps[%d] %s %s: expected %s, got %s",
				i, step.Op, step.Path, want, got))
		}

		x.logger.Info("step completed",
			"step", i,
			"op", step.Op,
			"path", step.Path,
			"result", got,
		)
	}
}

func (x *execution) executeStep(ctx context.Context, step Step) string {
	h, ok := resolve(x.g, x.project, step.Path)
	if !ok {
		return ExpectNotFound
	}
	return outcome(ops[step.Op].run(ctx, x, h, step.Args))
}

// checkConsistency compares the mirror with the remote, then rebuilds a
// store from the journal and compares it with the remote.
func (x *execution) checkConsistency(ctx context.Context) error {
	want, err := x.r.TreeHash()
	if err != nil {
		return fmt.Errorf("hash remote tree: %w", err)
	}
	got, err := canon.Hash(canon.DomainTree, x.g.Snapshot())
	if err != nil {
		return fmt.Errorf("hash mirror tree: %w", err)
	}
	if got != want {
		return fmt.Errorf("mirror diverged from remote (mirror %s, remote %s)", got[:12], want[:12])
	}

	restored := remote.New(remote.WithLogger(x.logger))
	if err := restored.Restore(ctx, x.journal); err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	replayed, err := restored.TreeHash()
	if err != nil {
		return fmt.Errorf("hash replayed tree: %w", err)
	}
	if replayed != want {
		return fmt.Errorf("journal replay diverged from remote (replay %s, remote %s)", replayed[:12], want[:12])
	}
	return nil
}
