package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/graphsync/internal/canon"
	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/remote"
)

// MirrorResult describes a mirrored remote store.
type MirrorResult struct {
	Projects   int              `json:"projects"`
	Entities   map[string]int   `json:"entities"`
	Records    int              `json:"records"`
	TreeHash   string           `json:"tree_hash"`
	Consistent bool             `json:"consistent"`
	Tree       []graph.Snapshot `json:"tree"`
}

// mirrorAll mirrors every project of r into g and subscribes the whole
// graph.
func mirrorAll(ctx context.Context, r *remote.Remote, g *graph.Graph) error {
	for _, d := range r.Projects() {
		if _, err := g.NewProject(d); err != nil {
			return fmt.Errorf("mirror project %s: %w", d.Name, err)
		}
	}
	if err := g.StartAll(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	r.Drain()
	return nil
}

// describe compares the mirror with the remote and collects the result.
func describe(r *remote.Remote, g *graph.Graph) (MirrorResult, error) {
	want, err := r.TreeHash()
	if err != nil {
		return MirrorResult{}, fmt.Errorf("hash remote tree: %w", err)
	}
	tree := g.Snapshot()
	got, err := canon.Hash(canon.DomainTree, tree)
	if err != nil {
		return MirrorResult{}, fmt.Errorf("hash mirror tree: %w", err)
	}

	entities := make(map[string]int)
	for kind, n := range g.Live() {
		entities[kind.String()] = n
	}
	return MirrorResult{
		Projects:   len(tree),
		Entities:   entities,
		Records:    int(r.Clock()),
		TreeHash:   got,
		Consistent: got == want,
		Tree:       tree,
	}, nil
}

// writeMirrorText prints the tree followed by a one-line verdict.
func writeMirrorText(f *OutputFormatter, res MirrorResult) {
	WriteTree(f.Writer, res.Tree)
	fmt.Fprintln(f.Writer)

	total := 0
	for _, n := range res.Entities {
		total += n
	}
	if res.Consistent {
		fmt.Fprintf(f.Writer, "✓ %d entities in %d project(s) in sync (tree %s)\n", total, res.Projects, short(res.TreeHash))
		return
	}
	fmt.Fprintf(f.Writer, "✗ mirror diverged from remote (tree %s)\n", short(res.TreeHash))
}

// reportMetrics logs every gathered sample in verbose mode.
func reportMetrics(f *OutputFormatter, reg *prometheus.Registry) {
	if !f.Verbose {
		return
	}
	families, err := reg.Gather()
	if err != nil {
		f.VerboseLog("gather metrics: %v", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var v float64
			switch {
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			}
			f.VerboseLog("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), v)
		}
	}
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
