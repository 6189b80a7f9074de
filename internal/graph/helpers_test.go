package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/canon"
	"github.com/roach88/graphsync/internal/logging"
	"github.com/roach88/graphsync/internal/remote"
	"github.com/roach88/graphsync/internal/source"
	"github.com/roach88/graphsync/internal/testutil"
)

// testSeed is a project with one system whose root object has two states,
// each with two getters and two setters, one action and one value.
func testSeed() remote.Seed {
	state := func(name string) remote.SeedState {
		return remote.SeedState{
			Name:    name,
			Getters: []remote.SeedGetter{{Name: name + "-g1", Result: "x"}, {Name: name + "-g2"}},
			Setters: []remote.SeedSetter{{Name: name + "-s1", Parameter: "p"}, {Name: name + "-s2"}},
		}
	}
	return remote.Seed{
		Name: "Demo",
		Systems: []remote.SeedSystem{{
			Name:     "Main",
			Location: "1,1",
			Objects: []remote.SeedObject{{
				Name:    "Root",
				Root:    true,
				States:  []remote.SeedState{state("a"), state("b")},
				Actions: []remote.SeedAction{{Name: "act"}},
			}},
		}},
		Values: []remote.SeedValue{{Name: "limit", Description: "10"}},
	}
}

// testSeedSize is the number of entities in testSeed.
const testSeedSize = 15

type fixture struct {
	t   *testing.T
	ctx context.Context
	r   *remote.Remote
	g   *Graph
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	r := remote.New(
		remote.WithIDGenerator(testutil.NewSequentialIDs("doc")),
		remote.WithLogger(logging.NewNop()),
	)
	opts = append([]Option{
		WithIDGenerator(testutil.NewSequentialIDs("local")),
		WithLogger(logging.NewNop()),
	}, opts...)
	return &fixture{t: t, ctx: context.Background(), r: r, g: New(r, opts...)}
}

// mirror seeds the remote with s, mirrors the project and subscribes the
// whole tree.
func (f *fixture) mirror(s remote.Seed) *Project {
	f.t.Helper()
	d, err := f.r.Seed(f.ctx, s)
	require.NoError(f.t, err)
	p, err := f.g.NewProject(d)
	require.NoError(f.t, err)
	require.NoError(f.t, f.g.StartAll(f.ctx))
	return p
}

func (f *fixture) requireInSync() {
	f.t.Helper()
	want, err := f.r.TreeHash()
	require.NoError(f.t, err)
	got, err := canon.Hash(canon.DomainTree, f.g.Snapshot())
	require.NoError(f.t, err)
	require.Equal(f.t, want, got, "mirror diverged from remote")
}

// docs of the remote tree, reached through the mirror.
func (f *fixture) system(p *Project) *System {
	f.t.Helper()
	ids := p.Systems()
	require.NotEmpty(f.t, ids)
	return must(f.g.System(ids[0]))
}

func (f *fixture) root(s *System) *Object {
	f.t.Helper()
	id, ok := s.Root()
	require.True(f.t, ok)
	return must(f.g.Object(id))
}

func (f *fixture) states(o *Object) []*State {
	var out []*State
	for _, id := range o.States() {
		out = append(out, must(f.g.State(id)))
	}
	return out
}

func (f *fixture) getters(s *State) []*Getter {
	var out []*Getter
	for _, id := range s.Getters() {
		out = append(out, must(f.g.Getter(id)))
	}
	return out
}

func (f *fixture) value(p *Project) *Value {
	f.t.Helper()
	ids := p.Values()
	require.NotEmpty(f.t, ids)
	return must(f.g.Value(ids[0]))
}

func must[T any](v T, ok bool) T {
	if !ok {
		panic("entity not found")
	}
	return v
}

func liveOf(g *Graph, k source.Kind) int {
	return g.Live()[k]
}
