package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/remote"
	"github.com/roach88/graphsync/internal/source"
)

// detached returns a project that is not subscribed, so events can be fed
// to its updater by hand.
func detached(t *testing.T, f *fixture) *Project {
	t.Helper()
	p, err := f.g.NewProject(source.Diff{Source: "doc-p", Target: "t-p", Name: "P"})
	require.NoError(t, err)
	return p
}

func valueDiff(target, name string) source.Diff {
	return source.Diff{
		Source: source.ID("doc-" + target),
		Target: source.Target(target),
		Name:   name,
		Fields: map[string]string{source.FieldDescription: ""},
	}
}

func valueNames(f *fixture, p *Project) []string {
	var out []string
	for _, id := range p.Values() {
		out = append(out, must(f.g.Value(id)).Name())
	}
	return out
}

func TestUpdater_AppliesInArrivalOrder(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	u := p.Updater()

	u.AppendEvent(source.Added(source.KindValue, valueDiff("v1", "one")))
	u.AppendEvent(source.Added(source.KindValue, valueDiff("v2", "two")))
	u.AppendEvent(source.AddedAfter(source.KindValue, valueDiff("v3", "three"), "v1"))
	u.AppendEvent(source.Modified(source.Diff{Source: "doc-p", Target: "t-p", Name: "renamed"}))
	assert.Equal(t, 4, u.Pending())

	require.NoError(t, u.Update(f.ctx))
	assert.Zero(t, u.Pending())
	assert.Equal(t, []string{"one", "three", "two"}, valueNames(f, p))
	assert.Equal(t, "renamed", p.Name())
	assert.Equal(t, "renamed", p.NameInput())
	assert.NoError(t, u.Issue())
}

func TestUpdater_LastModifiedWins(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	u := p.Updater()

	u.AppendEvent(source.Modified(source.Diff{Source: "doc-p", Target: "t-p", Name: "A"}))
	u.AppendEvent(source.Modified(source.Diff{Source: "doc-p", Target: "t-p", Name: "B"}))

	require.NoError(t, u.Update(f.ctx))
	assert.Equal(t, "B", p.Name())
	assert.Equal(t, "B", p.NameInput())
}

func TestUpdater_RejectsObjectWithUnknownParent(t *testing.T) {
	f := newFixture(t)
	p := f.mirror(remote.Seed{Name: "P", Systems: []remote.SeedSystem{{Name: "Empty"}}})
	sys := f.system(p)
	u := sys.Updater()

	u.AppendEvent(source.Added(source.KindObject, source.Diff{
		Source: "doc-orphan",
		Target: "t-orphan",
		Parent: "t-missing",
		Name:   "Orphan",
		Fields: map[string]string{source.FieldRole: "node"},
	}))

	err := u.Update(f.ctx)
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
	assert.Contains(t, err.Error(), "t-missing")
	assert.Empty(t, sys.Objects())
	assert.Zero(t, liveOf(f.g, source.KindObject))
}

func TestUpdater_EmptyQueue(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)

	err := p.Updater().Update(f.ctx)
	assert.ErrorIs(t, err, ErrEventQueueIsEmpty)
	assert.Equal(t, err, p.Updater().Issue())
}

func TestUpdater_RejectsDuplicateAdd(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	u := p.Updater()

	u.AppendEvent(source.Added(source.KindValue, valueDiff("v1", "one")))
	u.AppendEvent(source.Added(source.KindValue, valueDiff("v1", "again")))

	err := u.Update(f.ctx)
	assert.ErrorIs(t, err, ErrAlreadyAdded)
	assert.Equal(t, []string{"one"}, valueNames(f, p))
	assert.Equal(t, CodeAlreadyAdded, CodeOf(u.Issue()))
}

func TestUpdater_RejectsStaleModified(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	u := p.Updater()

	u.AppendEvent(source.Modified(source.Diff{Source: "doc-p", Target: "elsewhere", Name: "x"}))

	assert.ErrorIs(t, u.Update(f.ctx), ErrAlreadyRemoved)
	assert.Equal(t, "P", p.Name())
}

func TestUpdater_RejectsUnexpectedEvent(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	u := p.Updater()

	// Projects do not own getters.
	u.AppendEvent(source.Added(source.KindGetter, source.Diff{Source: "g", Target: "g"}))

	err := u.Update(f.ctx)
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
	assert.Zero(t, liveOf(f.g, source.KindGetter))
}

func TestUpdater_ContinuesAfterRejection(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	u := p.Updater()

	u.AppendEvent(source.Added(source.KindValue, valueDiff("v1", "one")))
	u.AppendEvent(source.Added(source.KindValue, valueDiff("v1", "dup")))
	u.AppendEvent(source.Added(source.KindSetter, source.Diff{Source: "s", Target: "s"}))
	u.AppendEvent(source.Added(source.KindValue, valueDiff("v2", "two")))

	err := u.Update(f.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyAdded)
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
	assert.Equal(t, []string{"one", "two"}, valueNames(f, p))

	// The last rejection is the one kept.
	assert.Equal(t, CodeUnexpectedEvent, CodeOf(u.Issue()))
}

func TestUpdater_OwnerRemovedMidDrain(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	u := p.Updater()

	u.AppendEvent(source.Added(source.KindValue, valueDiff("v1", "one")))
	u.AppendEvent(source.Removed())
	u.AppendEvent(source.Added(source.KindValue, valueDiff("v2", "two")))
	u.AppendEvent(source.Added(source.KindValue, valueDiff("v3", "three")))

	err := u.Update(f.ctx)
	assert.ErrorIs(t, err, ErrOwnerIsDeleted)
	assert.Zero(t, u.Pending(), "events behind the removal are dropped")
	assert.False(t, p.Exists())
	assert.Zero(t, f.g.LiveTotal())

	u.AppendEvent(source.Added(source.KindValue, valueDiff("v4", "four")))
	assert.ErrorIs(t, u.Update(f.ctx), ErrOwnerIsDeleted)
	assert.Zero(t, f.g.LiveTotal())
}

func TestUpdater_RemovedTwice(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	v, err := f.g.newValue(p.id, valueDiff("v1", "one"))
	require.NoError(t, err)

	u := v.Updater()
	u.AppendEvent(source.Removed())
	require.NoError(t, u.Update(f.ctx))
	assert.False(t, v.Exists())

	u.AppendEvent(source.Removed())
	assert.ErrorIs(t, u.Update(f.ctx), ErrOwnerIsDeleted)
}

func TestUpdater_OwnerRemovedAfterCapture(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	u := p.Updater()
	u.AppendEvent(source.Added(source.KindValue, valueDiff("v1", "one")))

	err := u.Update(f.ctx, protocol.AfterCapture(func(context.Context) {
		f.g.destroy(p)
	}))
	assert.ErrorIs(t, err, ErrOwnerIsDeleted)
	assert.Zero(t, liveOf(f.g, source.KindValue))
	assert.Zero(t, u.Pending())
}

func TestUpdater_JoinedErrorListsEveryRejection(t *testing.T) {
	f := newFixture(t)
	p := detached(t, f)
	u := p.Updater()

	u.AppendEvent(source.Added(source.KindGetter, source.Diff{Target: "g1"}))
	u.AppendEvent(source.Added(source.KindGetter, source.Diff{Target: "g2"}))

	err := u.Update(f.ctx)
	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Len(t, joined.Unwrap(), 2)
}
