package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/source"
)

func openTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func createRecord(seq int64, doc, owner string, kind source.Kind, name string) Record {
	return Record{
		Seq:    seq,
		Op:     OpCreate,
		Doc:    source.ID(doc),
		Kind:   kind,
		Owner:  source.ID(owner),
		Target: source.Target("t-" + doc),
		Name:   name,
	}
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	j, path := openTestJournal(t)

	_, err := j.Append(ctx, createRecord(1, "p", "", source.KindProject, "Project"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	n, err := j2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var mode string
	require.NoError(t, j2.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, j2.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestAppend_Idempotent(t *testing.T) {
	ctx := context.Background()
	j, _ := openTestJournal(t)

	r := createRecord(1, "p", "", source.KindProject, "Project")

	inserted, err := j.Append(ctx, r)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = j.Append(ctx, r)
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppend_SeqCollisionFails(t *testing.T) {
	ctx := context.Background()
	j, _ := openTestJournal(t)

	_, err := j.Append(ctx, createRecord(1, "p", "", source.KindProject, "A"))
	require.NoError(t, err)

	_, err = j.Append(ctx, createRecord(1, "p", "", source.KindProject, "B"))
	assert.Error(t, err)
}

func TestAppendAll_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	j, _ := openTestJournal(t)

	require.NoError(t, j.AppendAll(ctx, []Record{
		createRecord(1, "p", "", source.KindProject, "Project"),
		createRecord(2, "s", "p", source.KindSystem, "System"),
	}))

	// The second record collides with seq 2, so the first is dropped too.
	err := j.AppendAll(ctx, []Record{
		createRecord(3, "v", "p", source.KindValue, "Value"),
		createRecord(2, "other", "p", source.KindSystem, "Other"),
	})
	require.Error(t, err)

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	last, err := j.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)
}

func TestAppend_RepeatedContentAtNewSeq(t *testing.T) {
	ctx := context.Background()
	j, _ := openTestJournal(t)

	set := func(seq int64, name string) Record {
		return Record{Seq: seq, Op: OpSet, Doc: "p", Kind: source.KindProject, Fields: map[string]string{source.FieldName: name}}
	}
	for i, name := range []string{"A", "B", "A"} {
		inserted, err := j.Append(ctx, set(int64(i+1), name))
		require.NoError(t, err)
		assert.True(t, inserted, "seq %d", i+1)
	}
}

func TestAppend_Validation(t *testing.T) {
	ctx := context.Background()
	j, _ := openTestJournal(t)

	tests := []struct {
		name string
		r    Record
	}{
		{"zero seq", Record{Op: OpRemove, Doc: "d", Kind: source.KindState}},
		{"missing doc", Record{Seq: 1, Op: OpRemove, Kind: source.KindState}},
		{"create without target", Record{Seq: 1, Op: OpCreate, Doc: "d", Kind: source.KindProject}},
		{"create without owner", Record{Seq: 1, Op: OpCreate, Doc: "d", Kind: source.KindSystem, Target: "t"}},
		{"set without fields", Record{Seq: 1, Op: OpSet, Doc: "d", Kind: source.KindSystem}},
		{"unknown op", Record{Seq: 1, Op: "rename", Doc: "d", Kind: source.KindSystem}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.Append(ctx, tt.r)
			assert.Error(t, err)
		})
	}
}

func TestRead_OrderAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	j, _ := openTestJournal(t)

	sys := createRecord(2, "s", "p", source.KindSystem, "Sys")
	sys.Fields = map[string]string{source.FieldLocation: "1,2"}
	obj := createRecord(3, "o", "s", source.KindObject, "Child")
	obj.Parent = "t-root"
	obj.After = "t-x"
	rm := Record{Seq: 4, Op: OpRemove, Doc: "o", Kind: source.KindObject}

	// Out of order on purpose.
	for _, r := range []Record{rm, sys, createRecord(1, "p", "", source.KindProject, "P"), obj} {
		_, err := j.Append(ctx, r)
		require.NoError(t, err)
	}

	all, err := j.Read(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, r := range all {
		assert.Equal(t, int64(i+1), r.Seq)
	}
	assert.Equal(t, sys, all[1])
	assert.Equal(t, obj, all[2])
	assert.Equal(t, rm, all[3])

	tail, err := j.Read(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, tail, 2)

	last, err := j.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), last)
}

func TestRead_Empty(t *testing.T) {
	ctx := context.Background()
	j, _ := openTestJournal(t)

	records, err := j.Read(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	last, err := j.LastSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestFingerprint_FieldOrderIndependent(t *testing.T) {
	a := Record{Seq: 1, Op: OpSet, Doc: "d", Kind: source.KindGetter, Fields: map[string]string{"name": "x", "result": "y"}}
	b := Record{Seq: 1, Op: OpSet, Doc: "d", Kind: source.KindGetter, Fields: map[string]string{"result": "y", "name": "x"}}

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb)

	b.Seq = 2
	fc, err := b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}
