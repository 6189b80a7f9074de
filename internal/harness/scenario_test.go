package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Inline(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/rename_value.yaml")
	require.NoError(t, err)

	assert.Equal(t, "rename_value", s.Name)
	require.NotNil(t, s.Seed)
	assert.Equal(t, "Demo", s.Seed.Name)
	require.Len(t, s.Seed.Values, 1)
	assert.Equal(t, "10", s.Seed.Values[0].Description)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, "push_name", s.Steps[0].Op)
	assert.Equal(t, map[string]string{"name": "ceiling"}, s.Steps[0].Args)
	assert.Equal(t, "NEW_NAME_IS_SAME_AS_CURRENT", s.Steps[1].Expect)
	assert.Len(t, s.Assertions, 4)
}

func TestLoadScenario_ResolvesSeedFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/remote_cascade.yaml")
	require.NoError(t, err)

	assert.Nil(t, s.Seed)
	assert.Equal(t, filepath.Join("testdata", "seeds", "plant.cue"), s.SeedFile)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\nseed: {name: P}\nsteps: [{op: start_all}]\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: d\nseed: {name: P}\nsteps: [{op: start_all}]\nassertions: [{type: exists}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing seed",
			content: "name: x\ndescription: d\nsteps: [{op: start_all}]\nassertions: [{type: exists}]\n",
			wantErr: "one of seed or seed_file is required",
		},
		{
			name:    "both seeds",
			content: "name: x\ndescription: d\nseed: {name: P}\nseed_file: a.cue\nsteps: [{op: start_all}]\nassertions: [{type: exists}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "missing seed file",
			content: "name: x\ndescription: d\nseed_file: nowhere.cue\nsteps: [{op: start_all}]\nassertions: [{type: exists}]\n",
			wantErr: "seed file not found",
		},
		{
			name:    "no steps",
			content: "name: x\ndescription: d\nseed: {name: P}\nassertions: [{type: exists}]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			content: "name: x\ndescription: d\nseed: {name: P}\nsteps: [{op: explode}]\nassertions: [{type: exists}]\n",
			wantErr: `unknown op "explode"`,
		},
		{
			name:    "missing arg",
			content: "name: x\ndescription: d\nseed: {name: P}\nsteps: [{op: push_name, path: \"value:v\"}]\nassertions: [{type: exists}]\n",
			wantErr: `push_name requires arg "name"`,
		},
		{
			name:    "bad path",
			content: "name: x\ndescription: d\nseed: {name: P}\nsteps: [{op: remove, path: \"value\"}]\nassertions: [{type: exists}]\n",
			wantErr: "is not kind:name",
		},
		{
			name:    "unknown expectation",
			content: "name: x\ndescription: d\nseed: {name: P}\nsteps: [{op: start_all, expect: BROKEN}]\nassertions: [{type: exists}]\n",
			wantErr: `unknown expectation "BROKEN"`,
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: d\nseed: {name: P}\nsteps: [{op: start_all}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "count without kind",
			content: "name: x\ndescription: d\nseed: {name: P}\nsteps: [{op: start_all}]\nassertions: [{type: count, count: 1}]\n",
			wantErr: "unknown kind",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParsePath(t *testing.T) {
	segs, err := parsePath("system:Main/object:Root Node/state:a")
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, "system:Main", segs[0].String())
	assert.Equal(t, "object:Root Node", segs[1].String())

	segs, err = parsePath("")
	require.NoError(t, err)
	assert.Empty(t, segs)

	_, err = parsePath("widget:x")
	assert.Error(t, err)
	_, err = parsePath("system:")
	assert.Error(t, err)
}
