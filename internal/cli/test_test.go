package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

const failingScenario = `name: wrong_name
description: "A renamed value is checked against the wrong name"
seed:
  name: Demo
  values:
    - name: limit
      description: "10"
steps:
  - op: push_name
    path: value:limit
    args: {name: ceiling}
assertions:
  - type: name
    path: value:ceiling
    name: floor
`

func TestTestCommand_Passes(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ rename_value")
	assert.Contains(t, out, "✓ remote_cascade")
	assert.Contains(t, out, "0 failed")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir, "--filter", "remote_*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "remote_cascade", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "missing", resp.Data.Scenarios[0].Golden)
}

func TestTestCommand_GoldenMatch(t *testing.T) {
	out, _, err := execute(t, "test", filepath.Join(scenariosDir, "rename_value.yaml"), "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)
}

func TestTestCommand_Failure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(failingScenario), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_name")
	assert.Contains(t, out, "Assertion failed: name value:ceiling")
	assert.Contains(t, out, "1 failed")
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := os.ReadFile(filepath.Join(scenariosDir, "rename_value.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rename_value.yaml"), data, 0o644))

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ rename_value (golden updated)")

	written, err := os.ReadFile(filepath.Join(root, "golden", "rename_value.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/rename_value.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	// The regenerated file now matches.
	_, _, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTestCommand_Errors(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")

	_, _, err = execute(t, "test")
	require.Error(t, err)
}

func TestTestCommand_Empty(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
