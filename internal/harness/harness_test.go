package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/remote"
)

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Steps, len(s.Steps))
		})
	}
}

func demoScenario() *Scenario {
	return &Scenario{
		Name:        "demo",
		Description: "demo",
		Seed: &remote.Seed{
			Name: "Demo",
			Systems: []remote.SeedSystem{{
				Name:     "Main",
				Location: "0,0",
				Objects: []remote.SeedObject{{
					Name:   "Root",
					Root:   true,
					States: []remote.SeedState{{Name: "speed"}},
				}},
			}},
			Values: []remote.SeedValue{{Name: "limit", Description: "10"}},
		},
	}
}

func TestRun_ReportsUnmetExpectation(t *testing.T) {
	s := demoScenario()
	s.Steps = []Step{
		{Op: "push_name", Path: "value:limit", Args: map[string]string{"name": "limit"}},
		{Op: "remove", Path: "value:limit", Expect: "IS_DELETED"},
	}
	s.Assertions = []Assertion{{Type: AssertAbsent, Path: "value:limit"}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, []StepResult{
		{Op: "push_name", Path: "value:limit", Result: "NEW_NAME_IS_SAME_AS_CURRENT"},
		{Op: "remove", Path: "value:limit", Result: "ok"},
	}, result.Steps)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected ok, got NEW_NAME_IS_SAME_AS_CURRENT")
	assert.Contains(t, result.Errors[1], "expected IS_DELETED, got ok")
}

func TestRun_RemoteFailureAndRetry(t *testing.T) {
	s := demoScenario()
	s.Steps = []Step{
		{Op: "remote_fail", Path: "system:Main/object:Root/state:speed", Args: map[string]string{"message": "offline"}},
		{Op: "push_name", Path: "system:Main/object:Root/state:speed", Args: map[string]string{"name": "velocity"}, Expect: "UNKNOWN"},
		{Op: "push_name", Path: "system:Main/object:Root/state:speed", Args: map[string]string{"name": "velocity"}},
	}
	s.Assertions = []Assertion{
		{Type: AssertName, Path: "system:Main/object:Root/state:velocity", Name: "velocity"},
		{Type: AssertJournal, Count: 6},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 6, result.Journal)
}

func TestRun_RemoteEditsReachMirror(t *testing.T) {
	s := demoScenario()
	s.Steps = []Step{
		{Op: "remote_set", Path: "value:limit", Args: map[string]string{"field": "description", "value": "20"}},
		{Op: "remote_set", Path: "value:limit", Args: map[string]string{"field": "colour", "value": "red"}, Expect: ExpectError},
		{Op: "remote_create", Path: "system:Main", Args: map[string]string{"kind": "object", "name": "Extra"}},
		{Op: "remote_duplicate", Path: "system:Main/object:Root/state:speed"},
	}
	s.Assertions = []Assertion{
		{Type: AssertField, Path: "value:limit", Field: "description", Value: "20"},
		{Type: AssertField, Path: "system:Main/object:Extra", Field: "role", Value: "node"},
		{Type: AssertOrder, Path: "system:Main/object:Root", Kind: "state", Names: []string{"speed", "speed"}},
		{Type: AssertCount, Kind: "object", Count: 2},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailedAssertionsCarryContext(t *testing.T) {
	s := demoScenario()
	s.Steps = []Step{{Op: "start_all"}}
	s.Assertions = []Assertion{
		{Type: AssertExists, Path: "value:missing"},
		{Type: AssertName, Path: "value:limit", Name: "other"},
		{Type: AssertField, Path: "value:limit", Field: "result", Value: "x"},
		{Type: AssertCount, Kind: "state", Count: 5},
		{Type: AssertOrder, Path: "system:Main", Kind: "object", Names: []string{"A"}},
		{Type: AssertJournal, Count: 1},
		{Type: AssertAbsent, Path: "system:Main"},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, len(s.Assertions))
	assert.Contains(t, result.Errors[0], "Assertion failed: exists value:missing")
	assert.Contains(t, result.Errors[1], `Actual: name "limit"`)
	assert.Contains(t, result.Errors[2], "value has no field result")
	assert.Contains(t, result.Errors[3], "Actual: 1 live state")
	assert.Contains(t, result.Errors[4], "object children [Root]")
	assert.Contains(t, result.Errors[5], "Actual: 5 journal records")
	assert.Contains(t, result.Errors[6], `found system "Main"`)
	assert.Contains(t, result.Errors[0], "[1] start_all  -> ok")
}

func TestRun_SeedFileErrors(t *testing.T) {
	s := demoScenario()
	s.Seed = nil
	s.SeedFile = filepath.Join(t.TempDir(), "missing.cue")

	_, err := Run(context.Background(), s)
	assert.ErrorContains(t, err, "failed to load seed")
}
