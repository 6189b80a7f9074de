package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/graphsync/internal/canon"
	"github.com/roach88/graphsync/internal/graph"
)

// GoldenSnapshot is the part of a run compared against golden files: the
// step outcomes and the final tree. IDs never appear in it.
type GoldenSnapshot struct {
	Scenario string           `json:"scenario"`
	Steps    []StepResult     `json:"steps"`
	Tree     []graph.Snapshot `json:"tree"`
	Journal  int              `json:"journal"`
}

// MarshalGolden renders the golden form of result as canonical JSON.
func MarshalGolden(name string, result *Result) ([]byte, error) {
	return canon.Marshal(GoldenSnapshot{
		Scenario: name,
		Steps:    result.Steps,
		Tree:     result.Tree,
		Journal:  result.Journal,
	})
}

// RunWithGolden executes a scenario and compares its golden form against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result, opts...)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := MarshalGolden(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	g.Assert(t, name, data)
	return nil
}
