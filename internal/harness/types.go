package harness

import "github.com/roach88/graphsync/internal/graph"

// StepResult is the outcome of one executed step.
type StepResult struct {
	Op     string `json:"op"`
	Path   string `json:"path,omitempty"`
	Result string `json:"result"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Steps lists each step with its observed outcome, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Tree is the mirror's final snapshot.
	Tree []graph.Snapshot `json:"tree"`

	// Journal is the number of records the remote committed.
	Journal int `json:"journal"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
		Tree:   []graph.Snapshot{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep records a step outcome.
func (r *Result) AddStep(op, path, result string) {
	r.Steps = append(r.Steps, StepResult{Op: op, Path: path, Result: result})
}
