package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/graphsync/internal/source"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Path     string       // Entity the assertion was about, if any
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Steps    []StepResult // Executed steps for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Path != "" {
		fmt.Fprintf(&buf, " %s", e.Path)
	}
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Steps) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for i, s := range e.Steps {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", i+1, s.Op, s.Path, s.Result)
		}
	}
	return buf.String()
}

// evaluateAssertions checks every assertion against the run and returns
// one message per failure.
func evaluateAssertions(ctx context.Context, x *execution, result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(ctx, x, a); err != nil {
			err.Steps = result.Steps
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(ctx context.Context, x *execution, a Assertion) *AssertionError {
	fail := func(expected, actual string) *AssertionError {
		return &AssertionError{Type: a.Type, Path: a.Path, Expected: expected, Actual: actual}
	}

	switch a.Type {
	case AssertExists:
		if _, ok := resolve(x.g, x.project, a.Path); !ok {
			return fail("entity exists", "not found")
		}

	case AssertAbsent:
		if h, ok := resolve(x.g, x.project, a.Path); ok {
			return fail("entity absent", fmt.Sprintf("found %s %q", h.kind, h.name()))
		}

	case AssertName:
		h, ok := resolve(x.g, x.project, a.Path)
		if !ok {
			return fail(fmt.Sprintf("name %q", a.Name), "not found")
		}
		if got := h.name(); got != a.Name {
			return fail(fmt.Sprintf("name %q", a.Name), fmt.Sprintf("name %q", got))
		}

	case AssertField:
		h, ok := resolve(x.g, x.project, a.Path)
		if !ok {
			return fail(fmt.Sprintf("%s %q", a.Field, a.Value), "not found")
		}
		got, ok := fieldOf(h, a.Field)
		if !ok {
			return fail(fmt.Sprintf("%s %q", a.Field, a.Value), fmt.Sprintf("%s has no field %s", h.kind, a.Field))
		}
		if got != a.Value {
			return fail(fmt.Sprintf("%s %q", a.Field, a.Value), fmt.Sprintf("%s %q", a.Field, got))
		}

	case AssertCount:
		kind, _ := source.ParseKind(a.Kind)
		if got := x.g.Live()[kind]; got != a.Count {
			return fail(fmt.Sprintf("%d live %s", a.Count, kind), fmt.Sprintf("%d live %s", got, kind))
		}

	case AssertOrder:
		kind, _ := source.ParseKind(a.Kind)
		h, ok := resolve(x.g, x.project, a.Path)
		if !ok {
			return fail(fmt.Sprintf("%s children %v", kind, a.Names), "not found")
		}
		got := []string{}
		for _, c := range childrenOf(x.g, h, kind) {
			got = append(got, c.name())
		}
		want := a.Names
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(got, want) {
			return fail(fmt.Sprintf("%s children %v", kind, want), fmt.Sprintf("%s children %v", kind, got))
		}

	case AssertJournal:
		n, err := x.journal.Count(ctx)
		if err != nil {
			return fail(fmt.Sprintf("%d journal records", a.Count), err.Error())
		}
		if n != a.Count {
			return fail(fmt.Sprintf("%d journal records", a.Count), fmt.Sprintf("%d journal records", n))
		}

	default:
		return fail("known assertion type", a.Type)
	}
	return nil
}
