package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/remote"
	"github.com/roach88/graphsync/internal/source"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the initial remote tree. Exactly one of Seed and SeedFile is
	// set.
	Seed *remote.Seed `yaml:"seed,omitempty"`

	// SeedFile is a CUE seed file or directory, relative to the scenario.
	SeedFile string `yaml:"seed_file,omitempty"`

	// Steps run in order after the seed has been mirrored.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final tree.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation against the mirror or the remote store.
type Step struct {
	// Op names the operation, for example "push_name" or "remote_remove".
	Op string `yaml:"op"`

	// Path selects the entity the operation runs on.
	Path string `yaml:"path,omitempty"`

	// Args carries operation inputs such as staged field values.
	Args map[string]string `yaml:"args,omitempty"`

	// Expect is the expected outcome: "ok" (the default), "error" for any
	// failure, "not_found" for an unresolvable path, or an error code.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the final tree.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path selects the entity (exists, absent, name, field, order).
	Path string `yaml:"path,omitempty"`

	// Name is the expected confirmed name (name).
	Name string `yaml:"name,omitempty"`

	// Field and Value are the expected kind-specific field (field).
	Field string `yaml:"field,omitempty"`
	Value string `yaml:"value,omitempty"`

	// Kind selects an entity type (count, order).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of live entities or journal records
	// (count, journal).
	Count int `yaml:"count,omitempty"`

	// Names is the expected child order (order).
	Names []string `yaml:"names,omitempty"`
}

// Assertion type constants.
const (
	AssertExists  = "exists"
	AssertAbsent  = "absent"
	AssertName    = "name"
	AssertField   = "field"
	AssertCount   = "count"
	AssertOrder   = "order"
	AssertJournal = "journal"
)

// Expectation keywords besides error codes.
const (
	ExpectOK       = "ok"
	ExpectError    = "error"
	ExpectNotFound = "not_found"
)

var knownCodes = map[graph.ErrorCode]bool{
	graph.CodeIsDeleted:              true,
	graph.CodeAlreadyUpdating:        true,
	graph.CodeNotUpdating:            true,
	graph.CodeNameCannotBeEmpty:      true,
	graph.CodeNewNameIsSameAsCurrent: true,
	graph.CodeNoChangesToPush:        true,
	graph.CodeAlreadyAdded:           true,
	graph.CodeAlreadyRemoved:         true,
	graph.CodeEventQueueIsEmpty:      true,
	graph.CodeOwnerIsDeleted:         true,
	graph.CodeRootAlreadyExists:      true,
	graph.CodeLocationOccupied:       true,
	graph.CodeUnexpectedEvent:        true,
	graph.CodeUnknown:                true,
}

// LoadScenario reads and parses a scenario YAML file. A relative seed_file
// is resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.SeedFile != "" && !filepath.IsAbs(scenario.SeedFile) {
		scenario.SeedFile = filepath.Join(filepath.Dir(path), scenario.SeedFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Seed == nil && s.SeedFile == "":
		return fmt.Errorf("one of seed or seed_file is required")
	case s.Seed != nil && s.SeedFile != "":
		return fmt.Errorf("seed and seed_file are mutually exclusive")
	case s.Seed != nil && s.Seed.Name == "":
		return fmt.Errorf("seed: name is required")
	}
	if s.SeedFile != "" {
		if _, err := os.Stat(s.SeedFile); os.IsNotExist(err) {
			return fmt.Errorf("seed file not found: %s", s.SeedFile)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	op, ok := ops[st.Op]
	if !ok {
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	for _, arg := range op.required {
		if _, ok := st.Args[arg]; !ok {
			return fmt.Errorf("steps[%d]: %s requires arg %q", index, st.Op, arg)
		}
	}
	if _, err := parsePath(st.Path); err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}
	switch st.Expect {
	case "", ExpectOK, ExpectError, ExpectNotFound:
	default:
		if !knownCodes[graph.ErrorCode(st.Expect)] {
			return fmt.Errorf("steps[%d]: unknown expectation %q", index, st.Expect)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if _, err := parsePath(a.Path); err != nil {
		return fmt.Errorf("assertions[%d]: %w", index, err)
	}

	switch a.Type {
	case AssertExists, AssertAbsent:
	case AssertName:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for name", index)
		}
	case AssertField:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for field", index)
		}
	case AssertCount, AssertOrder:
		if _, err := source.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertJournal:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
