package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one protocol conformance scenario: a workflow spec
// plus the ordered tool turns to drive against it.
type Scenario struct {
	// Name uniquely identifies the scenario; it is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Spec is the inline YAML workflow spec passed to validate/plan.
	Spec string `yaml:"spec"`

	// Turns is the ordered list of tool calls.
	Turns []Turn `yaml:"turns"`
}

// Turn is one tool call with optional expectations on its response.
type Turn struct {
	// Tool is one of "validate", "plan", "step_done", "audit".
	Tool string `yaml:"tool"`

	// Flow names the flow to plan (plan only).
	Flow string `yaml:"flow,omitempty"`

	// Inputs are the flow inputs (plan only).
	Inputs map[string]any `yaml:"inputs,omitempty"`

	// Step is the reported step id (step_done only).
	Step string `yaml:"step,omitempty"`

	// Result is the reported step result (step_done only).
	Result map[string]any `yaml:"result,omitempty"`

	// FlowID overrides the implicit most-recently-planned flow id
	// (step_done and audit).
	FlowID string `yaml:"flow_id,omitempty"`

	// ExpectStatus asserts the response's status field.
	ExpectStatus string `yaml:"expect_status,omitempty"`

	// ExpectStep asserts the response's step_id field.
	ExpectStep string `yaml:"expect_step,omitempty"`

	// ExpectError asserts the response is an error envelope with this
	// error_type slug.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Tool name constants.
const (
	ToolValidate = "validate"
	ToolPlan     = "plan"
	ToolStepDone = "step_done"
	ToolAudit    = "audit"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently skipping an
// expectation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario under dir, sorted by file
// name for stable test order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Spec == "" {
		return fmt.Errorf("spec is required")
	}
	if len(s.Turns) == 0 {
		return fmt.Errorf("turns list is required and must be non-empty")
	}

	for i, turn := range s.Turns {
		if err := validateTurn(i, &turn); err != nil {
			return err
		}
	}
	return nil
}

func validateTurn(index int, t *Turn) error {
	switch t.Tool {
	case ToolValidate, ToolAudit:
	case ToolPlan:
		if t.Flow == "" {
			return fmt.Errorf("turns[%d]: flow is required for plan", index)
		}
	case ToolStepDone:
		if t.Step == "" {
			return fmt.Errorf("turns[%d]: step is required for step_done", index)
		}
		if t.Result == nil {
			return fmt.Errorf("turns[%d]: result is required for step_done (use empty map if no fields)", index)
		}
	case "":
		return fmt.Errorf("turns[%d]: tool is required", index)
	default:
		return fmt.Errorf("turns[%d]: unknown tool %q", index, t.Tool)
	}

	if t.ExpectError != "" && t.ExpectStatus != "" {
		return fmt.Errorf("turns[%d]: expect_error and expect_status are mutually exclusive", index)
	}
	return nil
}
