package spec

import (
	"fmt"
	"slices"

	"github.com/stratumhq/stratum/internal/ir"
)

// validateSemantics checks reference integrity across a structurally valid
// spec: output contracts exist, step functions exist, step ids are unique,
// depends_on names steps of the same flow. Walk order is sorted by name so
// repeated validation of one document always reports the same violation.
//
// Ordering and cycles among dependencies are the scheduler's authority,
// not checked here.
func validateSemantics(s *ir.Spec) error {
	for _, fnName := range sortedKeys(s.Functions) {
		fn := s.Functions[fnName]
		if _, ok := s.Contracts[fn.Output]; !ok {
			return &SemanticError{
				Path:    fmt.Sprintf("functions.%s.output", fnName),
				Message: fmt.Sprintf("function %q output contract %q not defined", fnName, fn.Output),
			}
		}
	}

	for _, flowName := range sortedKeys(s.Flows) {
		flow := s.Flows[flowName]
		if _, ok := s.Contracts[flow.Output]; !ok {
			return &SemanticError{
				Path:    fmt.Sprintf("flows.%s.output", flowName),
				Message: fmt.Sprintf("flow %q output contract %q not defined", flowName, flow.Output),
			}
		}

		known := make(map[string]bool, len(flow.Steps))
		for _, step := range flow.Steps {
			if known[step.ID] {
				return &SemanticError{
					Path:    fmt.Sprintf("flows.%s.steps.%s.id", flowName, step.ID),
					Message: fmt.Sprintf("duplicate step id %q in flow %q", step.ID, flowName),
				}
			}
			known[step.ID] = true
		}

		for _, step := range flow.Steps {
			if _, ok := s.Functions[step.Function]; !ok {
				return &SemanticError{
					Path:    fmt.Sprintf("flows.%s.steps.%s.function", flowName, step.ID),
					Message: fmt.Sprintf("step %q references undefined function %q", step.ID, step.Function),
				}
			}
			for _, dep := range step.DependsOn {
				if !known[dep] {
					return &SemanticError{
						Path:    fmt.Sprintf("flows.%s.steps.%s.depends_on", flowName, step.ID),
						Message: fmt.Sprintf("step %q depends_on unknown step %q", step.ID, dep),
					}
				}
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
