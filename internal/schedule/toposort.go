// Package schedule orders a flow's steps for dispatch.
//
// The scheduler is pure: no IO, no globals, no state. Order is computed
// once at plan time and never recomputed; the controller dispatches the
// returned sequence verbatim.
package schedule

import (
	"fmt"
	"strings"

	"github.com/stratumhq/stratum/internal/ir"
	"github.com/stratumhq/stratum/internal/ref"
)

// CycleError reports steps the scheduler could not order: a dependency
// cycle, or a dependency on a step id that no step in the flow provides.
// Steps lists the unresolved step ids in declaration order.
type CycleError struct {
	Flow  string
	Steps []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected in step dependencies of flow %q: [%s]",
		e.Flow, strings.Join(e.Steps, ", "))
}

// ExecutionError marks CycleError as an execution failure for protocol
// translation.
func (e *CycleError) ExecutionError() string { return e.Error() }

// Order topologically sorts a flow's steps with Kahn's algorithm.
//
// The edge set is the union of:
//   - explicit edges: d → S for every d in S.depends_on
//   - implicit edges: d → S for every input binding of S that references
//     $.steps.<d>.
//
// Ties between simultaneously ready steps break by declaration order, so
// the dispatch sequence is deterministic for a given flow definition.
func Order(flow *ir.Flow) ([]ir.Step, error) {
	position := make(map[string]int, len(flow.Steps))
	for i, step := range flow.Steps {
		position[step.ID] = i
	}

	// deps[id] is the set of step ids that must complete before id.
	// Dependencies on ids no step provides are kept: they can never be
	// satisfied, so the owning step surfaces in the unresolved list.
	deps := make(map[string]map[string]bool, len(flow.Steps))
	for _, step := range flow.Steps {
		set := make(map[string]bool)
		for _, d := range step.DependsOn {
			set[d] = true
		}
		for _, binding := range step.Inputs {
			if d, ok := ref.StepRef(binding); ok {
				set[d] = true
			}
		}
		// A self-edge is a one-step cycle, not a satisfied dependency.
		deps[step.ID] = set
	}

	ordered := make([]ir.Step, 0, len(flow.Steps))
	done := make(map[string]bool, len(flow.Steps))
	for len(ordered) < len(flow.Steps) {
		next := -1
		for i, step := range flow.Steps {
			if done[step.ID] {
				continue
			}
			if satisfied(deps[step.ID], done) {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		ordered = append(ordered, flow.Steps[next])
		done[flow.Steps[next].ID] = true
	}

	if len(ordered) < len(flow.Steps) {
		var unresolved []string
		for _, step := range flow.Steps {
			if !done[step.ID] {
				unresolved = append(unresolved, step.ID)
			}
		}
		return nil, &CycleError{Flow: flow.Name, Steps: unresolved}
	}
	return ordered, nil
}

func satisfied(deps map[string]bool, done map[string]bool) bool {
	for d := range deps {
		if !done[d] {
			return false
		}
	}
	return true
}
