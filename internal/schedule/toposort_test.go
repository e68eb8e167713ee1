package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratumhq/stratum/internal/ir"
)

func step(id string, deps []string, inputs map[string]string) ir.Step {
	if inputs == nil {
		inputs = map[string]string{}
	}
	return ir.Step{ID: id, Function: "fn", Inputs: inputs, DependsOn: deps}
}

func ids(steps []ir.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.ID
	}
	return out
}

func TestOrderRespectsExplicitDependencies(t *testing.T) {
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{
		step("s3", []string{"s2"}, nil),
		step("s2", []string{"s1"}, nil),
		step("s1", nil, nil),
	}}

	ordered, err := Order(flow)
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2", "s3"}, ids(ordered))
}

func TestOrderDerivesImplicitEdgesFromReferences(t *testing.T) {
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{
		step("report", nil, map[string]string{"data": "$.steps.analyze.output.summary"}),
		step("analyze", nil, map[string]string{"rows": "$.steps.fetch.output"}),
		step("fetch", nil, map[string]string{"topic": "$.input.topic"}),
	}}

	ordered, err := Order(flow)
	require.NoError(t, err)
	require.Equal(t, []string{"fetch", "analyze", "report"}, ids(ordered))
}

func TestOrderCombinesExplicitAndImplicitEdges(t *testing.T) {
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{
		step("s1", nil, nil),
		step("s2", []string{"s1"}, nil),
		step("s3", nil, map[string]string{"x": "$.steps.s2.output.x"}),
	}}

	ordered, err := Order(flow)
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2", "s3"}, ids(ordered))
}

func TestOrderBreaksTiesByDeclarationOrder(t *testing.T) {
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{
		step("b", nil, nil),
		step("a", nil, nil),
		step("c", []string{"a", "b"}, nil),
	}}

	for range 5 {
		ordered, err := Order(flow)
		require.NoError(t, err)
		require.Equal(t, []string{"b", "a", "c"}, ids(ordered))
	}
}

func TestOrderIsPermutationOfSteps(t *testing.T) {
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{
		step("w", nil, nil),
		step("x", []string{"w"}, nil),
		step("y", nil, map[string]string{"in": "$.steps.w.output"}),
		step("z", []string{"x", "y"}, nil),
	}}

	ordered, err := Order(flow)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"w", "x", "y", "z"}, ids(ordered))

	seen := map[string]bool{}
	for _, s := range ordered {
		for _, d := range s.DependsOn {
			require.True(t, seen[d], "dependency %q must precede %q", d, s.ID)
		}
		seen[s.ID] = true
	}
}

func TestOrderDetectsCycle(t *testing.T) {
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{
		step("s1", []string{"s2"}, nil),
		step("s2", []string{"s1"}, nil),
	}}

	_, err := Order(flow)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, []string{"s1", "s2"}, ce.Steps)
	require.Contains(t, ce.Error(), "s1")
	require.Contains(t, ce.Error(), "s2")
}

func TestOrderDetectsImplicitCycle(t *testing.T) {
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{
		step("s1", nil, map[string]string{"x": "$.steps.s2.output"}),
		step("s2", nil, map[string]string{"y": "$.steps.s1.output"}),
	}}

	_, err := Order(flow)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Steps, 2)
}

func TestOrderDetectsSelfDependency(t *testing.T) {
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{
		step("s1", []string{"s1"}, nil),
	}}

	_, err := Order(flow)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, []string{"s1"}, ce.Steps)
}

func TestOrderReportsUnsatisfiableReference(t *testing.T) {
	// A reference to a step id nothing provides can never be satisfied;
	// the owning step is reported as unresolved before any dispatch.
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{
		step("s1", nil, nil),
		step("s2", nil, map[string]string{"x": "$.steps.ghost.output"}),
	}}

	_, err := Order(flow)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, []string{"s2"}, ce.Steps)
}

func TestOrderSingleStep(t *testing.T) {
	flow := &ir.Flow{Name: "f", Steps: []ir.Step{step("only", nil, nil)}}
	ordered, err := Order(flow)
	require.NoError(t, err)
	require.Equal(t, []string{"only"}, ids(ordered))
}
