package protocol

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func assertWireShape(t *testing.T, name string, v any) {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	require.NoError(t, enc.Encode(v))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

func TestStepEnvelopeWireShape(t *testing.T) {
	assertWireShape(t, "step_envelope", &StepEnvelope{
		Status:         StatusExecuteStep,
		FlowID:         "flow-1",
		StepNumber:     1,
		TotalSteps:     3,
		StepID:         "s1",
		Function:       "summarize",
		Mode:           "infer",
		Intent:         "summarize the document",
		Inputs:         map[string]any{"doc": "quarterly report"},
		OutputContract: "Summary",
		OutputFields:   map[string]string{"text": "string"},
		Ensure:         []string{"len(result.text) > 0"},
		RetriesRemaining: 3,
	})
}

func TestEnsureFailedWireShape(t *testing.T) {
	assertWireShape(t, "ensure_failed", &EnsureFailed{
		Status:           StatusEnsureFailed,
		FlowID:           "flow-1",
		StepID:           "s1",
		Violations:       []string{"result.score >= 0.7"},
		RetriesRemaining: 2,
	})
}

func TestCompleteWireShape(t *testing.T) {
	assertWireShape(t, "complete", &Complete{
		Status: StatusComplete,
		FlowID: "flow-1",
		Output: map[string]any{"text": "done"},
		Trace: []StepTrace{{
			StepID:       "s1",
			Function:     "summarize",
			Attempts:     1,
			DispatchedAt: "2025-01-01T00:00:00Z",
			CompletedAt:  "2025-01-01T00:00:01Z",
			DurationMS:   1000,
			Outcome:      OutcomeCompleted,
		}},
		TotalDurationMS: 1000,
	})
}

func TestFailedWireShape(t *testing.T) {
	assertWireShape(t, "failed", &Failed{
		Status:     StatusFailed,
		FlowID:     "flow-1",
		StepID:     "s1",
		Violations: []string{"result.score >= 0.7"},
		Final:      true,
	})
}

func TestErrorEnvelopeWireShape(t *testing.T) {
	assertWireShape(t, "error_envelope", &ErrorEnvelope{
		ErrorType:  ErrValidation,
		Path:       "functions.summarize.mode",
		Message:    "invalid mode",
		Suggestion: `Allowed values: "infer", "compute"`,
	})
}

func TestErrorEnvelopeOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(&ErrorEnvelope{
		ErrorType: ErrInternal,
		Message:   "An unexpected error occurred.",
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"success":false,"error_type":"internal_error","message":"An unexpected error occurred."}`, string(data))
}

func TestValidateResultWireShape(t *testing.T) {
	data, err := json.Marshal(&ValidateResult{
		Status: StatusValid,
		Valid:  true,
		Errors: []ErrorEnvelope{},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"valid","valid":true,"errors":[]}`, string(data))
}
