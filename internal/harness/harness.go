package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/stratumhq/stratum/internal/controller"
	"github.com/stratumhq/stratum/internal/ir"
	"github.com/stratumhq/stratum/internal/protocol"
	"github.com/stratumhq/stratum/internal/testutil"
)

// Harness drives scenario turns against one controller instance.
// Each Run should use a fresh Harness; flow ids restart at flow-1.
type Harness struct {
	ctrl *controller.Controller
	// lastFlowID is the id of the most recently planned flow, the
	// implicit target for step_done and audit turns.
	lastFlowID string
}

// New creates a harness around a deterministic controller: frozen
// clock, sequential flow ids, discarded logs.
func New() *Harness {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Harness{
		ctrl: controller.New(
			controller.WithClock(testutil.NewFrozenClock()),
			controller.WithIDGenerator(testutil.NewIDGenerator("")),
			controller.WithLogger(log),
		),
	}
}

// Entry is one executed turn in a transcript.
type Entry struct {
	Turn     int            `json:"turn"`
	Tool     string         `json:"tool"`
	Response map[string]any `json:"response"`
}

// Result holds the transcript of one scenario run.
type Result struct {
	Scenario string
	Entries  []Entry
}

// Run executes the scenario's turns in order. Controller rejections
// travel into the transcript as translated error envelopes; an
// expectation mismatch or a harness-level problem (unknown tool,
// missing flow id) aborts the run with an error.
func (h *Harness) Run(sc *Scenario) (*Result, error) {
	result := &Result{Scenario: sc.Name}
	for i, turn := range sc.Turns {
		n := i + 1
		response, err := h.execute(sc, &turn)
		if err != nil {
			return nil, fmt.Errorf("turn %d (%s): %w", n, turn.Tool, err)
		}
		result.Entries = append(result.Entries, Entry{Turn: n, Tool: turn.Tool, Response: response})

		if err := checkExpectations(n, &turn, response); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (h *Harness) execute(sc *Scenario, t *Turn) (map[string]any, error) {
	switch t.Tool {
	case ToolValidate:
		return responseMap(h.ctrl.Validate(sc.Spec))

	case ToolPlan:
		resp, err := h.ctrl.Plan(sc.Spec, t.Flow, t.Inputs)
		if err != nil {
			return responseMap(protocol.Translate(err))
		}
		m, merr := responseMap(resp)
		if merr != nil {
			return nil, merr
		}
		if id, ok := m["flow_id"].(string); ok {
			h.lastFlowID = id
		}
		return m, nil

	case ToolStepDone:
		flowID, err := h.targetFlow(t)
		if err != nil {
			return nil, err
		}
		resp, err := h.ctrl.StepDone(flowID, t.Step, t.Result)
		if err != nil {
			return responseMap(protocol.Translate(err))
		}
		return responseMap(resp)

	case ToolAudit:
		flowID, err := h.targetFlow(t)
		if err != nil {
			return nil, err
		}
		report, err := h.ctrl.Audit(flowID)
		if err != nil {
			return responseMap(protocol.Translate(err))
		}
		return responseMap(report)

	default:
		return nil, fmt.Errorf("unknown tool %q", t.Tool)
	}
}

func (h *Harness) targetFlow(t *Turn) (string, error) {
	if t.FlowID != "" {
		return t.FlowID, nil
	}
	if h.lastFlowID == "" {
		return "", fmt.Errorf("no flow planned yet and no flow_id given")
	}
	return h.lastFlowID, nil
}

func checkExpectations(n int, t *Turn, response map[string]any) error {
	if t.ExpectStatus != "" {
		if got, _ := response["status"].(string); got != t.ExpectStatus {
			return fmt.Errorf("turn %d (%s): expected status %q, got %q", n, t.Tool, t.ExpectStatus, got)
		}
	}
	if t.ExpectStep != "" {
		if got, _ := response["step_id"].(string); got != t.ExpectStep {
			return fmt.Errorf("turn %d (%s): expected step %q, got %q", n, t.Tool, t.ExpectStep, got)
		}
	}
	if t.ExpectError != "" {
		if got, _ := response["error_type"].(string); got != t.ExpectError {
			return fmt.Errorf("turn %d (%s): expected error %q, got %q", n, t.Tool, t.ExpectError, got)
		}
	}
	return nil
}

// responseMap flattens a protocol response to its wire form, the same
// generic map the MCP transport emits.
func responseMap(resp protocol.Response) (map[string]any, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}

// Transcript renders the run as one canonical JSON line per turn.
// Canonical serialization keeps golden files byte-stable across runs
// and Go versions.
func (r *Result) Transcript() ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range r.Entries {
		line, err := ir.MarshalCanonical(map[string]any{
			"turn":     entry.Turn,
			"tool":     entry.Tool,
			"response": entry.Response,
		})
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", entry.Turn, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
