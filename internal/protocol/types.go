// Package protocol defines the wire shapes exchanged with the executor
// and the single point where internal errors become wire envelopes.
//
// Every tool response carries a status string. ensure_failed is a normal
// protocol response — the most frequent one on real workloads — and is
// never folded into the error envelope.
package protocol

// Status values carried by tool responses.
const (
	StatusExecuteStep  = "execute_step"
	StatusEnsureFailed = "ensure_failed"
	StatusComplete     = "complete"
	StatusFailed       = "failed"
	StatusValid        = "valid"
	StatusInvalid      = "invalid"
	StatusInProgress   = "in_progress"
)

// Response is implemented by every tool response shape.
type Response interface{ response() }

// StepEnvelope instructs the executor to perform one step. Inputs are
// fully resolved; the executor never sees $-references.
type StepEnvelope struct {
	Status           string            `json:"status"`
	FlowID           string            `json:"flow_id"`
	StepNumber       int               `json:"step_number"`
	TotalSteps       int               `json:"total_steps"`
	StepID           string            `json:"step_id"`
	Function         string            `json:"function"`
	Mode             string            `json:"mode"`
	Intent           string            `json:"intent"`
	Inputs           map[string]any    `json:"inputs"`
	OutputContract   string            `json:"output_contract"`
	OutputFields     map[string]string `json:"output_fields"`
	Ensure           []string          `json:"ensure"`
	RetriesRemaining int               `json:"retries_remaining"`
}

// EnsureFailed reports that a step's result violated its contract or
// postconditions with retries remaining. The executor retries the same
// step id with a new result.
type EnsureFailed struct {
	Status           string   `json:"status"`
	FlowID           string   `json:"flow_id"`
	StepID           string   `json:"step_id"`
	Violations       []string `json:"violations"`
	RetriesRemaining int      `json:"retries_remaining"`
}

// Complete is the terminal success response: the last step's validated
// output plus the full audit trace.
type Complete struct {
	Status          string         `json:"status"`
	FlowID          string         `json:"flow_id"`
	Output          map[string]any `json:"output"`
	Trace           []StepTrace    `json:"trace"`
	TotalDurationMS int64          `json:"total_duration_ms"`
}

// Failed is the terminal failure response after retry exhaustion.
type Failed struct {
	Status     string   `json:"status"`
	FlowID     string   `json:"flow_id"`
	StepID     string   `json:"step_id"`
	Violations []string `json:"violations"`
	Final      bool     `json:"final"`
}

// ValidateResult is the response of the validate tool. Errors carries the
// translated envelope for the failing stage; it is empty when Valid.
type ValidateResult struct {
	Status string          `json:"status"`
	Valid  bool            `json:"valid"`
	Errors []ErrorEnvelope `json:"errors"`
}

// AuditReport is the read-only execution trace for one flow.
type AuditReport struct {
	Status          string      `json:"status"`
	FlowID          string      `json:"flow_id"`
	FlowName        string      `json:"flow_name"`
	SpecHash        string      `json:"spec_hash"`
	StepsCompleted  int         `json:"steps_completed"`
	TotalSteps      int         `json:"total_steps"`
	Trace           []StepTrace `json:"trace"`
	TotalDurationMS int64       `json:"total_duration_ms"`
}

// StepTrace is one append-only audit record on the wire. Timestamps are
// RFC 3339 UTC.
type StepTrace struct {
	StepID       string `json:"step_id"`
	Function     string `json:"function"`
	Attempts     int    `json:"attempts"`
	DispatchedAt string `json:"dispatched_at"`
	CompletedAt  string `json:"completed_at"`
	DurationMS   int64  `json:"duration_ms"`
	Outcome      string `json:"outcome"`
}

// Step record outcomes.
const (
	OutcomeCompleted      = "completed"
	OutcomeRetryExhausted = "retry_exhausted"
	OutcomeDispatchFailed = "dispatch_failed"
)

// ErrorEnvelope is the uniform error shape. It deliberately has no
// status field; the executor switches on error_type.
type ErrorEnvelope struct {
	Success    bool   `json:"success"`
	ErrorType  string `json:"error_type"`
	Path       string `json:"path,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error type slugs. internal_error never carries detail beyond the fixed
// generic message.
const (
	ErrParse      = "parse_error"
	ErrValidation = "validation_error"
	ErrSemantic   = "semantic_error"
	ErrExecution  = "execution_error"
	ErrInternal   = "internal_error"
)

func (*StepEnvelope) response()   {}
func (*EnsureFailed) response()   {}
func (*Complete) response()       {}
func (*Failed) response()         {}
func (*ValidateResult) response() {}
func (*AuditReport) response()    {}
func (*ErrorEnvelope) response()  {}
