package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stratumhq/stratum/internal/ensure"
	"github.com/stratumhq/stratum/internal/ir"
	"github.com/stratumhq/stratum/internal/protocol"
	"github.com/stratumhq/stratum/internal/ref"
	"github.com/stratumhq/stratum/internal/schedule"
	"github.com/stratumhq/stratum/internal/spec"
)

// DefaultMaxFlows bounds the registry of retained flow states. Flows are
// kept after termination for audit, so a long-lived process needs an
// eviction bound.
const DefaultMaxFlows = 1024

type phase int

const (
	phaseDispatching phase = iota
	phaseAwaiting
	phaseCompleted
	phaseFailed
)

func (p phase) terminated() bool { return p == phaseCompleted || p == phaseFailed }

// flowState is the authoritative runtime record for one flow. All access
// goes through the Controller's lock.
type flowState struct {
	id       string
	spec     *ir.Spec
	specHash string
	flowName string

	steps  []ir.Step // topological order, fixed at plan time
	phase  phase
	cursor int
	// current is the dispatched step id while awaiting a result.
	current string

	inputs   map[string]any
	outputs  map[string]map[string]any // completed steps only
	attempts map[string]int
	// programs holds the compiled ensure expressions per function name,
	// compiled once at plan time.
	programs     map[string][]*ensure.Program
	dispatchedAt map[string]time.Time
	records      []stepRecord
	start        time.Time
}

// stepRecord is one append-only audit entry. Never rewritten.
type stepRecord struct {
	stepID       string
	function     string
	attempts     int
	dispatchedAt time.Time
	completedAt  time.Time
	outcome      string
}

// Controller owns the flow-state registry.
//
// Thread-safety: every operation holds one mutex for its full duration.
// The transport handles requests strictly serially, so the lock is
// insurance for embedders, not a throughput concern.
type Controller struct {
	mu       sync.Mutex
	flows    map[string]*flowState
	order    []string // registration order, for eviction
	clock    Clock
	ids      IDGenerator
	maxFlows int
	log      *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects the timestamp source. Tests use a deterministic
// clock so audit traces are stable.
func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithIDGenerator injects the flow-id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(ctl *Controller) { ctl.ids = g }
}

// WithMaxFlows sets the retained-flow bound. Values below 1 are ignored.
func WithMaxFlows(n int) Option {
	return func(ctl *Controller) {
		if n >= 1 {
			ctl.maxFlows = n
		}
	}
}

// WithLogger sets the structured logger. The server passes its stderr
// logger; stdout belongs to the protocol stream.
func WithLogger(log *slog.Logger) Option {
	return func(ctl *Controller) { ctl.log = log }
}

// New creates a Controller with the system clock, UUIDv7 flow ids, and
// the default retention bound.
func New(opts ...Option) *Controller {
	ctl := &Controller{
		flows:    make(map[string]*flowState),
		clock:    SystemClock{},
		ids:      UUIDv7Generator{},
		maxFlows: DefaultMaxFlows,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(ctl)
	}
	return ctl
}

// Validate parses a spec without touching any flow state. Idempotent:
// the same text always yields the same result.
func (c *Controller) Validate(specText string) *protocol.ValidateResult {
	if _, err := spec.Parse(specText); err != nil {
		return &protocol.ValidateResult{
			Status: protocol.StatusInvalid,
			Valid:  false,
			Errors: []protocol.ErrorEnvelope{*protocol.Translate(err)},
		}
	}
	return &protocol.ValidateResult{
		Status: protocol.StatusValid,
		Valid:  true,
		Errors: []protocol.ErrorEnvelope{},
	}
}

// Plan parses and validates a spec, orders the named flow's steps, creates
// the flow state, and dispatches the first step.
//
// Any failure before dispatch — parse, validation, unknown flow, ensure
// compilation, cycle — aborts the plan with no flow state created. A
// reference-resolution failure while preparing the first envelope fails
// the flow but keeps it registered for audit.
func (c *Controller) Plan(specText, flowName string, inputs map[string]any) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sp, err := spec.Parse(specText)
	if err != nil {
		return nil, err
	}

	flowDef, ok := sp.Flows[flowName]
	if !ok {
		return nil, execErrf("", "flow %q not found in spec", flowName)
	}

	// Compile every ensure expression the flow can reach. Sandbox
	// rejection happens here, before any step runs.
	programs, err := compileFlowPrograms(sp, &flowDef)
	if err != nil {
		return nil, err
	}

	ordered, err := schedule.Order(&flowDef)
	if err != nil {
		return nil, err
	}

	if err := c.evictForNewFlow(); err != nil {
		return nil, err
	}

	if inputs == nil {
		inputs = map[string]any{}
	}
	st := &flowState{
		id:           c.ids.Generate(),
		spec:         sp,
		specHash:     ir.MustFingerprint(sp),
		flowName:     flowName,
		steps:        ordered,
		phase:        phaseDispatching,
		inputs:       inputs,
		outputs:      make(map[string]map[string]any),
		attempts:     make(map[string]int),
		programs:     programs,
		dispatchedAt: make(map[string]time.Time),
		start:        c.clock.Now(),
	}
	c.flows[st.id] = st
	c.order = append(c.order, st.id)

	c.log.Info("flow planned",
		"flow_id", st.id,
		"flow", flowName,
		"steps", len(ordered),
		"spec_hash", st.specHash,
	)

	return c.dispatch(st)
}

// StepDone processes a reported step result: contract shape check,
// postcondition evaluation, retry accounting, then advance, retry, or
// fail.
func (c *Controller) StepDone(flowID, stepID string, result map[string]any) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.flows[flowID]
	if !ok {
		return nil, execErrf("", "no active flow with id %q", flowID)
	}
	switch st.phase {
	case phaseCompleted:
		return nil, execErrf(flowID, "flow is already complete")
	case phaseFailed:
		return nil, execErrf(flowID, "flow has already failed")
	case phaseDispatching:
		return nil, execErrf(flowID, "no step has been dispatched")
	}
	if stepID != st.current {
		return nil, execErrf(flowID, "expected result for step %q, got %q", st.current, stepID)
	}
	if result == nil {
		result = map[string]any{}
	}

	step := st.steps[st.cursor]
	fn := st.spec.Functions[step.Function]
	st.attempts[stepID]++
	attempts := st.attempts[stepID]

	// Contract shape check runs first; structural violations skip
	// expression evaluation for this attempt.
	violations := contractViolations(st.spec.Contracts[fn.Output], result)
	if len(violations) == 0 {
		violations = evalPrograms(st.programs[fn.Name], result)
	}

	if len(violations) == 0 {
		now := c.clock.Now()
		st.records = append(st.records, stepRecord{
			stepID:       stepID,
			function:     fn.Name,
			attempts:     attempts,
			dispatchedAt: st.dispatchedAt[stepID],
			completedAt:  now,
			outcome:      protocol.OutcomeCompleted,
		})
		st.outputs[stepID] = result
		st.cursor++
		st.current = ""
		st.phase = phaseDispatching

		c.log.Info("step completed",
			"flow_id", st.id, "step_id", stepID, "attempts", attempts)

		if st.cursor >= len(st.steps) {
			st.phase = phaseCompleted
			return c.completeResponse(st), nil
		}
		return c.dispatch(st)
	}

	if attempts > fn.Retries {
		now := c.clock.Now()
		st.records = append(st.records, stepRecord{
			stepID:       stepID,
			function:     fn.Name,
			attempts:     attempts,
			dispatchedAt: st.dispatchedAt[stepID],
			completedAt:  now,
			outcome:      protocol.OutcomeRetryExhausted,
		})
		st.phase = phaseFailed
		st.current = ""

		c.log.Warn("step exhausted retries",
			"flow_id", st.id, "step_id", stepID, "attempts", attempts)

		return &protocol.Failed{
			Status:     protocol.StatusFailed,
			FlowID:     st.id,
			StepID:     stepID,
			Violations: violations,
			Final:      true,
		}, nil
	}

	c.log.Info("step ensure failed",
		"flow_id", st.id, "step_id", stepID,
		"attempts", attempts, "violations", len(violations))

	return &protocol.EnsureFailed{
		Status:           protocol.StatusEnsureFailed,
		FlowID:           st.id,
		StepID:           stepID,
		Violations:       violations,
		RetriesRemaining: fn.Retries + 1 - attempts,
	}, nil
}

// Audit returns the ordered step records for a flow. Read-only; repeated
// calls return identical records.
func (c *Controller) Audit(flowID string) (*protocol.AuditReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.flows[flowID]
	if !ok {
		return nil, execErrf("", "no active flow with id %q", flowID)
	}

	status := protocol.StatusInProgress
	switch st.phase {
	case phaseCompleted:
		status = protocol.StatusComplete
	case phaseFailed:
		status = protocol.StatusFailed
	}

	completed := 0
	for _, r := range st.records {
		if r.outcome == protocol.OutcomeCompleted {
			completed++
		}
	}

	return &protocol.AuditReport{
		Status:          status,
		FlowID:          st.id,
		FlowName:        st.flowName,
		SpecHash:        st.specHash,
		StepsCompleted:  completed,
		TotalSteps:      len(st.steps),
		Trace:           traceOf(st),
		TotalDurationMS: c.clock.Now().Sub(st.start).Milliseconds(),
	}, nil
}

// dispatch resolves the cursor step's inputs and builds its envelope.
// A resolution failure fails the flow, records the abort in audit, and
// returns the error; the flow stays registered for audit.
func (c *Controller) dispatch(st *flowState) (protocol.Response, error) {
	if st.cursor >= len(st.steps) {
		// Unreachable with the schema's minItems 1, kept as the terminal
		// path for zero-step flows.
		st.phase = phaseCompleted
		return c.completeResponse(st), nil
	}

	step := st.steps[st.cursor]
	fn := st.spec.Functions[step.Function]
	now := c.clock.Now()

	resolved, err := ref.ResolveInputs(step.Inputs, st.inputs, st.outputs)
	if err != nil {
		st.phase = phaseFailed
		st.current = ""
		st.records = append(st.records, stepRecord{
			stepID:       step.ID,
			function:     fn.Name,
			attempts:     st.attempts[step.ID],
			dispatchedAt: now,
			completedAt:  now,
			outcome:      protocol.OutcomeDispatchFailed,
		})
		c.log.Error("step dispatch failed",
			"flow_id", st.id, "step_id", step.ID, "error", err)
		return nil, err
	}

	if _, seen := st.dispatchedAt[step.ID]; !seen {
		st.dispatchedAt[step.ID] = now
	}

	outputFields := make(map[string]string)
	for name, field := range st.spec.Contracts[fn.Output].Fields {
		outputFields[name] = field.Type
	}

	st.current = step.ID
	st.phase = phaseAwaiting

	return &protocol.StepEnvelope{
		Status:           protocol.StatusExecuteStep,
		FlowID:           st.id,
		StepNumber:       st.cursor + 1,
		TotalSteps:       len(st.steps),
		StepID:           step.ID,
		Function:         step.Function,
		Mode:             fn.Mode,
		Intent:           fn.Intent,
		Inputs:           resolved,
		OutputContract:   fn.Output,
		OutputFields:     outputFields,
		Ensure:           fn.Ensure,
		RetriesRemaining: fn.Retries - st.attempts[step.ID],
	}, nil
}

func (c *Controller) completeResponse(st *flowState) *protocol.Complete {
	var output map[string]any
	if len(st.steps) > 0 {
		output = st.outputs[st.steps[len(st.steps)-1].ID]
	}
	return &protocol.Complete{
		Status:          protocol.StatusComplete,
		FlowID:          st.id,
		Output:          output,
		Trace:           traceOf(st),
		TotalDurationMS: c.clock.Now().Sub(st.start).Milliseconds(),
	}
}

// evictForNewFlow makes room in the registry. The oldest terminated flow
// is dropped; if every retained flow is still live, the plan is refused
// rather than corrupting a live flow.
func (c *Controller) evictForNewFlow() error {
	if len(c.flows) < c.maxFlows {
		return nil
	}
	for i, id := range c.order {
		st, ok := c.flows[id]
		if !ok {
			continue
		}
		if st.phase.terminated() {
			delete(c.flows, id)
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.log.Info("flow evicted", "flow_id", id)
			return nil
		}
	}
	return execErrf("", "flow registry is full (%d live flows)", len(c.flows))
}

func traceOf(st *flowState) []protocol.StepTrace {
	trace := make([]protocol.StepTrace, len(st.records))
	for i, r := range st.records {
		trace[i] = protocol.StepTrace{
			StepID:       r.stepID,
			Function:     r.function,
			Attempts:     r.attempts,
			DispatchedAt: r.dispatchedAt.UTC().Format(time.RFC3339),
			CompletedAt:  r.completedAt.UTC().Format(time.RFC3339),
			DurationMS:   r.completedAt.Sub(r.dispatchedAt).Milliseconds(),
			Outcome:      r.outcome,
		}
	}
	return trace
}

// compileFlowPrograms compiles the ensure lists of every function
// referenced by the flow's steps. The compile error is annotated with
// the expression's spec path before it propagates.
func compileFlowPrograms(sp *ir.Spec, flow *ir.Flow) (map[string][]*ensure.Program, error) {
	programs := make(map[string][]*ensure.Program)
	for _, step := range flow.Steps {
		fn := sp.Functions[step.Function]
		if _, done := programs[fn.Name]; done {
			continue
		}
		progs := make([]*ensure.Program, 0, len(fn.Ensure))
		for i, expr := range fn.Ensure {
			prog, err := ensure.Compile(expr)
			if err != nil {
				var ce *ensure.CompileError
				if errors.As(err, &ce) {
					ce.Path = fmt.Sprintf("functions.%s.ensure[%d]", fn.Name, i)
				}
				return nil, err
			}
			progs = append(progs, prog)
		}
		programs[fn.Name] = progs
	}
	return programs, nil
}

// evalPrograms evaluates compiled postconditions in declared order.
// False yields the expression verbatim; an evaluation failure yields the
// expression plus the cause, so the executor can tell "predicate not
// satisfied" from "predicate confused by the result's shape".
func evalPrograms(programs []*ensure.Program, result map[string]any) []string {
	var violations []string
	for _, prog := range programs {
		ok, err := prog.Eval(result)
		if err != nil {
			var ee *ensure.EvalError
			cause := err.Error()
			if errors.As(err, &ee) {
				cause = ee.Cause
			}
			violations = append(violations, fmt.Sprintf("%s (failed to evaluate: %s)", prog.Expr(), cause))
			continue
		}
		if !ok {
			violations = append(violations, prog.Expr())
		}
	}
	return violations
}
