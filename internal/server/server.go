// Package server exposes the flow controller as an MCP stdio server.
//
// The server is strictly reactive: it answers tool calls and never
// initiates a message. stdout carries the protocol stream; all logging
// goes to stderr through the injected slog handler.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mcp "github.com/localrivet/gomcp/server"

	"github.com/stratumhq/stratum/internal/controller"
	"github.com/stratumhq/stratum/internal/protocol"
)

const (
	serverName      = "stratum-mcp"
	protocolVersion = "1.0.0"
)

// Server wires the controller's four operations to MCP tools.
type Server struct {
	ctrl *controller.Controller
	log  *slog.Logger
}

// New creates a Server around an existing controller.
func New(ctrl *controller.Controller, log *slog.Logger) *Server {
	return &Server{ctrl: ctrl, log: log}
}

// ValidateArgs are the arguments of the stratum_validate tool.
type ValidateArgs struct {
	Spec string `json:"spec"`
}

// PlanArgs are the arguments of the stratum_plan tool.
type PlanArgs struct {
	Spec   string         `json:"spec"`
	Flow   string         `json:"flow"`
	Inputs map[string]any `json:"inputs"`
}

// StepDoneArgs are the arguments of the stratum_step_done tool.
type StepDoneArgs struct {
	FlowID string         `json:"flow_id"`
	StepID string         `json:"step_id"`
	Result map[string]any `json:"result"`
}

// AuditArgs are the arguments of the stratum_audit tool.
type AuditArgs struct {
	FlowID string `json:"flow_id"`
}

// Run blocks on the stdio loop until the transport closes.
func (s *Server) Run() error {
	srv := mcp.NewServer(serverName,
		mcp.WithLogger(s.log),
		mcp.WithProtocolVersion(protocolVersion),
	).AsStdio()

	s.register(srv)

	runner, ok := srv.(interface{ Run() error })
	if !ok {
		return fmt.Errorf("mcp server does not expose a Run method")
	}
	s.log.Info("mcp server listening", "name", serverName, "transport", "stdio")
	return runner.Run()
}

func (s *Server) register(srv mcp.Server) {
	srv.Tool("stratum_validate", "Validate a workflow spec without executing anything. Returns valid=true or the structured errors of the first failing stage.",
		func(_ *mcp.Context, args *ValidateArgs) (map[string]any, error) {
			return s.validate(args)
		})

	srv.Tool("stratum_plan", "Parse a spec, plan one of its flows, and dispatch the first step. Returns an execute_step envelope with fully resolved inputs.",
		func(_ *mcp.Context, args *PlanArgs) (map[string]any, error) {
			return s.plan(args)
		})

	srv.Tool("stratum_step_done", "Report a step result. The controller checks the output contract and ensure expressions, then dispatches the next step, requests a retry, or terminates the flow.",
		func(_ *mcp.Context, args *StepDoneArgs) (map[string]any, error) {
			return s.stepDone(args)
		})

	srv.Tool("stratum_audit", "Return the read-only execution trace of a flow: per-step attempts, timestamps, and outcomes.",
		func(_ *mcp.Context, args *AuditArgs) (map[string]any, error) {
			return s.audit(args)
		})
}

func (s *Server) validate(args *ValidateArgs) (map[string]any, error) {
	res := s.ctrl.Validate(args.Spec)
	s.log.Debug("spec validated", "valid", res.Valid)
	return payload(res)
}

func (s *Server) plan(args *PlanArgs) (map[string]any, error) {
	resp, err := s.ctrl.Plan(args.Spec, args.Flow, args.Inputs)
	if err != nil {
		env := protocol.Translate(err)
		s.log.Warn("plan rejected", "flow", args.Flow, "error_type", env.ErrorType)
		return payload(env)
	}
	return payload(resp)
}

func (s *Server) stepDone(args *StepDoneArgs) (map[string]any, error) {
	resp, err := s.ctrl.StepDone(args.FlowID, args.StepID, args.Result)
	if err != nil {
		env := protocol.Translate(err)
		s.log.Warn("step report rejected",
			"flow_id", args.FlowID, "step_id", args.StepID, "error_type", env.ErrorType)
		return payload(env)
	}
	return payload(resp)
}

func (s *Server) audit(args *AuditArgs) (map[string]any, error) {
	report, err := s.ctrl.Audit(args.FlowID)
	if err != nil {
		env := protocol.Translate(err)
		s.log.Warn("audit rejected", "flow_id", args.FlowID, "error_type", env.ErrorType)
		return payload(env)
	}
	return payload(report)
}

// payload converts a protocol response to the generic map gomcp puts on
// the wire. Domain failures arrive here already translated; a marshal
// failure is a genuine server bug and surfaces as a Go error.
func payload(resp protocol.Response) (map[string]any, error) {
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
