package controller

import "fmt"

// ExecutionError reports a request that the flow state machine refuses:
// unknown flow id, step mismatch, report against a terminated flow, or a
// registry full of live flows. FlowID is empty when the flow was never
// created.
type ExecutionError struct {
	FlowID  string
	Message string
}

func (e *ExecutionError) Error() string {
	if e.FlowID != "" {
		return fmt.Sprintf("execution error: %s (flow=%s)", e.Message, e.FlowID)
	}
	return fmt.Sprintf("execution error: %s", e.Message)
}

// ExecutionError marks the error for protocol translation.
func (e *ExecutionError) ExecutionError() string { return e.Message }

func execErrf(flowID, format string, args ...any) *ExecutionError {
	return &ExecutionError{FlowID: flowID, Message: fmt.Sprintf(format, args...)}
}
