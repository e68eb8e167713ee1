package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/stratumhq/stratum/internal/protocol"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation failure (invalid spec)
	ExitCommandError = 2 // Command error (unreadable files, write failures, transport errors)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Returns ExitSuccess
// for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
// Successful results go to Writer; errors go to ErrWriter.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // defaults to Writer when nil
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string                  `json:"status"`          // "ok" or "error"
	Data   any                     `json:"data,omitempty"`  // success payload
	Error  *protocol.ErrorEnvelope `json:"error,omitempty"` // error details
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs a translated error envelope in the configured format.
// Text form is one primary line plus optional path and suggestion lines:
//
//	ERROR [validation_error]: <message>
//	  path: functions.summarize.mode
//	  suggestion: Allowed values: "infer", "compute"
func (f *OutputFormatter) Error(env *protocol.ErrorEnvelope) error {
	w := f.errWriter()
	if f.Format == "json" {
		return json.NewEncoder(w).Encode(CLIResponse{
			Status: "error",
			Error:  env,
		})
	}
	fmt.Fprintf(w, "ERROR [%s]: %s\n", env.ErrorType, env.Message)
	if env.Path != "" {
		fmt.Fprintf(w, "  path: %s\n", env.Path)
	}
	if env.Suggestion != "" {
		fmt.Fprintf(w, "  suggestion: %s\n", env.Suggestion)
	}
	return nil
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
