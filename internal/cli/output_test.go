package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratumhq/stratum/internal/protocol"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},
		{"validation failure", NewExitError(ExitFailure, "invalid spec"), ExitFailure},
		{"command error", NewExitError(ExitCommandError, "unreadable file"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner")), ExitCommandError},
		{"plain error", errors.New("something broke"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	err := WrapExitError(ExitCommandError, "reading spec", errors.New("permission denied"))
	require.Equal(t, "reading spec: permission denied", err.Error())
	require.Equal(t, "permission denied", err.Unwrap().Error())

	bare := NewExitError(ExitFailure, "invalid spec")
	require.Equal(t, "invalid spec", bare.Error())
	require.Nil(t, bare.Unwrap())
}

func TestFormatterTextError(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out, ErrWriter: &errBuf}

	err := f.Error(&protocol.ErrorEnvelope{
		ErrorType:  protocol.ErrValidation,
		Path:       "functions.summarize.mode",
		Message:    "invalid value \"guess\"",
		Suggestion: "Allowed values: \"infer\", \"compute\"",
	})
	require.NoError(t, err)

	require.Empty(t, out.String(), "errors go to ErrWriter, not Writer")
	require.Contains(t, errBuf.String(), "ERROR [validation_error]: invalid value \"guess\"")
	require.Contains(t, errBuf.String(), "path: functions.summarize.mode")
	require.Contains(t, errBuf.String(), "suggestion: Allowed values")
}

func TestFormatterTextErrorOmitsEmptyLines(t *testing.T) {
	var errBuf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &errBuf}

	err := f.Error(&protocol.ErrorEnvelope{
		ErrorType: protocol.ErrInternal,
		Message:   "An unexpected error occurred.",
	})
	require.NoError(t, err)
	require.Equal(t, "ERROR [internal_error]: An unexpected error occurred.\n", errBuf.String())
}

func TestFormatterJSONSuccess(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out}

	require.NoError(t, f.Success("OK"))
	require.JSONEq(t, `{"status":"ok","data":"OK"}`, out.String())
}

func TestFormatterJSONError(t *testing.T) {
	var errBuf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &bytes.Buffer{}, ErrWriter: &errBuf}

	require.NoError(t, f.Error(&protocol.ErrorEnvelope{
		ErrorType: protocol.ErrParse,
		Message:   "YAML syntax error: bad indent",
	}))
	require.JSONEq(t,
		`{"status":"error","error":{"success":false,"error_type":"parse_error","message":"YAML syntax error: bad indent"}}`,
		errBuf.String())
}
