package protocol

import (
	"errors"
	"fmt"

	"github.com/stratumhq/stratum/internal/ensure"
	"github.com/stratumhq/stratum/internal/ref"
	"github.com/stratumhq/stratum/internal/spec"
)

// executionFailure is implemented by runtime errors that belong on the
// wire as execution_error: scheduler cycles, reference resolution
// failures, and controller state violations.
type executionFailure interface {
	ExecutionError() string
}

// Translate is the single point where internal errors become wire
// envelopes. It never returns nil and never panics. Unrecognized errors
// become internal_error with a fixed generic message — no stack traces,
// no internal paths, no library names reach the wire.
func Translate(err error) *ErrorEnvelope {
	var parseErr *spec.ParseError
	if errors.As(err, &parseErr) {
		return &ErrorEnvelope{
			ErrorType:  ErrParse,
			Message:    fmt.Sprintf("YAML syntax error: %s", parseErr.RawError),
			Suggestion: "Check YAML syntax: indentation, colons, quoting.",
		}
	}

	var validationErr *spec.ValidationError
	if errors.As(err, &validationErr) {
		return &ErrorEnvelope{
			ErrorType:  ErrValidation,
			Path:       validationErr.Path,
			Message:    validationErr.Message,
			Suggestion: validationErr.Suggestion,
		}
	}

	var compileErr *ensure.CompileError
	if errors.As(err, &compileErr) {
		return &ErrorEnvelope{
			ErrorType:  ErrValidation,
			Path:       compileErr.Path,
			Message:    compileErr.Error(),
			Suggestion: "Ensure expressions may use result, comparisons, and/or/not, in, and the builtins file_exists, file_contains, len, int, bool, str.",
		}
	}

	var semanticErr *spec.SemanticError
	if errors.As(err, &semanticErr) {
		return &ErrorEnvelope{
			ErrorType: ErrSemantic,
			Path:      semanticErr.Path,
			Message:   semanticErr.Message,
		}
	}

	var resolutionErr *ref.ResolutionError
	if errors.As(err, &resolutionErr) {
		return &ErrorEnvelope{
			ErrorType: ErrExecution,
			Message:   resolutionErr.Error(),
		}
	}

	var execErr executionFailure
	if errors.As(err, &execErr) {
		return &ErrorEnvelope{
			ErrorType: ErrExecution,
			Message:   execErr.ExecutionError(),
		}
	}

	return &ErrorEnvelope{
		ErrorType: ErrInternal,
		Message:   "An unexpected error occurred.",
	}
}
