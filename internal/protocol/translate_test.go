package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratumhq/stratum/internal/ensure"
	"github.com/stratumhq/stratum/internal/ref"
	"github.com/stratumhq/stratum/internal/schedule"
	"github.com/stratumhq/stratum/internal/spec"
)

func TestTranslateParseError(t *testing.T) {
	env := Translate(&spec.ParseError{RawError: "line 3: could not find expected ':'"})

	require.False(t, env.Success)
	require.Equal(t, ErrParse, env.ErrorType)
	require.Equal(t, "YAML syntax error: line 3: could not find expected ':'", env.Message)
	require.Equal(t, "Check YAML syntax: indentation, colons, quoting.", env.Suggestion)
	require.Empty(t, env.Path)
}

func TestTranslateValidationError(t *testing.T) {
	env := Translate(&spec.ValidationError{
		Path:       "functions.summarize.mode",
		Message:    "invalid value \"guess\"",
		Suggestion: "Allowed values: \"infer\", \"compute\"",
	})

	require.Equal(t, ErrValidation, env.ErrorType)
	require.Equal(t, "functions.summarize.mode", env.Path)
	require.Equal(t, "invalid value \"guess\"", env.Message)
	require.Equal(t, "Allowed values: \"infer\", \"compute\"", env.Suggestion)
}

func TestTranslateEnsureCompileError(t *testing.T) {
	env := Translate(&ensure.CompileError{
		Expr:    "__import__('os')",
		Message: "attribute names may not begin or end with underscores",
		Path:    "functions.sneaky.ensure[0]",
	})

	require.Equal(t, ErrValidation, env.ErrorType)
	require.Equal(t, "functions.sneaky.ensure[0]", env.Path)
	require.Contains(t, env.Message, "cannot compile ensure expression")
	require.Contains(t, env.Suggestion, "file_exists")
}

func TestTranslateSemanticError(t *testing.T) {
	env := Translate(&spec.SemanticError{
		Path:    "flows.pipeline.steps[1].depends_on",
		Message: "step \"b\" depends on unknown step \"ghost\"",
	})

	require.Equal(t, ErrSemantic, env.ErrorType)
	require.Equal(t, "flows.pipeline.steps[1].depends_on", env.Path)
	require.Equal(t, "step \"b\" depends on unknown step \"ghost\"", env.Message)
	require.Empty(t, env.Suggestion)
}

func TestTranslateResolutionError(t *testing.T) {
	env := Translate(&ref.ResolutionError{
		Ref:     "$.steps.fetch.output.body",
		Message: "step \"fetch\" has no recorded output",
	})

	require.Equal(t, ErrExecution, env.ErrorType)
	require.Contains(t, env.Message, "$.steps.fetch.output.body")
	require.Empty(t, env.Path)
}

func TestTranslateCycleError(t *testing.T) {
	env := Translate(&schedule.CycleError{Flow: "pipeline", Steps: []string{"a", "b"}})

	require.Equal(t, ErrExecution, env.ErrorType)
	require.Contains(t, env.Message, "pipeline")
	require.Contains(t, env.Message, "a")
}

func TestTranslateWrappedErrorsUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("planning flow: %w", &spec.SemanticError{
		Path:    "flows.pipeline",
		Message: "flow references unknown function \"resolve\"",
	})

	env := Translate(wrapped)
	require.Equal(t, ErrSemantic, env.ErrorType)
	require.Equal(t, "flows.pipeline", env.Path)
}

func TestTranslateUnknownErrorLeaksNothing(t *testing.T) {
	env := Translate(errors.New("pq: connection refused on host db.internal:5432"))

	require.Equal(t, ErrInternal, env.ErrorType)
	require.Equal(t, "An unexpected error occurred.", env.Message)
	require.Empty(t, env.Path)
	require.Empty(t, env.Suggestion)
	require.NotContains(t, env.Message, "db.internal")
}
