package spec

import "fmt"

// ParseError reports input that never became a document tree.
type ParseError struct {
	RawError string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.RawError)
}

// ValidationError reports a structural schema violation. Path is the
// dotted location of the failing node; Suggestion is an actionable fix.
type ValidationError struct {
	Path       string
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error at %s: %s", e.Path, e.Message)
}

// SemanticError reports a schema-valid document with broken references:
// undefined contracts, functions, or step dependencies.
type SemanticError struct {
	Path    string
	Message string
}

func (e *SemanticError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("semantic error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("semantic error: %s", e.Message)
}
