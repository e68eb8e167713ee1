package ensure

import "fmt"

// CompileError reports an expression the sandbox refuses to compile:
// syntax errors, unknown names, blocked attribute names, or unsupported
// constructs. Expr carries the offending expression verbatim.
//
// Path is filled by the caller when the expression's position in a spec
// is known (functions.<name>.ensure[i]); the sandbox itself never knows
// where an expression came from.
type CompileError struct {
	Expr    string
	Message string
	Path    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("cannot compile ensure expression %q: %s", e.Expr, e.Message)
}

// EvalError reports an expression that compiled but failed to evaluate
// against a particular result: missing field, type mismatch, index out of
// range. It is deliberately distinct from an expression evaluating to
// false; the controller reports the two differently.
type EvalError struct {
	Expr  string
	Cause string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("ensure expression %q failed to evaluate: %s", e.Expr, e.Cause)
}

func compileErrf(expr, format string, args ...any) *CompileError {
	return &CompileError{Expr: expr, Message: fmt.Sprintf(format, args...)}
}

func evalErrf(expr, format string, args ...any) *EvalError {
	return &EvalError{Expr: expr, Cause: fmt.Sprintf(format, args...)}
}
