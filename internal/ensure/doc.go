// Package ensure compiles and evaluates postcondition expressions over
// step results.
//
// The dialect is a small pure expression language: literals, arithmetic,
// comparisons, and/or/not, membership (in, not in), attribute and index
// access, and calls to a fixed builtin whitelist. The only free name is
// "result".
//
// Go has no hosted evaluator, so the package carries its own lexer,
// recursive-descent parser, and tree-walking interpreter.
//
// Safety model:
//   - No access to anything outside the bound result value and the
//     builtin whitelist
//   - Attribute names that begin or end with an underscore are rejected
//     at compile time, before any result value exists
//   - Unknown names, unknown functions, and unsupported constructs are
//     compile errors carrying the offending expression verbatim
//
// Evaluation is deterministic and pure in result. Map results are adapted
// so that attribute access performs key lookup; nested maps adapt the same
// way, so postcondition authors always write result.field, never
// result["field"]. A failed evaluation (missing key, type mismatch) is an
// EvalError, distinct from an expression that evaluates to false.
package ensure
