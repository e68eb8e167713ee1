// Package ref resolves $-reference strings used in step input bindings.
//
// The grammar is matched at the start of the string:
//
//	$.input.<field>               flow input lookup
//	$.steps.<id>.output           whole output of a completed step
//	$.steps.<id>.output.<path>    dot-path navigation into that output
//	anything else                 literal pass-through
//
// Resolution happens at dispatch time against the state as it exists when
// the step is about to be dispatched, never at plan time. Referencing a
// step that has not completed is a ResolutionError; the scheduler's
// implicit edges make that an ordering misconfiguration, not a race.
package ref

import (
	"fmt"
	"strings"
)

// ResolutionError reports a $-reference that cannot be resolved against
// the current flow state. Ref carries the full reference string.
type ResolutionError struct {
	Ref     string
	Message string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Ref, e.Message)
}

func resolveErrf(ref, format string, args ...any) *ResolutionError {
	return &ResolutionError{Ref: ref, Message: fmt.Sprintf(format, args...)}
}

// Resolve evaluates one reference-or-literal string. Strings that do not
// start with "$" pass through verbatim.
func Resolve(s string, inputs map[string]any, outputs map[string]map[string]any) (any, error) {
	if !strings.HasPrefix(s, "$") {
		return s, nil
	}
	if !strings.HasPrefix(s, "$.") {
		return nil, resolveErrf(s, "references start with \"$.\"")
	}
	parts := strings.Split(s[2:], ".")
	if len(parts) == 0 || parts[0] == "" {
		return nil, resolveErrf(s, "empty reference")
	}
	switch parts[0] {
	case "input":
		if len(parts) < 2 || parts[1] == "" {
			return nil, resolveErrf(s, "$.input requires a field name")
		}
		field := parts[1]
		v, ok := inputs[field]
		if !ok {
			return nil, resolveErrf(s, "field %q not found in flow inputs", field)
		}
		return navigate(s, v, parts[2:])
	case "steps":
		if len(parts) < 3 {
			return nil, resolveErrf(s, "expected $.steps.<id>.output[.<field>]")
		}
		id := parts[1]
		if parts[2] != "output" {
			return nil, resolveErrf(s, "expected $.steps.<id>.output[.<field>]")
		}
		out, ok := outputs[id]
		if !ok {
			return nil, resolveErrf(s, "step %q has not completed — check depends_on ordering", id)
		}
		return navigate(s, out, parts[3:])
	default:
		return nil, resolveErrf(s, "unknown reference prefix %q", parts[0])
	}
}

// ResolveInputs resolves a whole binding map. The first failing binding
// aborts; bindings resolve in no guaranteed order, so callers treat the
// error as about the step, not a particular parameter.
func ResolveInputs(bindings map[string]string, inputs map[string]any, outputs map[string]map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(bindings))
	for param, s := range bindings {
		v, err := Resolve(s, inputs, outputs)
		if err != nil {
			return nil, err
		}
		resolved[param] = v
	}
	return resolved, nil
}

// StepRef extracts the step id from a $.steps.<id>. reference, for the
// scheduler's implicit edge derivation. Returns false for anything else,
// including bare "$.steps.<id>" with no trailing segment.
func StepRef(s string) (string, bool) {
	if !strings.HasPrefix(s, "$.steps.") {
		return "", false
	}
	rest := s[len("$.steps."):]
	id, _, found := strings.Cut(rest, ".")
	if !found || id == "" {
		return "", false
	}
	return id, true
}

// navigate walks a dot-separated path into a resolved value. Each segment
// is a map key lookup; the structural namespace adapter means executor
// results are always maps by the time they are stored.
func navigate(ref string, v any, path []string) (any, error) {
	for _, seg := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, resolveErrf(ref, "cannot navigate %q: value is not an object", seg)
		}
		next, ok := m[seg]
		if !ok {
			return nil, resolveErrf(ref, "field %q not found", seg)
		}
		v = next
	}
	return v, nil
}
