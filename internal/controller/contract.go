package controller

import (
	"fmt"
	"math"
	"slices"

	"github.com/stratumhq/stratum/internal/ir"
)

// contractViolations shape-checks a reported result against the
// function's output contract. Every declared field must be present with a
// value of the declared primitive type; fields with a values enumeration
// must hold one of the listed values.
//
// A zero-field contract accepts any object. Extra fields in the result
// are permitted; the contract constrains what must be there, not what
// may.
//
// Violations ride the ensure_failed path and count against the retry
// ceiling exactly like user-declared postconditions.
func contractViolations(contract ir.Contract, result map[string]any) []string {
	var violations []string
	for _, name := range sortedFieldNames(contract.Fields) {
		field := contract.Fields[name]
		v, ok := result[name]
		if !ok {
			violations = append(violations, fmt.Sprintf("contract: field '%s' missing", name))
			continue
		}
		if !conformsTo(field.Type, v) {
			violations = append(violations,
				fmt.Sprintf("contract: field '%s' wrong type (expected %s)", name, field.Type))
			continue
		}
		if len(field.Values) > 0 && !inValues(field.Values, v) {
			violations = append(violations,
				fmt.Sprintf("contract: field '%s' not in allowed values", name))
		}
	}
	return violations
}

// conformsTo checks one value against a declared primitive type. JSON
// transports every number as float64, so integer accepts whole-number
// floats; boolean and string are strict.
func conformsTo(declared string, v any) bool {
	switch declared {
	case ir.TypeString:
		_, ok := v.(string)
		return ok
	case ir.TypeBoolean:
		_, ok := v.(bool)
		return ok
	case ir.TypeInteger:
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == math.Trunc(n)
		case float32:
			return float64(n) == math.Trunc(float64(n))
		}
		return false
	case ir.TypeNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	}
	return false
}

func inValues(values []any, v any) bool {
	for _, allowed := range values {
		if numericEqual(allowed, v) {
			return true
		}
		if allowed == v {
			return true
		}
	}
	return false
}

// numericEqual bridges representation widths: spec documents decode
// enumerated numbers as int, results arrive as float64.
func numericEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func sortedFieldNames(fields map[string]ir.Field) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	// Deterministic violation order for a deterministic wire protocol.
	slices.Sort(names)
	return names
}
