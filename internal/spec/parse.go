package spec

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stratumhq/stratum/internal/ir"
)

// Parse turns a raw YAML document into a validated typed spec.
// It returns *ParseError, *ValidationError, or *SemanticError on failure;
// no other error class escapes.
func Parse(raw string) (*ir.Spec, error) {
	doc, err := parseYAML(raw)
	if err != nil {
		return nil, err
	}

	version := versionOf(doc)
	schema, ok := schemaFor(version)
	if !ok {
		return nil, &ValidationError{
			Path:       "version",
			Message:    fmt.Sprintf("unknown spec version %q", version),
			Suggestion: fmt.Sprintf("Use version: %q", ir.LatestVersion()),
		}
	}

	if err := schema.validateStructure(doc); err != nil {
		return nil, err
	}

	s := buildSpec(doc)
	if err := validateSemantics(s); err != nil {
		return nil, err
	}
	return s, nil
}

func parseYAML(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ParseError{RawError: "empty or blank document"}
	}
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &ParseError{RawError: err.Error()}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// versionOf stringifies the top-level version scalar. A bare 0.1 in YAML
// decodes as a float; it still selects the right schema, and the schema's
// string constraint then reports the quoting problem precisely.
func versionOf(doc map[string]any) string {
	switch v := doc["version"].(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// buildSpec constructs the typed IR from a schema-valid tree, normalizing
// optional fields: ensure and depends_on are never nil, retries defaults
// to ir.DefaultRetries.
func buildSpec(doc map[string]any) *ir.Spec {
	s := &ir.Spec{
		Version:   versionOf(doc),
		Contracts: map[string]ir.Contract{},
		Functions: map[string]ir.Function{},
		Flows:     map[string]ir.Flow{},
	}
	for name, raw := range asMap(doc["contracts"]) {
		s.Contracts[name] = ir.Contract{Name: name, Fields: buildFields(raw)}
	}
	for name, raw := range asMap(doc["functions"]) {
		s.Functions[name] = buildFunction(name, asMap(raw))
	}
	for name, raw := range asMap(doc["flows"]) {
		s.Flows[name] = buildFlow(name, asMap(raw))
	}
	return s
}

func buildFunction(name string, m map[string]any) ir.Function {
	fn := ir.Function{
		Name:    name,
		Mode:    asString(m["mode"]),
		Intent:  asString(m["intent"]),
		Input:   buildFields(m["input"]),
		Output:  asString(m["output"]),
		Ensure:  asStringSlice(m["ensure"]),
		Retries: ir.DefaultRetries,
		Model:   asString(m["model"]),
		Budget:  buildBudget(m["budget"]),
	}
	if r, ok := asInt(m["retries"]); ok {
		fn.Retries = r
	}
	return fn
}

func buildFlow(name string, m map[string]any) ir.Flow {
	fl := ir.Flow{
		Name:   name,
		Input:  buildFields(m["input"]),
		Output: asString(m["output"]),
		Budget: buildBudget(m["budget"]),
	}
	for _, raw := range asSlice(m["steps"]) {
		sm := asMap(raw)
		fl.Steps = append(fl.Steps, ir.Step{
			ID:        asString(sm["id"]),
			Function:  asString(sm["function"]),
			Inputs:    asStringMap(sm["inputs"]),
			DependsOn: asStringSlice(sm["depends_on"]),
		})
	}
	return fl
}

func buildFields(v any) map[string]ir.Field {
	fields := map[string]ir.Field{}
	for name, raw := range asMap(v) {
		m := asMap(raw)
		f := ir.Field{Type: asString(m["type"])}
		if vals, ok := m["values"].([]any); ok {
			f.Values = vals
		}
		fields[name] = f
	}
	return fields
}

func buildBudget(v any) *ir.Budget {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	b := &ir.Budget{}
	if ms, ok := asInt(m["ms"]); ok {
		ms64 := int64(ms)
		b.MS = &ms64
	}
	if usd, ok := asFloat(m["usd"]); ok {
		b.USD = &usd
	}
	return b
}

// Tree accessors. The schema has already validated shapes, so these only
// need to default sanely, never to diagnose.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, elem := range raw {
		out = append(out, asString(elem))
	}
	return out
}

func asStringMap(v any) map[string]string {
	out := map[string]string{}
	for k, elem := range asMap(v) {
		out[k] = asString(elem)
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
