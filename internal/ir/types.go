package ir

import "encoding/json"

// Valid primitive types for contract and input fields.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// ValidFieldTypes defines the allowed primitive type names.
var ValidFieldTypes = map[string]bool{
	TypeString:  true,
	TypeNumber:  true,
	TypeInteger: true,
	TypeBoolean: true,
}

// DefaultRetries is the retry ceiling applied when a function omits retries.
// Total attempts permitted equal retries + 1.
const DefaultRetries = 3

// Field declares one typed field of a contract or input map.
// Values, when present, restricts the field to an enumerated set.
type Field struct {
	Type   string `json:"type"`
	Values []any  `json:"values,omitempty"`
}

// Budget carries optional cost ceilings declared on functions and flows.
// The controller records budgets but does not enforce them; enforcement
// belongs to the executor.
type Budget struct {
	MS  *int64   `json:"ms,omitempty"`
	USD *float64 `json:"usd,omitempty"`
}

// Contract is a named structured type: a map from field name to declared
// primitive type. A contract with no fields accepts any result object.
//
// In the document format a contract is its field map; Name is carried from
// the enclosing key and excluded from serialization.
type Contract struct {
	Name   string           `json:"-"`
	Fields map[string]Field `json:"-"`
}

// MarshalJSON serializes the contract as its field map, mirroring the
// document format.
func (c Contract) MarshalJSON() ([]byte, error) {
	if c.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Fields)
}

// UnmarshalJSON deserializes a field map; Name is filled by the caller.
func (c *Contract) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.Fields)
}

// Function is a reusable capability specification. Mode distinguishes
// LLM-inferred work ("infer") from deterministic work ("compute"); the
// controller treats both identically and forwards the mode to the executor.
type Function struct {
	Name    string           `json:"-"`
	Mode    string           `json:"mode"`
	Intent  string           `json:"intent"`
	Input   map[string]Field `json:"input"`
	Output  string           `json:"output"`
	Ensure  []string         `json:"ensure"`
	Retries int              `json:"retries"`
	Model   string           `json:"model,omitempty"`
	Budget  *Budget          `json:"budget,omitempty"`
}

// Step is one dispatchable unit within a flow. Inputs maps parameter names
// to reference strings ($.input.x, $.steps.s1.output.y) or literals.
type Step struct {
	ID        string            `json:"id"`
	Function  string            `json:"function"`
	Inputs    map[string]string `json:"inputs"`
	DependsOn []string          `json:"depends_on"`
}

// Flow is a named, ordered sequence of steps with declared input fields and
// an output contract. The declared order is the tie-break order for the
// scheduler, not necessarily the dispatch order.
type Flow struct {
	Name   string           `json:"-"`
	Input  map[string]Field `json:"input"`
	Output string           `json:"output"`
	Budget *Budget          `json:"budget,omitempty"`
	Steps  []Step           `json:"steps"`
}

// Spec is a complete validated document: version tag plus contract,
// function, and flow registries keyed by name.
//
// After spec.Parse, optional fields are normalized: Ensure and DependsOn
// are never nil and Retries carries DefaultRetries when omitted.
type Spec struct {
	Version   string              `json:"version"`
	Contracts map[string]Contract `json:"contracts"`
	Functions map[string]Function `json:"functions"`
	Flows     map[string]Flow     `json:"flows"`
}
