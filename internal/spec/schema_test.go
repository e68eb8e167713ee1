package spec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuggestFix(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		path []string
		want string
	}{
		{
			name: "unknown field",
			msg:  "field not allowed",
			path: []string{"pipelines"},
			want: "Remove unrecognised fields",
		},
		{
			name: "missing required field",
			msg:  "field is required but not present",
			path: []string{"functions", "work", "intent"},
			want: "Add required field(s): intent",
		},
		{
			name: "missing required field without path",
			msg:  "field is required but not present",
			path: nil,
			want: "Add the missing required field(s)",
		},
		{
			name: "version mismatch",
			msg:  `conflicting values "0.1" and 0.1`,
			path: []string{"version"},
			want: `Expected: "0.1"`,
		},
		{
			name: "bad mode enum",
			msg:  `conflicting values "infer" and "guess"`,
			path: []string{"functions", "work", "mode"},
			want: `Allowed values: "infer", "compute"`,
		},
		{
			name: "bad type enum",
			msg:  `conflicting values "string" and "decimal"`,
			path: []string{"contracts", "Out", "x", "type"},
			want: `Allowed values: "string", "number", "integer", "boolean"`,
		},
		{
			name: "enum mismatch on unlisted field",
			msg:  "conflicting values 1 and 0",
			path: []string{"functions", "work", "budget", "ms"},
			want: suggestionFallback,
		},
		{
			name: "unclassified message",
			msg:  "something structural",
			path: []string{"flows", "main"},
			want: suggestionFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, suggestFix(tt.msg, tt.path))
		})
	}
}

func TestSchemaForKnownVersions(t *testing.T) {
	_, ok := schemaFor("0.1")
	require.True(t, ok)

	_, ok = schemaFor("")
	require.False(t, ok)
	_, ok = schemaFor("2.0")
	require.False(t, ok)
}

func TestValidationErrorsNamePreciseLocation(t *testing.T) {
	// Errors point at the deepest failing node, not the document root.
	raw := `
version: "0.1"
functions:
  work:
    mode: infer
    intent: do something
    input:
      doc: {type: string, extra: true}
    output: Out
`
	_, err := Parse(raw)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Path, "functions.work.input.doc")
}
