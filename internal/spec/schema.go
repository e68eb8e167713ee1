package spec

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/stratumhq/stratum/internal/ir"
)

// schemaSourceV01 is the structural schema for spec version 0.1.
// Definitions are closed, so unknown fields are rejected everywhere.
const schemaSourceV01 = `
#Field: {
	type!: "string" | "number" | "integer" | "boolean"
	values?: [...]
}

#FieldMap: {[string]: #Field}

#Budget: {
	ms?:  int & >=1
	usd?: number & >=0
}

#Function: {
	mode!:   "infer" | "compute"
	intent!: string & !=""
	input!:  #FieldMap
	output!: string
	ensure?: [...string]
	budget?:  #Budget
	retries?: int & >=0
	model?:   string
}

#Step: {
	id!:       string
	function!: string
	inputs!: {[string]: string}
	depends_on?: [...string]
}

#Flow: {
	input!:  #FieldMap
	output!: string
	budget?: #Budget
	steps!: [#Step, ...#Step]
}

#Spec: {
	version!: "0.1"
	contracts?: {[string]: #FieldMap}
	functions?: {[string]: #Function}
	flows?: {[string]: #Flow}
}
`

// registry maps each supported spec version to its schema source.
// ir.SupportedVersions and this map must list the same versions.
var registry = map[string]string{
	ir.SpecVersion01: schemaSourceV01,
}

type compiledSchema struct {
	ctx *cue.Context
	def cue.Value
}

var (
	compileOnce sync.Once
	compiled    map[string]compiledSchema
)

// schemaFor returns the compiled schema for a spec version.
// Schemas compile once per process; cue.Value is immutable afterwards.
func schemaFor(version string) (compiledSchema, bool) {
	compileOnce.Do(func() {
		compiled = make(map[string]compiledSchema, len(registry))
		for v, src := range registry {
			ctx := cuecontext.New()
			def := ctx.CompileString(src).LookupPath(cue.ParsePath("#Spec"))
			compiled[v] = compiledSchema{ctx: ctx, def: def}
		}
	})
	s, ok := compiled[version]
	return s, ok
}

// validateStructure unifies the decoded tree with the version schema and
// translates the most specific CUE error into a ValidationError.
func (s compiledSchema) validateStructure(doc map[string]any) error {
	val := s.ctx.Encode(doc)
	if err := val.Err(); err != nil {
		return classifyCUEError(err)
	}
	unified := s.def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return classifyCUEError(err)
	}
	return nil
}

const suggestionFallback = "See the spec format documentation"

// enumFieldValues names the fields constrained to a fixed value set, for
// suggestion text. CUE reports disjunction mismatches without exposing the
// branch literals as data, so the known enums are spelled out here.
var enumFieldValues = map[string]string{
	"mode": `"infer", "compute"`,
	"type": `"string", "number", "integer", "boolean"`,
}

// classifyCUEError picks the deepest-path error and derives the dotted
// path, message, and fix suggestion for the wire.
func classifyCUEError(err error) *ValidationError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Path: "root", Message: err.Error(), Suggestion: suggestionFallback}
	}

	worst := errs[0]
	for _, e := range errs[1:] {
		if len(e.Path()) > len(worst.Path()) {
			worst = e
		}
	}

	path := strings.Join(worst.Path(), ".")
	if path == "" {
		path = "root"
	}
	format, args := worst.Msg()
	msg := fmt.Sprintf(format, args...)

	return &ValidationError{Path: path, Message: msg, Suggestion: suggestFix(msg, worst.Path())}
}

func suggestFix(msg string, path []string) string {
	leaf := ""
	if len(path) > 0 {
		leaf = path[len(path)-1]
	}

	switch {
	case strings.Contains(msg, "not allowed"):
		return "Remove unrecognised fields"
	case strings.Contains(msg, "required"):
		if leaf != "" {
			return fmt.Sprintf("Add required field(s): %s", leaf)
		}
		return "Add the missing required field(s)"
	case leaf == "version":
		return fmt.Sprintf("Expected: %q", ir.LatestVersion())
	case strings.Contains(msg, "disjunction") || strings.Contains(msg, "conflicting values") || strings.Contains(msg, "mismatched types"):
		if allowed, ok := enumFieldValues[leaf]; ok {
			return "Allowed values: " + allowed
		}
		return suggestionFallback
	default:
		return suggestionFallback
	}
}
