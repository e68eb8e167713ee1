// Package spec parses and validates Stratum flow documents.
//
// Parse runs distinct stages, each with its own error class: text to tree
// (ParseError), version selection and structural schema validation
// (ValidationError), typed IR construction with defaults, and reference
// integrity (SemanticError). The structural schema for each supported
// version is one closed CUE definition; adding a format version means
// registering exactly one schema.
//
// Parse is idempotent and side-effect free. $.steps references inside step
// input bindings are deliberately not checked here; the scheduler derives
// edges from them and the resolver rejects unknown ids at dispatch.
package spec
