package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validSpec = `
version: "0.1"
contracts:
  Summary:
    text: {type: string}
functions:
  summarize:
    mode: infer
    intent: summarize the document
    input:
      doc: {type: string}
    output: Summary
flows:
  digest:
    input:
      doc: {type: string}
    output: Summary
    steps:
      - id: s1
        function: summarize
        inputs: {doc: "$.input.doc"}
`

func runCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errBuf bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errBuf.String(), err
}

func TestValidateInlineSpec(t *testing.T) {
	stdout, _, err := runCommand(t, "validate", validSpec)
	require.NoError(t, err)
	require.Equal(t, "OK\n", stdout)
	require.Equal(t, ExitSuccess, GetExitCode(err))
}

func TestValidateSpecFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validSpec), 0o644))

	stdout, _, err := runCommand(t, "validate", path)
	require.NoError(t, err)
	require.Equal(t, "OK\n", stdout)
}

func TestValidateRejectsBrokenYAML(t *testing.T) {
	_, stderr, err := runCommand(t, "validate", "version: [unclosed")
	require.Error(t, err)
	require.Equal(t, ExitFailure, GetExitCode(err))
	require.Contains(t, stderr, "ERROR [parse_error]:")
	require.Contains(t, stderr, "suggestion:")
}

func TestValidateReportsSemanticError(t *testing.T) {
	// The flow references a function the spec never defines.
	brokenSpec := `
version: "0.1"
contracts:
  Summary:
    text: {type: string}
flows:
  digest:
    input:
      doc: {type: string}
    output: Summary
    steps:
      - id: s1
        function: summarize
        inputs: {doc: "$.input.doc"}
`
	_, stderr, err := runCommand(t, "validate", brokenSpec)
	require.Error(t, err)
	require.Equal(t, ExitFailure, GetExitCode(err))
	require.Contains(t, stderr, "ERROR [semantic_error]:")
}

func TestValidateJSONFormat(t *testing.T) {
	stdout, _, err := runCommand(t, "--format", "json", "validate", validSpec)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"ok","data":"OK"}`, stdout)
}

func TestValidateJSONFormatError(t *testing.T) {
	_, stderr, err := runCommand(t, "--format", "json", "validate", "version: [unclosed")
	require.Error(t, err)
	require.Contains(t, stderr, `"status":"error"`)
	require.Contains(t, stderr, `"error_type":"parse_error"`)
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	_, _, err := runCommand(t, "--format", "xml", "validate", validSpec)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid format")
}
