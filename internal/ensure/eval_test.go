package ensure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustEval(t *testing.T, expr string, result any) bool {
	t.Helper()
	prog, err := Compile(expr)
	require.NoError(t, err)
	ok, err := prog.Eval(result)
	require.NoError(t, err)
	return ok
}

func TestEvalComparisons(t *testing.T) {
	result := map[string]any{"score": 0.9, "count": 3, "name": "draft"}

	tests := []struct {
		expr string
		want bool
	}{
		{"result.score >= 0.7", true},
		{"result.score > 0.9", false},
		{"result.score == 0.9", true},
		{"result.count == 3", true},
		{"result.count != 3", false},
		{"result.count <= 2", false},
		{"result.name == 'draft'", true},
		{"result.name < 'z'", true},
		{"result.count + 1 == 4", true},
		{"result.count * 2 > 5", true},
		{"result.count % 2 == 1", true},
		{"result.count / 2 == 1.5", true},
		{"-result.count == -3", true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, mustEval(t, tt.expr, result), "expression %q", tt.expr)
	}
}

func TestEvalBooleanOperators(t *testing.T) {
	result := map[string]any{"ok": true, "items": []any{1, 2, 3}, "empty": []any{}}

	tests := []struct {
		expr string
		want bool
	}{
		{"result.ok and len(result.items) > 0", true},
		{"result.ok and len(result.empty) > 0", false},
		{"result.ok or len(result.empty) > 0", true},
		{"not result.ok", false},
		{"not result.empty", true},
		{"2 in result.items", true},
		{"5 in result.items", false},
		{"5 not in result.items", true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, mustEval(t, tt.expr, result), "expression %q", tt.expr)
	}
}

// Attribute access on maps is key lookup, so postconditions written
// against executor-produced maps read naturally.
func TestEvalDictAttributeAccess(t *testing.T) {
	result := map[string]any{
		"items": []any{1, 2, 3},
		"ok":    true,
		"meta":  map[string]any{"kind": "report", "tags": []any{"a", "b"}},
	}

	require.True(t, mustEval(t, "result.ok and len(result.items) > 0", result))
	require.True(t, mustEval(t, "result.meta.kind == 'report'", result))
	require.True(t, mustEval(t, "result.meta['kind'] == 'report'", result))
	require.True(t, mustEval(t, "'b' in result.meta.tags", result))
	require.True(t, mustEval(t, "result.items[0] == 1", result))
	require.True(t, mustEval(t, "result.items[-1] == 3", result))
}

func TestEvalStringMembership(t *testing.T) {
	result := map[string]any{"log": "step finished without error"}
	require.True(t, mustEval(t, "'finished' in result.log", result))
	require.True(t, mustEval(t, "'panic' not in result.log", result))
}

func TestEvalTruthinessCoercion(t *testing.T) {
	tests := []struct {
		expr   string
		result any
		want   bool
	}{
		{"result.count", map[string]any{"count": 2}, true},
		{"result.count", map[string]any{"count": 0}, false},
		{"result.text", map[string]any{"text": ""}, false},
		{"result.text", map[string]any{"text": "x"}, true},
		{"result.items", map[string]any{"items": []any{}}, false},
		{"result.value", map[string]any{"value": nil}, false},
		{"result", map[string]any{}, false},
		{"result", map[string]any{"a": 1}, true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, mustEval(t, tt.expr, tt.result), "expression %q", tt.expr)
	}
}

func TestEvalErrorIsDistinctFromFalse(t *testing.T) {
	result := map[string]any{"score": 0.4}

	prog, err := Compile("result.score >= 0.7")
	require.NoError(t, err)
	ok, err := prog.Eval(result)
	require.NoError(t, err)
	require.False(t, ok)

	prog, err = Compile("result.confidence >= 0.7")
	require.NoError(t, err)
	_, err = prog.Eval(result)
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, "result.confidence >= 0.7", ee.Expr)
	require.Contains(t, ee.Cause, `no field "confidence"`)
}

func TestEvalTypeMismatchIsEvalError(t *testing.T) {
	tests := []struct {
		expr   string
		result any
	}{
		{"result.name > 3", map[string]any{"name": "x"}},
		{"result.items[0]", map[string]any{"items": []any{}}},
		{"result.score.value", map[string]any{"score": 0.5}},
		{"len(result.score) > 0", map[string]any{"score": 0.5}},
		{"result.count / 0 == 1", map[string]any{"count": 4}},
		{"1 in result.count", map[string]any{"count": 4}},
	}
	for _, tt := range tests {
		prog, err := Compile(tt.expr)
		require.NoError(t, err, "expression %q", tt.expr)
		_, err = prog.Eval(tt.result)
		var ee *EvalError
		require.ErrorAs(t, err, &ee, "expression %q", tt.expr)
	}
}

func TestEvalNumericWidths(t *testing.T) {
	// Transports hand results over as float64; literals lex as int64.
	// Comparison and equality must bridge the widths.
	result := map[string]any{"count": float64(3), "exact": 3}
	require.True(t, mustEval(t, "result.count == 3", result))
	require.True(t, mustEval(t, "result.exact == 3.0", result))
	require.True(t, mustEval(t, "result.count in [1, 2, 3]", result))
}

func TestEvalIsPureInResult(t *testing.T) {
	prog, err := Compile("result.score >= 0.7")
	require.NoError(t, err)
	for range 3 {
		ok, err := prog.Eval(map[string]any{"score": 0.8})
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestFileBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(path, []byte("# Summary\nall good\n"), 0o644))

	result := map[string]any{"path": path, "missing": filepath.Join(dir, "nope.md")}

	require.True(t, mustEval(t, "file_exists(result.path)", result))
	require.False(t, mustEval(t, "file_exists(result.missing)", result))
	require.True(t, mustEval(t, "file_contains(result.path, 'Summary')", result))
	require.False(t, mustEval(t, "file_contains(result.path, 'absent')", result))
	require.False(t, mustEval(t, "file_contains(result.missing, 'x')", result))
}

func TestConversionBuiltins(t *testing.T) {
	result := map[string]any{"count": "12", "flag": 0, "pi": 3.9}
	require.True(t, mustEval(t, "int(result.count) == 12", result))
	require.True(t, mustEval(t, "int(result.pi) == 3", result))
	require.True(t, mustEval(t, "not bool(result.flag)", result))
	require.True(t, mustEval(t, "str(12) == '12'", result))

	prog, err := Compile("int(result.word) == 1")
	require.NoError(t, err)
	_, err = prog.Eval(map[string]any{"word": "twelve"})
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
}
