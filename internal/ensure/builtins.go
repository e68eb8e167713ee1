package ensure

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// fileContainsSizeLimit caps how much file_contains will read. Larger
// files fail the predicate rather than loading unbounded data.
const fileContainsSizeLimit = 10 * 1024 * 1024

type builtinFunc struct {
	arity int
	call  func(expr string, args []any) (any, error)
}

// builtins is the whitelist of callable names. file_exists and
// file_contains read the host filesystem relative to the process working
// directory; they let postconditions check what the executor claims to
// have produced, nothing more.
var builtins = map[string]builtinFunc{
	"file_exists": {1, func(expr string, args []any) (any, error) {
		path, ok := args[0].(string)
		if !ok {
			return nil, evalErrf(expr, "file_exists expects a string path, got %s", typeName(args[0]))
		}
		info, err := os.Stat(path)
		return err == nil && info.Mode().IsRegular(), nil
	}},
	"file_contains": {2, func(expr string, args []any) (any, error) {
		path, ok := args[0].(string)
		if !ok {
			return nil, evalErrf(expr, "file_contains expects a string path, got %s", typeName(args[0]))
		}
		substr, ok := args[1].(string)
		if !ok {
			return nil, evalErrf(expr, "file_contains expects a string substring, got %s", typeName(args[1]))
		}
		return fileContains(path, substr), nil
	}},
	"len": {1, func(expr string, args []any) (any, error) {
		switch v := args[0].(type) {
		case string:
			return int64(len(v)), nil
		case []any:
			return int64(len(v)), nil
		case map[string]any:
			return int64(len(v)), nil
		default:
			return nil, evalErrf(expr, "len() of %s", typeName(args[0]))
		}
	}},
	"int": {1, func(expr string, args []any) (any, error) {
		switch v := args[0].(type) {
		case int64:
			return v, nil
		case float64:
			return int64(v), nil
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, evalErrf(expr, "int() of %q", v)
			}
			return n, nil
		default:
			return nil, evalErrf(expr, "int() of %s", typeName(args[0]))
		}
	}},
	"bool": {1, func(expr string, args []any) (any, error) {
		return truthy(args[0]), nil
	}},
	"str": {1, func(expr string, args []any) (any, error) {
		switch v := args[0].(type) {
		case string:
			return v, nil
		case nil:
			return "none", nil
		case bool:
			return strconv.FormatBool(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		default:
			return fmt.Sprint(v), nil
		}
	}},
}

// fileContains reports whether path is a regular file under the size
// limit whose contents include substr. Any filesystem error is false,
// never an evaluation error; the predicate is about the file's state.
func fileContains(path, substr string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > fileContainsSizeLimit {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), substr)
}

func builtinNames() string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
