package ensure

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Compile parses expr under the sandbox rules and returns a reusable
// Program. The returned *CompileError carries the expression verbatim.
func Compile(expr string) (*Program, error) {
	root, err := parse(expr)
	if err != nil {
		return nil, err
	}
	return &Program{expr: expr, root: root}, nil
}

// CompileAll compiles a list of expressions in order, stopping at the
// first failure.
func CompileAll(exprs []string) ([]*Program, error) {
	progs := make([]*Program, 0, len(exprs))
	for _, expr := range exprs {
		p, err := Compile(expr)
		if err != nil {
			return nil, err
		}
		progs = append(progs, p)
	}
	return progs, nil
}

// Program is a compiled postcondition. Safe for repeated evaluation;
// the AST is never mutated.
type Program struct {
	expr string
	root node
}

// Expr returns the source text the program was compiled from.
func (p *Program) Expr() string { return p.expr }

// Eval evaluates the program against a step result and coerces the final
// value by truthiness. A returned *EvalError means the expression failed
// to evaluate, which is distinct from returning false.
func (p *Program) Eval(result any) (bool, error) {
	v, err := p.eval(p.root, normalize(result))
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func (p *Program) eval(n node, result any) (any, error) {
	switch n := n.(type) {
	case literalNode:
		return n.value, nil
	case nameNode:
		return result, nil
	case attrNode:
		target, err := p.eval(n.target, result)
		if err != nil {
			return nil, err
		}
		return p.attr(target, n.name)
	case indexNode:
		target, err := p.eval(n.target, result)
		if err != nil {
			return nil, err
		}
		idx, err := p.eval(n.index, result)
		if err != nil {
			return nil, err
		}
		return p.index(target, idx)
	case listNode:
		elems := make([]any, len(n.elems))
		for i, elem := range n.elems {
			v, err := p.eval(elem, result)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return elems, nil
	case callNode:
		b := builtins[n.fn]
		if len(n.args) != b.arity {
			return nil, evalErrf(p.expr, "%s() takes %d argument(s), got %d", n.fn, b.arity, len(n.args))
		}
		args := make([]any, len(n.args))
		for i, arg := range n.args {
			v, err := p.eval(arg, result)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return b.call(p.expr, args)
	case unaryNode:
		x, err := p.eval(n.x, result)
		if err != nil {
			return nil, err
		}
		switch n.op {
		case "not":
			return !truthy(x), nil
		case "-":
			switch v := x.(type) {
			case int64:
				return -v, nil
			case float64:
				return -v, nil
			}
			return nil, evalErrf(p.expr, "unary '-' of %s", typeName(x))
		}
		return nil, evalErrf(p.expr, "unknown unary operator %q", n.op)
	case binaryNode:
		return p.binary(n, result)
	}
	return nil, evalErrf(p.expr, "unknown node")
}

// attr implements the dict-to-namespace adapter: attribute access on a
// map is key lookup, so authors write result.field against executor
// results. Nested maps adapt the same way, one access at a time.
func (p *Program) attr(target any, name string) (any, error) {
	m, ok := target.(map[string]any)
	if !ok {
		return nil, evalErrf(p.expr, "attribute %q of %s", name, typeName(target))
	}
	v, ok := m[name]
	if !ok {
		return nil, evalErrf(p.expr, "result has no field %q", name)
	}
	return v, nil
}

func (p *Program) index(target, idx any) (any, error) {
	switch t := target.(type) {
	case []any:
		i, ok := asIndex(idx)
		if !ok {
			return nil, evalErrf(p.expr, "list index must be an integer, got %s", typeName(idx))
		}
		if i < 0 {
			i += int64(len(t))
		}
		if i < 0 || i >= int64(len(t)) {
			return nil, evalErrf(p.expr, "list index %d out of range (len %d)", i, len(t))
		}
		return t[i], nil
	case map[string]any:
		key, ok := idx.(string)
		if !ok {
			return nil, evalErrf(p.expr, "map key must be a string, got %s", typeName(idx))
		}
		v, ok := t[key]
		if !ok {
			return nil, evalErrf(p.expr, "result has no field %q", key)
		}
		return v, nil
	case string:
		i, ok := asIndex(idx)
		if !ok {
			return nil, evalErrf(p.expr, "string index must be an integer, got %s", typeName(idx))
		}
		if i < 0 {
			i += int64(len(t))
		}
		if i < 0 || i >= int64(len(t)) {
			return nil, evalErrf(p.expr, "string index %d out of range (len %d)", i, len(t))
		}
		return string(t[i]), nil
	}
	return nil, evalErrf(p.expr, "cannot index %s", typeName(target))
}

func (p *Program) binary(n binaryNode, result any) (any, error) {
	// and/or short-circuit and return the deciding operand's value,
	// matching conventional expression-language semantics.
	switch n.op {
	case "and":
		l, err := p.eval(n.l, result)
		if err != nil {
			return nil, err
		}
		if !truthy(l) {
			return l, nil
		}
		return p.eval(n.r, result)
	case "or":
		l, err := p.eval(n.l, result)
		if err != nil {
			return nil, err
		}
		if truthy(l) {
			return l, nil
		}
		return p.eval(n.r, result)
	}

	l, err := p.eval(n.l, result)
	if err != nil {
		return nil, err
	}
	r, err := p.eval(n.r, result)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return looseEqual(l, r), nil
	case "!=":
		return !looseEqual(l, r), nil
	case "<", "<=", ">", ">=":
		return p.compare(n.op, l, r)
	case "in":
		return p.membership(l, r)
	case "not in":
		v, err := p.membership(l, r)
		if err != nil {
			return nil, err
		}
		return !v.(bool), nil
	case "+", "-", "*", "/", "%":
		return p.arithmetic(n.op, l, r)
	}
	return nil, evalErrf(p.expr, "unknown operator %q", n.op)
}

func (p *Program) compare(op string, l, r any) (any, error) {
	if lf, rf, ok := numericPair(l, r); ok {
		switch op {
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		switch op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		}
	}
	return nil, evalErrf(p.expr, "cannot compare %s %s %s", typeName(l), op, typeName(r))
}

func (p *Program) membership(needle, haystack any) (any, error) {
	switch h := haystack.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			return nil, evalErrf(p.expr, "'in <string>' requires a string operand, got %s", typeName(needle))
		}
		return strings.Contains(h, s), nil
	case []any:
		for _, elem := range h {
			if looseEqual(needle, elem) {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		key, ok := needle.(string)
		if !ok {
			return nil, evalErrf(p.expr, "'in <map>' requires a string key, got %s", typeName(needle))
		}
		_, present := h[key]
		return present, nil
	}
	return nil, evalErrf(p.expr, "'in' of %s", typeName(haystack))
}

func (p *Program) arithmetic(op string, l, r any) (any, error) {
	if op == "+" {
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
	}
	li, lInt := l.(int64)
	ri, rInt := r.(int64)
	if lInt && rInt {
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "/":
			if ri == 0 {
				return nil, evalErrf(p.expr, "division by zero")
			}
			// Division always yields a float, matching the source dialect.
			return float64(li) / float64(ri), nil
		case "%":
			if ri == 0 {
				return nil, evalErrf(p.expr, "modulo by zero")
			}
			return li % ri, nil
		}
	}
	lf, rf, ok := numericPair(l, r)
	if !ok {
		return nil, evalErrf(p.expr, "cannot apply %q to %s and %s", op, typeName(l), typeName(r))
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, evalErrf(p.expr, "division by zero")
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, evalErrf(p.expr, "modulo by zero")
		}
		return math.Mod(lf, rf), nil
	}
	return nil, evalErrf(p.expr, "unknown operator %q", op)
}

// truthy applies standard truthiness: nil, false, zero, empty string,
// empty list, and empty map are false; everything else is true.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}

// looseEqual compares across numeric representations (int64 vs float64)
// and falls back to deep equality for composite values.
func looseEqual(l, r any) bool {
	if lf, rf, ok := numericPair(l, r); ok {
		return lf == rf
	}
	return reflect.DeepEqual(l, r)
}

func numericPair(l, r any) (float64, float64, bool) {
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	return lf, rf, lok && rok
}

func asFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func asIndex(v any) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	}
	return 0, false
}

// normalize maps transport-level numbers onto the evaluator's value
// model: ints become int64, every other JSON/YAML shape passes through.
// Maps and slices are normalized lazily via access, not up front, except
// for the numeric widths which have to be uniform for comparison.
func normalize(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = normalize(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = normalize(elem)
		}
		return out
	}
	return v
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "none"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	}
	return fmt.Sprintf("%T", v)
}
