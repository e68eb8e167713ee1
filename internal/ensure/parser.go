package ensure

import "strings"

// AST node kinds. The tree is immutable after parsing; Program shares it
// across evaluations.
type node interface{ isNode() }

type literalNode struct{ value any } // int64, float64, string, bool, nil

type nameNode struct{ name string } // always "result" after compile checks

type attrNode struct {
	target node
	name   string
}

type indexNode struct {
	target node
	index  node
}

type callNode struct {
	fn   string
	args []node
}

type listNode struct{ elems []node }

type unaryNode struct {
	op string // "-" | "not"
	x  node
}

type binaryNode struct {
	op   string // arithmetic, comparison, "and", "or", "in", "not in"
	l, r node
}

func (literalNode) isNode() {}
func (nameNode) isNode()    {}
func (attrNode) isNode()    {}
func (indexNode) isNode()   {}
func (callNode) isNode()    {}
func (listNode) isNode()    {}
func (unaryNode) isNode()   {}
func (binaryNode) isNode()  {}

// resultName is the single free name bound during evaluation.
const resultName = "result"

// parser is a recursive-descent parser with standard precedence:
// or < and < not < comparison/membership < additive < multiplicative <
// unary minus < postfix (attribute, index, call).
type parser struct {
	expr string
	toks []token
	pos  int
}

func parse(expr string) (node, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{expr: expr, toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, compileErrf(expr, "unexpected %q at offset %d", p.peek().text, p.peek().pos)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return token{}, compileErrf(p.expr, "expected %s, got %q at offset %d", what, t.text, t.pos)
	}
	return t, nil
}

func (p *parser) parseOr() (node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: "or", l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseAnd() (node, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: "and", l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseNot() (node, error) {
	if p.peek().kind == tokNot {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "not", x: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[tokenKind]string{
	tokEq: "==", tokNe: "!=", tokLt: "<", tokLe: "<=", tokGt: ">", tokGe: ">=",
}

func (p *parser) parseComparison() (node, error) {
	l, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if op, ok := comparisonOps[t.kind]; ok {
		p.next()
		r, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: op, l: l, r: r}, nil
	}
	if t.kind == tokIn {
		p.next()
		r, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: "in", l: l, r: r}, nil
	}
	if t.kind == tokNot && p.toks[p.pos+1].kind == tokIn {
		p.next()
		p.next()
		r, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: "not in", l: l, r: r}, nil
	}
	return l, nil
}

func (p *parser) parseAdditive() (node, error) {
	l, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		var op string
		switch t.kind {
		case tokPlus:
			op = "+"
		case tokMinus:
			op = "-"
		default:
			return l, nil
		}
		p.next()
		r, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		var op string
		switch t.kind {
		case tokStar:
			op = "*"
		case tokSlash:
			op = "/"
		case tokPercent:
			op = "%"
		default:
			return l, nil
		}
		p.next()
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokMinus {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "-", x: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of
// attribute access and indexing. Calls are only permitted on bare builtin
// names, never on attribute chains.
func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			ident, err := p.expect(tokIdent, "attribute name")
			if err != nil {
				return nil, err
			}
			if err := checkAttrName(p.expr, ident.text); err != nil {
				return nil, err
			}
			n = attrNode{target: n, name: ident.text}
		case tokLBracket:
			p.next()
			idx, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
			n = indexNode{target: n, index: idx}
		default:
			return n, nil
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokInt, tokFloat:
		v, err := parseNumber(t)
		if err != nil {
			return nil, compileErrf(p.expr, "%v", err)
		}
		return literalNode{value: v}, nil
	case tokString:
		return literalNode{value: t.text}, nil
	case tokTrue:
		return literalNode{value: true}, nil
	case tokFalse:
		return literalNode{value: false}, nil
	case tokNone:
		return literalNode{value: nil}, nil
	case tokLParen:
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return n, nil
	case tokLBracket:
		var elems []node
		if p.peek().kind != tokRBracket {
			for {
				elem, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				elems = append(elems, elem)
				if p.peek().kind != tokComma {
					break
				}
				p.next()
			}
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return listNode{elems: elems}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t.text)
		}
		if t.text != resultName {
			return nil, compileErrf(p.expr, "unknown name %q (only %q is bound)", t.text, resultName)
		}
		return nameNode{name: t.text}, nil
	default:
		return nil, compileErrf(p.expr, "unexpected %q at offset %d", t.text, t.pos)
	}
}

func (p *parser) parseCall(fn string) (node, error) {
	if _, ok := builtins[fn]; !ok {
		return nil, compileErrf(p.expr, "unknown function %q (allowed: %s)", fn, builtinNames())
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return callNode{fn: fn, args: args}, nil
}

// checkAttrName rejects attribute names that begin or end with an
// underscore at compile time. This structurally blocks dunder escapes
// (__class__, __globals__) and private-convention access without needing
// any runtime guard.
func checkAttrName(expr, name string) error {
	if strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_") {
		return compileErrf(expr, "attribute name %q may not begin or end with an underscore", name)
	}
	return nil
}
