package ensure

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString

	// Operators and punctuation.
	tokPlus     // +
	tokMinus    // -
	tokStar     // *
	tokSlash    // /
	tokPercent  // %
	tokEq       // ==
	tokNe       // !=
	tokLt       // <
	tokLe       // <=
	tokGt       // >
	tokGe       // >=
	tokLParen   // (
	tokRParen   // )
	tokLBracket // [
	tokRBracket // ]
	tokDot      // .
	tokComma    // ,

	// Keywords.
	tokAnd
	tokOr
	tokNot
	tokIn
	tokTrue
	tokFalse
	tokNone
)

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"in":    tokIn,
	"true":  tokTrue,
	"True":  tokTrue,
	"false": tokFalse,
	"False": tokFalse,
	"none":  tokNone,
	"null":  tokNone,
	"None":  tokNone,
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits an expression into tokens. Any character outside the dialect
// is a compile error; there is no recovery.
func lex(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '[':
			toks = append(toks, token{tokLBracket, "[", i})
			i++
		case c == ']':
			toks = append(toks, token{tokRBracket, "]", i})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case c == '+':
			toks = append(toks, token{tokPlus, "+", i})
			i++
		case c == '-':
			toks = append(toks, token{tokMinus, "-", i})
			i++
		case c == '*':
			toks = append(toks, token{tokStar, "*", i})
			i++
		case c == '/':
			toks = append(toks, token{tokSlash, "/", i})
			i++
		case c == '%':
			toks = append(toks, token{tokPercent, "%", i})
			i++
		case c == '=':
			if i+1 < len(expr) && expr[i+1] == '=' {
				toks = append(toks, token{tokEq, "==", i})
				i += 2
			} else {
				return nil, compileErrf(expr, "unexpected '=' at offset %d (use '==')", i)
			}
		case c == '!':
			if i+1 < len(expr) && expr[i+1] == '=' {
				toks = append(toks, token{tokNe, "!=", i})
				i += 2
			} else {
				return nil, compileErrf(expr, "unexpected '!' at offset %d", i)
			}
		case c == '<':
			if i+1 < len(expr) && expr[i+1] == '=' {
				toks = append(toks, token{tokLe, "<=", i})
				i += 2
			} else {
				toks = append(toks, token{tokLt, "<", i})
				i++
			}
		case c == '>':
			if i+1 < len(expr) && expr[i+1] == '=' {
				toks = append(toks, token{tokGe, ">=", i})
				i += 2
			} else {
				toks = append(toks, token{tokGt, ">", i})
				i++
			}
		case c == '\'' || c == '"':
			text, next, err := lexString(expr, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, text, i})
			i = next
		case c >= '0' && c <= '9':
			start := i
			isFloat := false
			for i < len(expr) && (isDigit(expr[i]) || expr[i] == '.' || expr[i] == 'e' || expr[i] == 'E') {
				if expr[i] == '.' {
					// A dot not followed by a digit belongs to attribute
					// access on a literal, which the parser rejects anyway.
					if i+1 >= len(expr) || !isDigit(expr[i+1]) {
						break
					}
					isFloat = true
				}
				if expr[i] == 'e' || expr[i] == 'E' {
					isFloat = true
					if i+1 < len(expr) && (expr[i+1] == '+' || expr[i+1] == '-') {
						i++
					}
				}
				i++
			}
			kind := tokInt
			if isFloat {
				kind = tokFloat
			}
			toks = append(toks, token{kind, expr[start:i], start})
		case c == '.':
			toks = append(toks, token{tokDot, ".", i})
			i++
		case isIdentStart(rune(c)):
			start := i
			for i < len(expr) && isIdentPart(rune(expr[i])) {
				i++
			}
			word := expr[start:i]
			if kind, ok := keywords[word]; ok {
				toks = append(toks, token{kind, word, start})
			} else {
				toks = append(toks, token{tokIdent, word, start})
			}
		default:
			return nil, compileErrf(expr, "unexpected character %q at offset %d", string(c), i)
		}
	}
	toks = append(toks, token{tokEOF, "", len(expr)})
	return toks, nil
}

func lexString(expr string, start int) (string, int, error) {
	quote := expr[start]
	var b strings.Builder
	i := start + 1
	for i < len(expr) {
		c := expr[i]
		if c == quote {
			return b.String(), i + 1, nil
		}
		if c == '\\' && i+1 < len(expr) {
			i++
			switch expr[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(expr[i])
			default:
				return "", 0, compileErrf(expr, "unsupported escape %q", "\\"+string(expr[i]))
			}
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, compileErrf(expr, "unterminated string starting at offset %d", start)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func parseNumber(t token) (any, error) {
	if t.kind == tokInt {
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err == nil {
			return n, nil
		}
		// Fall through to float for integers beyond int64.
	}
	f, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q", t.text)
	}
	return f, nil
}
