package cql

import (
	"fmt"
	"strings"
	"time"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokOpen
	tokClose
	tokAttr   // "quoted attribute"
	tokString // 'string literal'
	tokWord   // bare word: keyword, operator, attribute or timestamp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("cql: syntax error at offset %d: %s", e.Pos, e.Message)
}

// Parse parses a bracketed expression produced by the builder functions.
func Parse(input string) (Expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Message: fmt.Sprintf("unexpected %q after expression", t.text)}
	}
	return expr, nil
}

// MustParse is Parse that panics on error. Intended for tests and constants.
func MustParse(input string) Expr {
	expr, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return expr
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '[':
			toks = append(toks, token{kind: tokOpen, text: "[", pos: i})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokClose, text: "]", pos: i})
			i++
		case c == '"' || c == '\'':
			text, next, err := lexQuoted(input, i, c)
			if err != nil {
				return nil, err
			}
			kind := tokString
			if c == '"' {
				kind = tokAttr
			}
			toks = append(toks, token{kind: kind, text: text, pos: i})
			i = next
		default:
			start := i
			for i < len(input) && !strings.ContainsRune(" \t\n\r[]\"'", rune(input[i])) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: input[start:i], pos: start})
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

// lexQuoted reads a quoted run starting at input[start]. A doubled quote
// character stands for one literal quote.
func lexQuoted(input string, start int, quote byte) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		if input[i] == quote {
			if i+1 < len(input) && input[i+1] == quote {
				b.WriteByte(quote)
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteByte(input[i])
		i++
	}
	return "", 0, &SyntaxError{Pos: start, Message: "unterminated quoted text"}
}

type parser struct {
	toks []token
	pos  int
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
		return t, &SyntaxError{Pos: t.pos, Message: fmt.Sprintf("expected %s, got %q", what, t.text)}
	}
	return t, nil
}

func (p *parser) parseExpr() (Expr, error) {
	if _, err := p.expect(tokOpen, "'['"); err != nil {
		return nil, err
	}

	var expr Expr
	var err error
	switch t := p.peek(); {
	case t.kind == tokWord && isKeyword(t.text, "NOT"):
		p.next()
		var x Expr
		if x, err = p.parseExpr(); err != nil {
			return nil, err
		}
		expr = Not{X: x}
	case t.kind == tokOpen:
		expr, err = p.parseCompound()
	default:
		expr, err = p.parsePredicate()
	}
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokClose, "']'"); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *parser) parseCompound() (Expr, error) {
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	op := ""
	for {
		t := p.peek()
		if t.kind != tokWord {
			break
		}
		word := strings.ToUpper(t.text)
		if word != "AND" && word != "OR" {
			return nil, &SyntaxError{Pos: t.pos, Message: fmt.Sprintf("expected AND or OR, got %q", t.text)}
		}
		if op != "" && op != word {
			return nil, &SyntaxError{Pos: t.pos, Message: "mixed AND/OR in one group"}
		}
		op = word
		p.next()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		operands = append(operands, x)
	}

	switch op {
	case "AND":
		return And(operands), nil
	case "OR":
		return Or(operands), nil
	default:
		return first, nil
	}
}

func (p *parser) parsePredicate() (Expr, error) {
	attrTok := p.next()
	if attrTok.kind != tokAttr && attrTok.kind != tokWord {
		return nil, &SyntaxError{Pos: attrTok.pos, Message: fmt.Sprintf("expected attribute, got %q", attrTok.text)}
	}
	attr := attrTok.text

	opTok, err := p.expect(tokWord, "operator")
	if err != nil {
		return nil, err
	}
	switch {
	case opTok.text == "=":
		v, err := p.expect(tokString, "string literal")
		if err != nil {
			return nil, err
		}
		return Equal{Attr: attr, Value: v.text}, nil
	case isKeyword(opTok.text, "like"):
		v, err := p.expect(tokString, "string literal")
		if err != nil {
			return nil, err
		}
		return LikeExpr{Attr: attr, Pattern: v.text}, nil
	case isKeyword(opTok.text, "after"):
		v, err := p.expect(tokWord, "timestamp")
		if err != nil {
			return nil, err
		}
		ts, perr := time.Parse(time.RFC3339Nano, v.text)
		if perr != nil {
			return nil, &SyntaxError{Pos: v.pos, Message: fmt.Sprintf("invalid timestamp %q", v.text)}
		}
		return AfterExpr{Attr: attr, Time: ts}, nil
	case isKeyword(opTok.text, "IS"):
		v, err := p.expect(tokWord, "NULL")
		if err != nil {
			return nil, err
		}
		if !isKeyword(v.text, "NULL") {
			return nil, &SyntaxError{Pos: v.pos, Message: fmt.Sprintf("expected NULL, got %q", v.text)}
		}
		return Null{Attr: attr}, nil
	default:
		return nil, &SyntaxError{Pos: opTok.pos, Message: fmt.Sprintf("unknown operator %q", opTok.text)}
	}
}
