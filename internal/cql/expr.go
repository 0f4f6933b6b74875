package cql

import (
	"strings"
	"time"
)

// Attributes exposes a record's attribute values to expression evaluation.
type Attributes interface {
	Values(name string) []string
}

// AttributeMap is a simple multi-valued Attributes implementation.
type AttributeMap map[string][]string

// Values returns the values recorded for name.
func (m AttributeMap) Values(name string) []string {
	return m[name]
}

// Expr is a parsed query expression.
type Expr interface {
	// Match reports whether a record with the given attributes satisfies
	// the expression.
	Match(attrs Attributes) bool
	// String renders the expression with the builder functions.
	String() string
}

// Equal is an equality predicate.
type Equal struct {
	Attr  string
	Value string
}

func (e Equal) Match(attrs Attributes) bool {
	for _, v := range attrs.Values(e.Attr) {
		if v == e.Value {
			return true
		}
	}
	return false
}

func (e Equal) String() string { return EqualTo(e.Attr, e.Value) }

// LikeExpr is a wildcard pattern predicate.
type LikeExpr struct {
	Attr    string
	Pattern string
}

func (e LikeExpr) Match(attrs Attributes) bool {
	for _, v := range attrs.Values(e.Attr) {
		if wildcardMatch(e.Pattern, v) {
			return true
		}
	}
	return false
}

func (e LikeExpr) String() string { return Like(e.Attr, e.Pattern) }

// AfterExpr is a strict time comparison. Attribute values that are not
// RFC 3339 timestamps never match.
type AfterExpr struct {
	Attr string
	Time time.Time
}

func (e AfterExpr) Match(attrs Attributes) bool {
	for _, v := range attrs.Values(e.Attr) {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			continue
		}
		if t.After(e.Time) {
			return true
		}
	}
	return false
}

func (e AfterExpr) String() string { return After(e.Attr, e.Time) }

// Null matches records missing the attribute.
type Null struct {
	Attr string
}

func (e Null) Match(attrs Attributes) bool { return len(attrs.Values(e.Attr)) == 0 }

func (e Null) String() string { return IsNull(e.Attr) }

// Not negates X.
type Not struct {
	X Expr
}

func (e Not) Match(attrs Attributes) bool { return !e.X.Match(attrs) }

func (e Not) String() string { return Negate(e.X.String()) }

// And is satisfied when every operand is. Operands are evaluated in order.
type And []Expr

func (e And) Match(attrs Attributes) bool {
	for _, x := range e {
		if !x.Match(attrs) {
			return false
		}
	}
	return true
}

func (e And) String() string {
	s, _ := AllOfList(render(e))
	return s
}

// Or is satisfied when any operand is. Operands are evaluated in order.
type Or []Expr

func (e Or) Match(attrs Attributes) bool {
	for _, x := range e {
		if x.Match(attrs) {
			return true
		}
	}
	return false
}

func (e Or) String() string {
	s, _ := AnyOfList(render(e))
	return s
}

func render(exprs []Expr) []string {
	out := make([]string, len(exprs))
	for i, x := range exprs {
		out[i] = x.String()
	}
	return out
}

// wildcardMatch matches s against a pattern where '*' is any run of
// characters, '?' is one character and '\' escapes the next character.
func wildcardMatch(pattern, s string) bool {
	p := []rune(pattern)
	r := []rune(s)
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(r) {
		if pi < len(p) {
			switch {
			case p[pi] == '*':
				star = pi
				mark = si
				pi++
				continue
			case p[pi] == '?':
				pi++
				si++
				continue
			case p[pi] == '\\' && pi+1 < len(p):
				if p[pi+1] == r[si] {
					pi += 2
					si++
					continue
				}
			case p[pi] == r[si]:
				pi++
				si++
				continue
			}
		}
		if star < 0 {
			return false
		}
		pi = star + 1
		mark++
		si = mark
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

func isKeyword(word, keyword string) bool {
	return strings.EqualFold(word, keyword)
}
