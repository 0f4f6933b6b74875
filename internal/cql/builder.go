package cql

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the absolute timestamp format used in after predicates.
// Always UTC with millisecond precision so output never depends on locale.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// ErrEmptyExpression is returned when a conjunction or disjunction is
// requested over zero operands.
var ErrEmptyExpression = errors.New("cql: empty expression list")

// EqualTo matches records whose attribute has exactly the given value.
func EqualTo(attr, value string) string {
	return fmt.Sprintf("[ %s = %s ]", quoteAttr(attr), quoteValue(value))
}

// Like matches records whose attribute matches a wildcard pattern.
// '*' matches any run of characters and '?' a single character.
func Like(attr, pattern string) string {
	return fmt.Sprintf("[ %s like %s ]", quoteAttr(attr), quoteValue(pattern))
}

// IsNull matches records that do not carry the attribute at all.
func IsNull(attr string) string {
	return fmt.Sprintf("[ %s IS NULL ]", quoteAttr(attr))
}

// After matches records whose time attribute is strictly after t.
func After(attr string, t time.Time) string {
	return fmt.Sprintf("[ %s after %s ]", attr, FormatTime(t))
}

// Negate wraps expr in a logical NOT.
func Negate(expr string) string {
	return fmt.Sprintf("[ NOT %s ]", expr)
}

// AllOf joins expressions with AND, preserving operand order.
// A single operand is returned unchanged.
func AllOf(first string, rest ...string) string {
	return join(" AND ", first, rest)
}

// AnyOf joins expressions with OR, preserving operand order.
// A single operand is returned unchanged.
func AnyOf(first string, rest ...string) string {
	return join(" OR ", first, rest)
}

// AllOfList is AllOf over a slice. An empty slice is rejected.
func AllOfList(exprs []string) (string, error) {
	if len(exprs) == 0 {
		return "", fmt.Errorf("all of: %w", ErrEmptyExpression)
	}
	return AllOf(exprs[0], exprs[1:]...), nil
}

// AnyOfList is AnyOf over a slice. An empty slice is rejected.
func AnyOfList(exprs []string) (string, error) {
	if len(exprs) == 0 {
		return "", fmt.Errorf("any of: %w", ErrEmptyExpression)
	}
	return AnyOf(exprs[0], exprs[1:]...), nil
}

// FormatTime renders t in TimeLayout after converting it to UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func join(op, first string, rest []string) string {
	if len(rest) == 0 {
		return first
	}
	var b strings.Builder
	b.WriteString("[ ")
	b.WriteString(first)
	for _, expr := range rest {
		b.WriteString(op)
		b.WriteString(expr)
	}
	b.WriteString(" ]")
	return b.String()
}

func quoteAttr(attr string) string {
	return `"` + strings.ReplaceAll(attr, `"`, `""`) + `"`
}

func quoteValue(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
