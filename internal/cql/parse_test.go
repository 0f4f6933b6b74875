package cql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	watermark := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	testCases := []string{
		EqualTo("title", "alpha"),
		EqualTo("title", "it's"),
		Like("metacard.version.action", "Deleted*"),
		IsNull("registry.local.registry-identity-node"),
		After("metacard.modified", watermark),
		Negate(EqualTo("replication.origins", "site-a")),
		AllOf(EqualTo("a", "1"), EqualTo("b", "2"), EqualTo("c", "3")),
		AnyOf(AllOf(EqualTo("a", "1"), EqualTo("b", "2")), Negate(IsNull("c"))),
	}

	for _, input := range testCases {
		t.Run(input, func(t *testing.T) {
			expr, err := Parse(input)
			require.NoError(t, err)
			assert.Equal(t, input, expr.String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing close", `[ "a" = 'b'`},
		{"unterminated string", `[ "a" = 'b ]`},
		{"unknown operator", `[ "a" ~ 'b' ]`},
		{"mixed connectives", `[ [ "a" = '1' ] AND [ "b" = '2' ] OR [ "c" = '3' ] ]`},
		{"bad timestamp", `[ modified after yesterday ]`},
		{"trailing tokens", `[ "a" = 'b' ] ]`},
		{"is not null", `[ "a" IS NOTHING ]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			assert.ErrorAs(t, err, &syntaxErr)
		})
	}
}

func TestParse_SingleGroupUnwraps(t *testing.T) {
	expr, err := Parse(`[ [ "a" = 'b' ] ]`)
	require.NoError(t, err)
	assert.Equal(t, Equal{Attr: "a", Value: "b"}, expr)
}

func TestMatch(t *testing.T) {
	attrs := AttributeMap{
		"id":                  []string{"m-1"},
		"title":               []string{"report-2024"},
		"metacard-tags":       []string{"resource"},
		"metacard.modified":   []string{"2024-05-02T00:00:00Z"},
		"replication.origins": []string{"site-a", "site-b"},
	}
	watermark := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		expr string
		want bool
	}{
		{"equal hit", EqualTo("id", "m-1"), true},
		{"equal miss", EqualTo("id", "m-2"), false},
		{"multi-valued equal", EqualTo("replication.origins", "site-b"), true},
		{"like prefix", Like("title", "report-*"), true},
		{"like single char", Like("title", "report-202?"), true},
		{"like miss", Like("title", "memo*"), false},
		{"after hit", After("metacard.modified", watermark), true},
		{"after is strict", After("metacard.modified", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)), false},
		{"after missing attribute", After("metacard.created", watermark), false},
		{"is null", IsNull("registry.local.registry-identity-node"), true},
		{"not null", IsNull("title"), false},
		{"negate", Negate(EqualTo("replication.origins", "site-c")), true},
		{"all of", AllOf(EqualTo("id", "m-1"), EqualTo("metacard-tags", "resource")), true},
		{"all of short-circuits false", AllOf(EqualTo("id", "m-2"), EqualTo("metacard-tags", "resource")), false},
		{"any of", AnyOf(EqualTo("id", "m-2"), EqualTo("metacard-tags", "resource")), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			expr := MustParse(tc.expr)
			assert.Equal(t, tc.want, expr.Match(attrs))
		})
	}
}

func TestMatch_OperandOrderDoesNotChangeResult(t *testing.T) {
	attrs := AttributeMap{"a": {"1"}, "b": {"2"}}
	x, y, z := EqualTo("a", "1"), EqualTo("b", "2"), EqualTo("c", "3")

	assert.Equal(t, MustParse(AllOf(x, y, z)).Match(attrs), MustParse(AllOf(z, y, x)).Match(attrs))
	assert.Equal(t, MustParse(AnyOf(x, y, z)).Match(attrs), MustParse(AnyOf(z, x, y)).Match(attrs))
	assert.NotEqual(t, AllOf(x, y), AllOf(y, x), "operand order is preserved in output")
}

func TestWildcardMatch(t *testing.T) {
	testCases := []struct {
		pattern, s string
		want       bool
	}{
		{"*", "", true},
		{"Deleted*", "Deleted", true},
		{"Deleted*", "Deleted-Content", true},
		{"Deleted*", "Created", false},
		{"a*c", "abbbc", true},
		{"a*c", "abbbd", false},
		{"a?c", "abc", true},
		{`a\*c`, "a*c", true},
		{`a\*c`, "abc", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, wildcardMatch(tc.pattern, tc.s), "%q ~ %q", tc.pattern, tc.s)
	}
}
