package cql

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualTo(t *testing.T) {
	assert.Equal(t, `[ "title" = 'alpha' ]`, EqualTo("title", "alpha"))
}

func TestEqualTo_EscapesQuotes(t *testing.T) {
	assert.Equal(t, `[ "ti""tle" = 'it''s' ]`, EqualTo(`ti"tle`, "it's"))
}

func TestLike(t *testing.T) {
	assert.Equal(t, `[ "metacard.version.action" like 'Deleted*' ]`, Like("metacard.version.action", "Deleted*"))
}

func TestIsNull(t *testing.T) {
	assert.Equal(t, `[ "registry.local.registry-identity-node" IS NULL ]`, IsNull("registry.local.registry-identity-node"))
}

func TestNegate(t *testing.T) {
	assert.Equal(t, `[ NOT [ "a" = 'b' ] ]`, Negate(EqualTo("a", "b")))
}

func TestAfter_UTCFixedPrecision(t *testing.T) {
	loc := time.FixedZone("MST", -7*60*60)
	ts := time.Date(1969, 12, 31, 17, 0, 0, 0, loc)

	assert.Equal(t, "[ metacard.modified after 1970-01-01T00:00:00.000Z ]", After("metacard.modified", ts))
}

func TestAfter_TruncatesToMillis(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 15, 123456789, time.UTC)
	assert.Equal(t, "2024-05-01T12:30:15.123Z", FormatTime(ts))
}

func TestAllOf_AnyOf(t *testing.T) {
	a, b, c := EqualTo("a", "1"), EqualTo("b", "2"), EqualTo("c", "3")

	testCases := []struct {
		name string
		got  string
		want string
	}{
		{"all single degenerates", AllOf(a), a},
		{"any single degenerates", AnyOf(a), a},
		{"all of three", AllOf(a, b, c), `[ [ "a" = '1' ] AND [ "b" = '2' ] AND [ "c" = '3' ] ]`},
		{"any of two", AnyOf(b, a), `[ [ "b" = '2' ] OR [ "a" = '1' ] ]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestAllOfList_RejectsEmpty(t *testing.T) {
	_, err := AllOfList(nil)
	assert.ErrorIs(t, err, ErrEmptyExpression)

	_, err = AnyOfList([]string{})
	assert.ErrorIs(t, err, ErrEmptyExpression)
}

func TestAllOfList_MatchesVariadic(t *testing.T) {
	exprs := []string{EqualTo("a", "1"), EqualTo("b", "2")}

	got, err := AllOfList(exprs)
	require.NoError(t, err)
	assert.Equal(t, AllOf(exprs[0], exprs[1]), got)

	got, err = AnyOfList(exprs)
	require.NoError(t, err)
	assert.Equal(t, AnyOf(exprs[0], exprs[1]), got)
}

func TestComposite_Golden(t *testing.T) {
	watermark := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	expr := AllOf(
		Like("title", "report-*"),
		AnyOf(
			AllOf(
				Negate(EqualTo("replication.origins", "site-b")),
				EqualTo("metacard-tags", "resource"),
				After("metacard.modified", watermark),
			),
			AllOf(
				After("metacard.version.versioned-on", watermark),
				EqualTo("metacard-tags", "revision"),
				Like("metacard.version.action", "Deleted*"),
			),
		),
	)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "composite", []byte(expr+"\n"))
}
