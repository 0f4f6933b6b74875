package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicate/internal/model"
)

func TestLoadTopology(t *testing.T) {
	topo, err := LoadTopology(filepath.Join("testdata", "topology"))
	require.NoError(t, err)

	assert.Equal(t, []model.Site{
		{ID: "site-a", Name: "Site A", Kind: "bolt", Location: "data/site-a.db"},
		{ID: "site-b", Name: "site-b", Kind: "bolt", Location: "data/site-b.db"},
	}, topo.Sites)

	require.Len(t, topo.Filters, 2)
	assert.Equal(t, model.Filter{
		ID:        "drafts",
		SiteID:    "site-a",
		Name:      "Drafts",
		Query:     `[ "title" like 'draft*' ]`,
		Suspended: true,
	}, topo.Filters[0])
	assert.Equal(t, "Published reports", topo.Filters[1].Description)

	require.Len(t, topo.Replications, 2)
	ab := topo.Replications[0]
	assert.Equal(t, "a-b", ab.ID)
	assert.Equal(t, "A to B", ab.Name)
	assert.Equal(t, model.DirectionBoth, ab.Direction, "direction defaults to BOTH")
	assert.False(t, ab.Suspended)

	ba, ok := topo.Replication("b-a")
	require.True(t, ok)
	assert.Equal(t, "b-a", ba.Name, "name defaults to id")
	assert.Equal(t, model.DirectionPull, ba.Direction)
	assert.True(t, ba.Suspended)

	site, ok := topo.Site("site-b")
	require.True(t, ok)
	assert.Equal(t, "data/site-b.db", site.Location)
	_, ok = topo.Site("site-z")
	assert.False(t, ok)
}

func TestLoadTopology_SchemaViolation(t *testing.T) {
	_, err := LoadTopology(filepath.Join("testdata", "invalid"))
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.True(t, le.Pos.IsValid(), "error carries a CUE position: %v", err)
}

func TestLoadTopology_EmptyDir(t *testing.T) {
	_, err := LoadTopology(t.TempDir())
	assert.ErrorIs(t, err, ErrNoTopology)
}

func TestLoadTopology_MissingDir(t *testing.T) {
	_, err := LoadTopology(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseTopology_UnknownSites(t *testing.T) {
	_, err := ParseTopology(`
site: "site-a": location: "a.db"

filter: f1: {site: "site-x", name: "F", query: "[ \"title\" like '*' ]"}

replication: r1: {source: "site-a", destination: "site-c"}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `filter.f1: unknown site "site-x"`)
	assert.Contains(t, err.Error(), `replication.r1: unknown site "site-c"`)
}

func TestParseTopology_SameSourceAndDestination(t *testing.T) {
	_, err := ParseTopology(`
site: "site-a": location: "a.db"

replication: r1: {source: "site-a", destination: "site-a"}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source and destination must differ")
}

func TestParseTopology_UnknownField(t *testing.T) {
	_, err := ParseTopology(`
site: "site-a": {location: "a.db", port: 8993}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestParseTopology_EmptyQueryRejected(t *testing.T) {
	_, err := ParseTopology(`
site: "site-a": location: "a.db"

filter: f1: {site: "site-a", name: "F", query: ""}
`)
	require.Error(t, err)
}
