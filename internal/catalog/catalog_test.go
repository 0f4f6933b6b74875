package catalog

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/cql"
	"github.com/roach88/replicate/internal/model"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"), WithClock(func() time.Time { return epoch }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func record(id string, modified time.Time) model.Metadata {
	return model.Metadata{
		ID:         id,
		Modified:   modified,
		Tags:       []string{model.TagDefault},
		Attributes: map[string]string{model.AttrTitle: "title-" + id},
	}
}

func collect(t *testing.T, c *Catalog, expr string, pageSize int) []model.Metadata {
	t.Helper()
	var out []model.Metadata
	for md, err := range c.Query(context.Background(), adapter.QueryRequest{Expression: expr, PageSize: pageSize}) {
		require.NoError(t, err)
		out = append(out, md)
	}
	return out
}

func ids(records []model.Metadata) []string {
	out := make([]string, len(records))
	for i, md := range records {
		out[i] = md.ID
	}
	return out
}

func TestSystemName(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	_, err := c.SystemName(ctx)
	require.ErrorIs(t, err, adapter.ErrNoSystemName)

	require.NoError(t, c.SetSystemName(ctx, " site-a "))
	name, err := c.SystemName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "site-a", name)

	// Cached after the first success.
	require.NoError(t, c.SetSystemName(ctx, "renamed"))
	name, err = c.SystemName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "site-a", name)
}

func TestCreateRejectsExisting(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	ok, err := c.Create(ctx, []model.Metadata{record("a", epoch)})
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := c.Exists(ctx, model.Metadata{ID: "a"})
	require.NoError(t, err)
	assert.True(t, exists)

	ok, err = c.Create(ctx, []model.Metadata{record("a", epoch)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateRequiresExisting(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	ok, err := c.Update(ctx, []model.Metadata{record("missing", epoch)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatchStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	require.NoError(t, c.Put(ctx, record("b", epoch)))

	ok, err := c.Create(ctx, []model.Metadata{record("a", epoch), record("b", epoch), record("c", epoch)})
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := c.Exists(ctx, model.Metadata{ID: "c"})
	require.NoError(t, err)
	assert.False(t, exists, "records after the failure are not attempted")
}

func TestResourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	md := record("doc", epoch)
	md.Resource = &model.Resource{Name: "doc.txt", MIMEType: "text/plain", Size: 5, Data: strings.NewReader("hello")}
	ok, err := c.CreateResource(ctx, []model.Metadata{md})
	require.NoError(t, err)
	require.True(t, ok)

	// A metadata-only update keeps the payload.
	changed := record("doc", epoch.Add(time.Hour))
	changed.Attributes[model.AttrTitle] = "changed"
	ok, err = c.Update(ctx, []model.Metadata{changed})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := c.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Title())
	require.NotNil(t, got.Resource)
	assert.Equal(t, int64(5), got.ResourceSize())
	data, err := io.ReadAll(got.Resource.Data)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDeleteLeavesRevision(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	require.NoError(t, c.Put(ctx, record("gone", epoch)))

	ok, err := c.Delete(ctx, []model.Metadata{{ID: "gone", Origins: []string{"site-b"}}})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = c.Get(ctx, "gone")
	require.ErrorIs(t, err, ErrNotFound)

	expr := cql.AllOf(
		cql.After(model.AttrVersionedOn, epoch.Add(-time.Minute)),
		cql.EqualTo(model.AttrTags, model.TagRevision),
		cql.Like(model.AttrVersionAction, model.ActionDeleted+"*"),
	)
	got := collect(t, c, expr, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "gone", got[0].ID)
	assert.True(t, got[0].Deleted)
	assert.Equal(t, []string{"site-b"}, got[0].Origins)
	assert.True(t, epoch.Equal(got[0].Modified))

	// Recreating the record supersedes the revision.
	ok, err = c.Create(ctx, []model.Metadata{record("gone", epoch)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, collect(t, c, expr, 10))
}

func TestRemoveMissing(t *testing.T) {
	c := openTestCatalog(t)
	require.ErrorIs(t, c.Remove(context.Background(), "nope"), ErrNotFound)
}

func TestQueryPagesInIDOrder(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	for _, id := range []string{"e", "a", "d", "c", "b"} {
		require.NoError(t, c.Put(ctx, record(id, epoch)))
	}
	require.NoError(t, c.SetSystemName(ctx, "site-a"))

	got := collect(t, c, cql.EqualTo(model.AttrTags, model.TagDefault), 2)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(got))
}

func TestQueryFiltersByModifiedAndOrigin(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)

	old := record("old", epoch.Add(-time.Hour))
	fresh := record("fresh", epoch.Add(time.Hour))
	echoed := record("echoed", epoch.Add(time.Hour)).WithOrigin("site-b")
	for _, md := range []model.Metadata{old, fresh, echoed} {
		require.NoError(t, c.Put(ctx, md))
	}

	expr := cql.AllOf(
		cql.Negate(cql.EqualTo(model.AttrOrigins, "site-b")),
		cql.EqualTo(model.AttrTags, model.TagDefault),
		cql.After(model.AttrModified, epoch),
	)
	assert.Equal(t, []string{"fresh"}, ids(collect(t, c, expr, 10)))
}

func TestQueryRejectsBadExpression(t *testing.T) {
	c := openTestCatalog(t)
	for _, err := range c.Query(context.Background(), adapter.QueryRequest{Expression: "[ broken"}) {
		require.Error(t, err)
		assert.False(t, adapter.IsUnavailable(err))
	}
}

func TestClosedCatalogIsUnavailable(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.False(t, c.IsAvailable(ctx))

	_, err := c.Exists(ctx, model.Metadata{ID: "a"})
	assert.True(t, adapter.IsUnavailable(err))

	_, err = c.Create(ctx, []model.Metadata{record("a", epoch)})
	assert.True(t, adapter.IsUnavailable(err))
}

func TestConstructorUsesSiteLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.db")
	construct := Constructor()

	a, err := construct(context.Background(), model.Site{ID: "1", Name: "site-a", Kind: Kind, Location: path})
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.IsAvailable(context.Background()))
}
