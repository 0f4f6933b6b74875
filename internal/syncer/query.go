package syncer

import (
	"slices"
	"time"

	"github.com/roach88/replicate/internal/cql"
	"github.com/roach88/replicate/internal/model"
)

// Query describes one directional incremental query.
type Query struct {
	// Base is the job's own expression.
	Base string

	// ModifiedAfter is the watermark; zero means first synchronization.
	ModifiedAfter time.Time

	// ExcludedNodes are system names whose records must not be returned.
	ExcludedNodes []string

	// FailedIDs are record ids returned regardless of the watermark.
	FailedIDs []string
}

// BuildQuery renders q as a catalog expression.
//
// Live records must be tagged default-visible and carry none of the
// excluded origins. With a watermark they must also be modified after it,
// and deletion revisions versioned after it are OR'ed in. Failed ids are
// OR'ed around the whole expression.
func BuildQuery(q Query) string {
	filters := make([]string, 0, len(q.ExcludedNodes)+2)
	for _, node := range q.ExcludedNodes {
		filters = append(filters, cql.Negate(cql.EqualTo(model.AttrOrigins, node)))
	}
	filters = append(filters, cql.EqualTo(model.AttrTags, model.TagDefault))

	var expr string
	if !q.ModifiedAfter.IsZero() {
		filters = append(filters, cql.After(model.AttrModified, q.ModifiedAfter))
		deleted := cql.AllOf(
			cql.After(model.AttrVersionedOn, q.ModifiedAfter),
			cql.EqualTo(model.AttrTags, model.TagRevision),
			cql.Like(model.AttrVersionAction, model.ActionDeleted+"*"),
		)
		expr = cql.AllOf(q.Base, cql.AnyOf(cql.AllOf(filters[0], filters[1:]...), deleted))
	} else {
		filters = append(filters, q.Base)
		expr = cql.AllOf(filters[0], filters[1:]...)
	}

	if len(q.FailedIDs) > 0 {
		ids := make([]string, len(q.FailedIDs))
		for i, id := range q.FailedIDs {
			ids[i] = cql.EqualTo(model.AttrID, id)
		}
		expr = cql.AnyOf(expr, cql.AnyOf(ids[0], ids[1:]...))
	}
	return expr
}

// mergeIDs concatenates lists, dropping empty and repeated ids while
// keeping first-seen order.
func mergeIDs(lists ...[]string) []string {
	var out []string
	for _, ids := range lists {
		for _, id := range ids {
			if id != "" && !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}
