// Package adapter defines the capability the replication engine requires
// from a catalog node, independent of the backing system.
//
// Batch operations (Create, Update, Delete, CreateResource, UpdateResource)
// are fail-fast: records are attempted in order and the first non-success
// stops the batch, leaving the remaining records unattempted. The returned
// bool reports whether every record succeeded. A non-nil error means the
// call itself failed; errors wrapping ErrUnavailable indicate lost
// connectivity.
package adapter

import (
	"context"
	"iter"

	"github.com/roach88/replicate/internal/model"
)

// DefaultPageSize is used when a QueryRequest does not set PageSize.
const DefaultPageSize = 100

// QueryRequest selects records with a catalog expression.
type QueryRequest struct {
	Expression string
	PageSize   int
}

// NodeAdapter is a uniform view over one catalog node.
//
// Adapters are not safe for concurrent use by multiple jobs.
type NodeAdapter interface {
	// SystemName returns the node's human-readable identity. The first
	// successful resolution is cached; failures are not.
	SystemName(ctx context.Context) (string, error)

	// IsAvailable is a side-effect free liveness probe.
	IsAvailable(ctx context.Context) bool

	// Query returns a lazy sequence of matching records, fetched page by page.
	Query(ctx context.Context, req QueryRequest) iter.Seq2[model.Metadata, error]

	// Exists reports whether the node holds a record with md's id.
	Exists(ctx context.Context, md model.Metadata) (bool, error)

	Create(ctx context.Context, records []model.Metadata) (bool, error)
	Update(ctx context.Context, records []model.Metadata) (bool, error)
	Delete(ctx context.Context, records []model.Metadata) (bool, error)

	// CreateResource and UpdateResource write records together with their
	// resource payloads.
	CreateResource(ctx context.Context, records []model.Metadata) (bool, error)
	UpdateResource(ctx context.Context, records []model.Metadata) (bool, error)

	// Close releases resources. Calling Close more than once is allowed.
	Close() error
}

// Factory constructs an adapter for a site. Every call returns an
// independent instance owned by the caller.
type Factory interface {
	Create(ctx context.Context, siteID string) (NodeAdapter, error)
}

// ForEach applies op to records in order and stops at the first record
// that does not succeed. It is the batch policy shared by adapters.
func ForEach(ctx context.Context, records []model.Metadata, op func(context.Context, model.Metadata) (bool, error)) (bool, error) {
	for _, md := range records {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ok, err := op(ctx, md)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
