package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/model"
	"github.com/roach88/replicate/internal/store"
)

// DefaultMaxFailures is the failure count at which an item stops being
// force-retried.
const DefaultMaxFailures = 5

//go:generate go tool moq -out itemstore_mock_test.go . ItemStore

// ItemStore is the item tracker used by a Syncer. Item returns an error
// matching store.ErrItemNotFound for unknown items.
type ItemStore interface {
	Item(ctx context.Context, metadataID, source, destination string) (model.Item, error)
	SaveItem(ctx context.Context, item model.Item) error
	FailureList(ctx context.Context, maxFailures int, source, destination string) ([]string, error)
}

// Response summarises one directional run.
type Response struct {
	model.Counts

	// State is SUCCESS, FAILURE or CONNECTION_UNAVAILABLE.
	State model.State

	// Err is the cause of a non-SUCCESS state.
	Err error
}

// Syncer runs directional transfers. It holds no per-run state and may be
// reused across runs, but not concurrently on the same item tracker rows.
type Syncer struct {
	items       ItemStore
	logger      *slog.Logger
	now         func() time.Time
	maxFailures int
	pageSize    int
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithClock sets the time source for item attempt times.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// WithMaxFailures sets the failure count at which items stop being
// force-retried. Values below 1 are ignored.
func WithMaxFailures(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.maxFailures = n
		}
	}
}

// WithPageSize sets the query page size.
func WithPageSize(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New creates a Syncer recording outcomes in items.
func New(items ItemStore, opts ...Option) *Syncer {
	s := &Syncer{
		items:       items,
		logger:      slog.Default(),
		now:         time.Now,
		maxFailures: DefaultMaxFailures,
		pageSize:    adapter.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan resolves both system names and returns the incremental query that
// a run from src to dst would issue.
func (s *Syncer) Plan(ctx context.Context, src, dst adapter.NodeAdapter, job model.Job) (string, error) {
	srcName, dstName, err := systemNames(ctx, src, dst)
	if err != nil {
		return "", err
	}
	return s.query(ctx, job, srcName, dstName)
}

// Sync replicates records matching job from src to dst.
func (s *Syncer) Sync(ctx context.Context, src, dst adapter.NodeAdapter, job model.Job) Response {
	var resp Response

	srcName, dstName, err := systemNames(ctx, src, dst)
	if err != nil {
		return resp.fail(err)
	}
	expr, err := s.query(ctx, job, srcName, dstName)
	if err != nil {
		return resp.fail(err)
	}

	logger := s.logger.With("job", job.Name(), "source", srcName, "destination", dstName)
	logger.Debug("querying source", "query", expr)

	for md, err := range src.Query(ctx, adapter.QueryRequest{Expression: expr, PageSize: s.pageSize}) {
		if err != nil {
			logger.Error("source query failed", "error", err)
			return resp.fail(fmt.Errorf("query %s: %w", srcName, err))
		}
		if err := s.apply(ctx, logger, dst, job, srcName, dstName, md, &resp); err != nil {
			logger.Error("replication aborted", "id", md.ID, "error", err)
			return resp.fail(err)
		}
	}

	resp.State = model.StateSuccess
	logger.Info("replication finished",
		"replicated", resp.Replicated, "failed", resp.Failed, "bytes", resp.Bytes)
	return resp
}

func systemNames(ctx context.Context, src, dst adapter.NodeAdapter) (string, string, error) {
	srcName, err := src.SystemName(ctx)
	if err != nil {
		return "", "", fmt.Errorf("source: %w", err)
	}
	dstName, err := dst.SystemName(ctx)
	if err != nil {
		return "", "", fmt.Errorf("destination: %w", err)
	}
	return srcName, dstName, nil
}

func (s *Syncer) query(ctx context.Context, job model.Job, srcName, dstName string) (string, error) {
	failed, err := s.items.FailureList(ctx, s.maxFailures, srcName, dstName)
	if err != nil {
		return "", fmt.Errorf("failure list: %w", err)
	}
	explicit, err := s.belowMaximum(ctx, job.FailedItemIDs, srcName, dstName)
	if err != nil {
		return "", err
	}
	return BuildQuery(Query{
		Base:          job.Query,
		ModifiedAfter: job.ModifiedAfter,
		ExcludedNodes: mergeIDs(job.ExcludedNodes, []string{dstName}),
		FailedIDs:     mergeIDs(explicit, failed),
	}), nil
}

// belowMaximum drops ids whose tracked failure count has reached the
// maximum. Untracked ids are kept.
func (s *Syncer) belowMaximum(ctx context.Context, ids []string, srcName, dstName string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		item, err := s.items.Item(ctx, id, srcName, dstName)
		switch {
		case errors.Is(err, store.ErrItemNotFound):
		case err != nil:
			return nil, fmt.Errorf("load item %q: %w", id, err)
		case item.FailureCount >= s.maxFailures:
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// apply transfers one record. A returned error ends the run; per-item
// failures are counted and recorded instead.
func (s *Syncer) apply(
	ctx context.Context,
	logger *slog.Logger,
	dst adapter.NodeAdapter,
	job model.Job,
	srcName, dstName string,
	md model.Metadata,
	resp *Response,
) error {
	item, err := s.items.Item(ctx, md.ID, srcName, dstName)
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		item = model.NewItem(md.ID, job.ConfigID, srcName, dstName)
	case err != nil:
		return fmt.Errorf("load item %q: %w", md.ID, err)
	}

	ok, err := s.transfer(ctx, logger, dst, srcName, item, md)
	if errors.Is(err, errSkipped) {
		return nil
	}
	if adapter.IsUnavailable(err) {
		return err
	}
	if err != nil && aborted(ctx, err) {
		return fmt.Errorf("transfer %q: %w", md.ID, err)
	}

	at := s.now().UTC()
	if err != nil || !ok {
		item.RecordFailure(at)
		resp.Failed++
		logger.Warn("item failed", "id", md.ID, "failures", item.FailureCount, "error", err)
	} else {
		item.RecordSuccess(md.Modified, at)
		resp.Replicated++
		resp.Bytes += md.ResourceSize()
		logger.Debug("item replicated", "id", md.ID, "deleted", md.Deleted)
	}

	if err := s.items.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("save item %q: %w", md.ID, err)
	}
	return nil
}

var errSkipped = errors.New("skipped")

// aborted reports whether err comes from the run being cancelled rather
// than from the record itself.
func aborted(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *Syncer) transfer(
	ctx context.Context,
	logger *slog.Logger,
	dst adapter.NodeAdapter,
	srcName string,
	item model.Item,
	md model.Metadata,
) (bool, error) {
	exists, err := dst.Exists(ctx, md)
	if err != nil {
		return false, err
	}

	batch := []model.Metadata{md.WithOrigin(srcName)}
	switch {
	case md.Deleted:
		if !exists {
			logger.Debug("deletion already applied", "id", md.ID)
			return false, errSkipped
		}
		return dst.Delete(ctx, batch)
	case exists:
		if item.Succeeded() && !item.MetadataModified.Before(md.Modified) {
			logger.Debug("record unchanged", "id", md.ID)
			return false, errSkipped
		}
		if md.Resource != nil {
			return dst.UpdateResource(ctx, batch)
		}
		return dst.Update(ctx, batch)
	default:
		if md.Resource != nil {
			return dst.CreateResource(ctx, batch)
		}
		return dst.Create(ctx, batch)
	}
}

func (r Response) fail(err error) Response {
	r.State = model.StateFailure
	if adapter.IsUnavailable(err) {
		r.State = model.StateConnectionUnavailable
	}
	r.Err = err
	return r
}
