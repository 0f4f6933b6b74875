package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/cql"
	"github.com/roach88/replicate/internal/model"
)

// Kind is the site kind served by this package.
const Kind = "bolt"

// IdentityRecordID is the id of the record holding the node's system name.
const IdentityRecordID = "registry-identity"

var (
	bucketRecords   = []byte("records")
	bucketRevisions = []byte("revisions")
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("record not found")

// Catalog is a NodeAdapter backed by a bbolt file.
type Catalog struct {
	db     *bbolt.DB
	label  string
	names  *adapter.NameCache
	now    func() time.Time
	logger *slog.Logger
	closed atomic.Bool
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock sets the time source used for revisions and local writes.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// WithLabel names the node in error messages. Defaults to the file path.
func WithLabel(label string) Option {
	return func(c *Catalog) { c.label = label }
}

// Open opens or creates the catalog file at path.
func Open(path string, opts ...Option) (*Catalog, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}

	c := &Catalog{
		db:     db,
		label:  path,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.names = adapter.NewNameCache(c.resolveName)

	if err := c.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	return c, nil
}

// Constructor returns an adapter.Constructor that opens the catalog file
// named by a site's Location.
func Constructor(opts ...Option) adapter.Constructor {
	return func(_ context.Context, site model.Site) (adapter.NodeAdapter, error) {
		return Open(site.Location, append(slices.Clone(opts), WithLabel(site.Name))...)
	}
}

func (c *Catalog) initBuckets() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRecords, bucketRevisions} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close closes the underlying file. Subsequent calls are no-ops.
func (c *Catalog) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.db.Close()
}

func (c *Catalog) fail(op string, err error) error {
	if c.closed.Load() || errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return adapter.Unavailable(op, c.label, err)
	}
	return &adapter.Error{Op: op, Node: c.label, Err: err}
}

// SystemName returns the title of the registry identity record.
func (c *Catalog) SystemName(ctx context.Context) (string, error) {
	return c.names.Get(ctx)
}

func (c *Catalog) resolveName(ctx context.Context) (string, error) {
	expr := cql.AllOf(cql.EqualTo(model.AttrTags, model.TagRegistry), cql.Negate(cql.IsNull(model.AttrRegistryIdentity)))
	for md, err := range c.Query(ctx, adapter.QueryRequest{Expression: expr, PageSize: 1}) {
		if err != nil {
			return "", err
		}
		return model.NormalizeName(md.Title()), nil
	}
	return "", adapter.ErrNoSystemName
}

// SetSystemName writes the registry identity record.
func (c *Catalog) SetSystemName(ctx context.Context, name string) error {
	return c.Put(ctx, model.Metadata{
		ID:   IdentityRecordID,
		Tags: []string{model.TagRegistry},
		Attributes: map[string]string{
			model.AttrTitle:            model.NormalizeName(name),
			model.AttrRegistryIdentity: "true",
		},
	})
}

// IsAvailable reports whether the file is open and readable.
func (c *Catalog) IsAvailable(ctx context.Context) bool {
	if c.closed.Load() || ctx.Err() != nil {
		return false
	}
	return c.db.View(func(tx *bbolt.Tx) error { return nil }) == nil
}

// Query evaluates req.Expression against records and revisions. Records
// come first, then revisions, each in id order.
func (c *Catalog) Query(ctx context.Context, req adapter.QueryRequest) iter.Seq2[model.Metadata, error] {
	expr, err := cql.Parse(req.Expression)
	if err != nil {
		return func(yield func(model.Metadata, error) bool) {
			yield(model.Metadata{}, c.fail("query", err))
		}
	}
	return adapter.Paginate(ctx, req.PageSize, func(ctx context.Context, start, size int) ([]model.Metadata, error) {
		page, err := c.page(expr, start, size)
		if err != nil {
			return nil, c.fail("query", err)
		}
		return page, nil
	})
}

func (c *Catalog) page(expr cql.Expr, start, size int) ([]model.Metadata, error) {
	var (
		page    []model.Metadata
		skipped int
	)
	take := func(md model.Metadata) bool {
		if skipped < start {
			skipped++
			return true
		}
		page = append(page, md)
		return len(page) < size
	}
	errFull := errors.New("page full")

	err := c.db.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketRecords).ForEach(func(_, v []byte) error {
			var r storedRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			if expr.Match(r.attributes()) && !take(r.metadata()) {
				return errFull
			}
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRevisions).ForEach(func(_, v []byte) error {
			var r storedRevision
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode revision: %w", err)
			}
			if expr.Match(r.attributes()) && !take(r.metadata()) {
				return errFull
			}
			return nil
		})
	})
	if err != nil && !errors.Is(err, errFull) {
		return nil, err
	}
	return page, nil
}

// Exists reports whether a live record with md's id is stored.
func (c *Catalog) Exists(_ context.Context, md model.Metadata) (bool, error) {
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketRecords).Get([]byte(md.ID)) != nil
		return nil
	})
	if err != nil {
		return false, c.fail("exists", err)
	}
	return found, nil
}

// Get returns the live record stored under id.
func (c *Catalog) Get(_ context.Context, id string) (model.Metadata, error) {
	var md model.Metadata
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketRecords).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		var r storedRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		md = r.metadata()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return model.Metadata{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Metadata{}, c.fail("get", err)
	}
	return md, nil
}

// Put stores md as a local edit, overwriting any record with the same id.
// A zero Modified is set to the current time.
func (c *Catalog) Put(_ context.Context, md model.Metadata) error {
	if md.Modified.IsZero() {
		md.Modified = c.now().UTC()
	}
	r, err := toStored(md, nil)
	if err != nil {
		return c.fail("put", err)
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		return putRecord(tx, r)
	})
	if err != nil {
		return c.fail("put", err)
	}
	return nil
}

// Remove deletes a record locally and leaves a revision behind.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	ok, err := c.Delete(ctx, []model.Metadata{{ID: id}})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	return nil
}

// Create stores new records. A record whose id already exists fails.
func (c *Catalog) Create(ctx context.Context, records []model.Metadata) (bool, error) {
	return adapter.ForEach(ctx, records, func(_ context.Context, md model.Metadata) (bool, error) {
		return c.write("create", md, false, false)
	})
}

// Update replaces existing records, keeping any stored resource.
func (c *Catalog) Update(ctx context.Context, records []model.Metadata) (bool, error) {
	return adapter.ForEach(ctx, records, func(_ context.Context, md model.Metadata) (bool, error) {
		return c.write("update", md, true, false)
	})
}

// CreateResource stores new records together with their payloads.
func (c *Catalog) CreateResource(ctx context.Context, records []model.Metadata) (bool, error) {
	return adapter.ForEach(ctx, records, func(_ context.Context, md model.Metadata) (bool, error) {
		return c.write("create resource", md, false, true)
	})
}

// UpdateResource replaces existing records and their payloads.
func (c *Catalog) UpdateResource(ctx context.Context, records []model.Metadata) (bool, error) {
	return adapter.ForEach(ctx, records, func(_ context.Context, md model.Metadata) (bool, error) {
		return c.write("update resource", md, true, true)
	})
}

// Delete removes records and writes a revision for each. Origins carried
// by the request are kept on the revision.
func (c *Catalog) Delete(ctx context.Context, records []model.Metadata) (bool, error) {
	return adapter.ForEach(ctx, records, func(_ context.Context, md model.Metadata) (bool, error) {
		var ok bool
		err := c.db.Update(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket(bucketRecords)
			current := bucket.Get([]byte(md.ID))
			if current == nil {
				return nil
			}
			var prev storedRecord
			if err := json.Unmarshal(current, &prev); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			if err := bucket.Delete([]byte(md.ID)); err != nil {
				return err
			}
			data, err := json.Marshal(storedRevision{
				ID:          md.ID,
				Action:      model.ActionDeleted,
				VersionedOn: c.now().UTC(),
				Origins:     slices.Clone(md.Origins),
				Attributes:  prev.Attributes,
			})
			if err != nil {
				return err
			}
			ok = true
			return tx.Bucket(bucketRevisions).Put([]byte(revisionKey(md.ID)), data)
		})
		if err != nil {
			return false, c.fail("delete", err)
		}
		if !ok {
			c.logger.Debug("delete skipped, record missing", "node", c.label, "id", md.ID)
		}
		return ok, nil
	})
}

// write stores md. exists selects update (record must exist) or create
// (record must not exist). Without withResource an update keeps the stored
// payload.
func (c *Catalog) write(op string, md model.Metadata, exists, withResource bool) (bool, error) {
	var payload *storedResource
	if withResource && md.Resource != nil {
		var data []byte
		if md.Resource.Data != nil {
			var err error
			if data, err = io.ReadAll(md.Resource.Data); err != nil {
				return false, c.fail(op, fmt.Errorf("read resource %q: %w", md.ID, err))
			}
		}
		payload = &storedResource{Name: md.Resource.Name, MIMEType: md.Resource.MIMEType, Data: data}
	}

	var ok bool
	err := c.db.Update(func(tx *bbolt.Tx) error {
		current := tx.Bucket(bucketRecords).Get([]byte(md.ID))
		if (current != nil) != exists {
			return nil
		}
		if exists && !withResource {
			var prev storedRecord
			if err := json.Unmarshal(current, &prev); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			payload = prev.Resource
		}
		r, err := toStored(md, payload)
		if err != nil {
			return err
		}
		ok = true
		if err := putRecord(tx, r); err != nil {
			return err
		}
		// A recreated record supersedes its revision.
		return tx.Bucket(bucketRevisions).Delete([]byte(revisionKey(md.ID)))
	})
	if err != nil {
		return false, c.fail(op, err)
	}
	return ok, nil
}

func toStored(md model.Metadata, payload *storedResource) (storedRecord, error) {
	if md.ID == "" {
		return storedRecord{}, errors.New("record id is empty")
	}
	attrs := make(map[string]string, len(md.Attributes))
	for k, v := range md.Attributes {
		attrs[k] = v
	}
	return storedRecord{
		ID:         md.ID,
		Raw:        slices.Clone(md.Raw),
		Modified:   md.Modified.UTC(),
		Tags:       slices.Clone(md.Tags),
		Origins:    slices.Clone(md.Origins),
		Attributes: attrs,
		Resource:   payload,
	}, nil
}

func putRecord(tx *bbolt.Tx, r storedRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return tx.Bucket(bucketRecords).Put([]byte(r.ID), data)
}

var _ adapter.NodeAdapter = (*Catalog)(nil)
