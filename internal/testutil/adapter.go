package testutil

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/model"
)

// Adapter operation names accepted by FaultyAdapter.
const (
	OpSystemName     = "system_name"
	OpAvailable      = "available"
	OpQuery          = "query"
	OpExists         = "exists"
	OpCreate         = "create"
	OpUpdate         = "update"
	OpDelete         = "delete"
	OpCreateResource = "create_resource"
	OpUpdateResource = "update_resource"
)

type fault struct {
	err      error
	panic    any
	gate     chan struct{}
	stubborn bool
}

// FaultyAdapter wraps a NodeAdapter and injects failures per operation.
// It also records issued queries and Close calls.
type FaultyAdapter struct {
	adapter.NodeAdapter

	mu       sync.Mutex
	faults   map[string]fault
	rejected map[string]bool
	queries  []string
	closes   int
}

// NewFaultyAdapter wraps next.
func NewFaultyAdapter(next adapter.NodeAdapter) *FaultyAdapter {
	return &FaultyAdapter{
		NodeAdapter: next,
		faults:      make(map[string]fault),
		rejected:    make(map[string]bool),
	}
}

// Fail makes op return err.
func (f *FaultyAdapter) Fail(op string, err error) *FaultyAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = fault{err: err}
	return f
}

// Panic makes op panic with v.
func (f *FaultyAdapter) Panic(op string, v any) *FaultyAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = fault{panic: v}
	return f
}

// Block makes op wait until the returned release func is called or the
// call's context ends.
func (f *FaultyAdapter) Block(op string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.faults[op] = fault{gate: gate}
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Hang makes op wait until the returned release func is called, ignoring
// the call's context.
func (f *FaultyAdapter) Hang(op string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.faults[op] = fault{gate: gate, stubborn: true}
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Reject makes write operations report non-success for the given ids.
func (f *FaultyAdapter) Reject(ids ...string) *FaultyAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.rejected[id] = true
	}
	return f
}

// Clear removes all injected faults and rejections.
func (f *FaultyAdapter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.faults)
	clear(f.rejected)
}

// Queries returns the expressions passed to Query, in call order.
func (f *FaultyAdapter) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queries)
}

// Closes returns the number of Close calls.
func (f *FaultyAdapter) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *FaultyAdapter) inject(ctx context.Context, op string) error {
	f.mu.Lock()
	ft, ok := f.faults[op]
	f.mu.Unlock()
	if !ok {
		return nil
	}
	if ft.panic != nil {
		panic(ft.panic)
	}
	if ft.gate != nil && ft.stubborn {
		<-ft.gate
		return nil
	}
	if ft.gate != nil {
		select {
		case <-ft.gate:
			return nil
		case <-ctx.Done():
			return adapter.Unavailable(op, "faulty", ctx.Err())
		}
	}
	return ft.err
}

func (f *FaultyAdapter) SystemName(ctx context.Context) (string, error) {
	if err := f.inject(ctx, OpSystemName); err != nil {
		return "", err
	}
	return f.NodeAdapter.SystemName(ctx)
}

func (f *FaultyAdapter) IsAvailable(ctx context.Context) bool {
	if err := f.inject(ctx, OpAvailable); err != nil {
		return false
	}
	return f.NodeAdapter.IsAvailable(ctx)
}

func (f *FaultyAdapter) Query(ctx context.Context, req adapter.QueryRequest) iter.Seq2[model.Metadata, error] {
	f.mu.Lock()
	f.queries = append(f.queries, req.Expression)
	f.mu.Unlock()
	return func(yield func(model.Metadata, error) bool) {
		if err := f.inject(ctx, OpQuery); err != nil {
			yield(model.Metadata{}, err)
			return
		}
		for md, err := range f.NodeAdapter.Query(ctx, req) {
			if !yield(md, err) {
				return
			}
		}
	}
}

func (f *FaultyAdapter) Exists(ctx context.Context, md model.Metadata) (bool, error) {
	if err := f.inject(ctx, OpExists); err != nil {
		return false, err
	}
	return f.NodeAdapter.Exists(ctx, md)
}

func (f *FaultyAdapter) write(ctx context.Context, op string, records []model.Metadata, next func(context.Context, []model.Metadata) (bool, error)) (bool, error) {
	if err := f.inject(ctx, op); err != nil {
		return false, err
	}
	return adapter.ForEach(ctx, records, func(ctx context.Context, md model.Metadata) (bool, error) {
		f.mu.Lock()
		rejected := f.rejected[md.ID]
		f.mu.Unlock()
		if rejected {
			return false, nil
		}
		return next(ctx, []model.Metadata{md})
	})
}

func (f *FaultyAdapter) Create(ctx context.Context, records []model.Metadata) (bool, error) {
	return f.write(ctx, OpCreate, records, f.NodeAdapter.Create)
}

func (f *FaultyAdapter) Update(ctx context.Context, records []model.Metadata) (bool, error) {
	return f.write(ctx, OpUpdate, records, f.NodeAdapter.Update)
}

func (f *FaultyAdapter) Delete(ctx context.Context, records []model.Metadata) (bool, error) {
	return f.write(ctx, OpDelete, records, f.NodeAdapter.Delete)
}

func (f *FaultyAdapter) CreateResource(ctx context.Context, records []model.Metadata) (bool, error) {
	return f.write(ctx, OpCreateResource, records, f.NodeAdapter.CreateResource)
}

func (f *FaultyAdapter) UpdateResource(ctx context.Context, records []model.Metadata) (bool, error) {
	return f.write(ctx, OpUpdateResource, records, f.NodeAdapter.UpdateResource)
}

// Close counts the call and leaves the wrapped adapter open, so a node can
// be shared by consecutive jobs in a test.
func (f *FaultyAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

// StaticFactory is an adapter.Factory over a fixed set of adapters.
type StaticFactory struct {
	mu      sync.Mutex
	nodes   map[string]adapter.NodeAdapter
	errs    map[string]error
	created []string
}

// NewStaticFactory creates an empty factory.
func NewStaticFactory() *StaticFactory {
	return &StaticFactory{
		nodes: make(map[string]adapter.NodeAdapter),
		errs:  make(map[string]error),
	}
}

// Add registers node under siteID.
func (f *StaticFactory) Add(siteID string, node adapter.NodeAdapter) *StaticFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[siteID] = node
	return f
}

// FailWith makes Create return err for siteID.
func (f *StaticFactory) FailWith(siteID string, err error) *StaticFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[siteID] = err
	return f
}

// Created returns the site ids passed to Create, in call order.
func (f *StaticFactory) Created() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.created)
}

func (f *StaticFactory) Create(_ context.Context, siteID string) (adapter.NodeAdapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, siteID)
	if err := f.errs[siteID]; err != nil {
		return nil, adapter.Unavailable("connect", siteID, err)
	}
	node, ok := f.nodes[siteID]
	if !ok {
		return nil, fmt.Errorf("create adapter for %q: %w", siteID, adapter.ErrUnknownSite)
	}
	return node, nil
}

var (
	_ adapter.NodeAdapter = (*FaultyAdapter)(nil)
	_ adapter.Factory     = (*StaticFactory)(nil)
)
