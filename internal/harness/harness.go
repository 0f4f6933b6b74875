package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/catalog"
	"github.com/roach88/replicate/internal/config"
	"github.com/roach88/replicate/internal/engine"
	"github.com/roach88/replicate/internal/eventlog"
	"github.com/roach88/replicate/internal/model"
	"github.com/roach88/replicate/internal/store"
	"github.com/roach88/replicate/internal/syncer"
	"github.com/roach88/replicate/internal/testutil"
)

// Harness executes one scenario. Every site is a bolt catalog in a scratch
// directory wrapped in a FaultyAdapter; all components share one
// deterministic clock.
type Harness struct {
	dir      string
	topology *config.Topology
	store    *store.Store
	clock    *testutil.DeterministicClock
	factory  *testutil.StaticFactory
	catalogs map[string]*catalog.Catalog
	nodes    map[string]*testutil.FaultyAdapter
	syncer   *syncer.Syncer
	planner  *engine.Planner
	logger   *slog.Logger
	runs     int
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh database and fresh catalogs.
//
// Execution flow:
// 1. Parse the topology and open a catalog per site
// 2. Execute setup steps
// 3. Execute steps, checking expect clauses of sync steps
// 4. Evaluate assertions and capture the final snapshot
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.close()

	result := NewResult()
	for i, step := range scenario.Setup {
		if err := h.execute(ctx, step, result); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Store:    h.store,
		Catalogs: h.catalogs,
		Nodes:    h.nodes,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	snap, err := h.snapshot(ctx, scenario.Name, result)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	result.Snapshot = snap
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario) (h *Harness, err error) {
	topo, err := config.ParseTopology(scenario.Topology)
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}

	dir, err := os.MkdirTemp("", "replicate-scenario-")
	if err != nil {
		return nil, fmt.Errorf("scratch directory: %w", err)
	}
	h = &Harness{
		dir:      dir,
		topology: topo,
		clock:    testutil.NewDeterministicClock(time.Time{}, time.Second),
		factory:  testutil.NewStaticFactory(),
		catalogs: make(map[string]*catalog.Catalog),
		nodes:    make(map[string]*testutil.FaultyAdapter),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	defer func() {
		if err != nil {
			h.close()
		}
	}()

	h.store, err = store.Open(ctx, filepath.Join(dir, "replicate.db"))
	if err != nil {
		return nil, err
	}

	for _, site := range topo.Sites {
		if site.Kind != catalog.Kind {
			return nil, fmt.Errorf("site %s: unsupported kind %q", site.ID, site.Kind)
		}
		cat, err := catalog.Open(filepath.Join(dir, site.ID+".db"),
			catalog.WithClock(h.clock.Now),
			catalog.WithLabel(site.Name),
			catalog.WithLogger(h.logger))
		if err != nil {
			return nil, err
		}
		h.catalogs[site.ID] = cat
		if err := cat.SetSystemName(ctx, site.Name); err != nil {
			return nil, fmt.Errorf("site %s: %w", site.ID, err)
		}
		node := testutil.NewFaultyAdapter(cat)
		h.nodes[site.ID] = node
		h.factory.Add(site.ID, node)
	}

	for _, f := range topo.Filters {
		if err := h.store.SaveFilter(ctx, f); err != nil {
			return nil, err
		}
	}

	opts := []syncer.Option{syncer.WithLogger(h.logger), syncer.WithClock(h.clock.Now)}
	if scenario.MaxFailures > 0 {
		opts = append(opts, syncer.WithMaxFailures(scenario.MaxFailures))
	}
	if scenario.PageSize > 0 {
		opts = append(opts, syncer.WithPageSize(scenario.PageSize))
	}
	h.syncer = syncer.New(h.store, opts...)
	h.planner = engine.NewPlanner(h.store)
	return h, nil
}

func (h *Harness) close() {
	for _, cat := range h.catalogs {
		_ = cat.Close()
	}
	if h.store != nil {
		_ = h.store.Close()
	}
	_ = os.RemoveAll(h.dir)
}

func (h *Harness) node(siteID string) (*testutil.FaultyAdapter, error) {
	node, ok := h.nodes[siteID]
	if !ok {
		return nil, fmt.Errorf("unknown site %q", siteID)
	}
	return node, nil
}

func (h *Harness) execute(ctx context.Context, step Step, result *Result) error {
	switch {
	case step.Put != nil:
		return h.put(ctx, *step.Put)
	case step.Remove != nil:
		cat, ok := h.catalogs[step.Remove.Site]
		if !ok {
			return fmt.Errorf("remove: unknown site %q", step.Remove.Site)
		}
		return cat.Remove(ctx, step.Remove.ID)
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		return nil
	case step.Fault != nil:
		node, err := h.node(step.Fault.Site)
		if err != nil {
			return err
		}
		var injected error = errors.New(step.Fault.Error)
		if step.Fault.Unavailable {
			injected = adapter.Unavailable(step.Fault.Op, step.Fault.Site, injected)
		}
		node.Fail(step.Fault.Op, injected)
		return nil
	case step.Reject != nil:
		node, err := h.node(step.Reject.Site)
		if err != nil {
			return err
		}
		node.Reject(step.Reject.IDs...)
		return nil
	case step.Clear != "":
		node, err := h.node(step.Clear)
		if err != nil {
			return err
		}
		node.Clear()
		return nil
	case step.Sync != "":
		st, err := h.sync(ctx, step.Sync)
		if err != nil {
			return err
		}
		result.AddStatus(st)
		if step.Expect != nil {
			for _, msg := range checkExpect(st, *step.Expect) {
				result.AddError(fmt.Sprintf("sync %s (%s): %s", step.Sync, st.ID, msg))
			}
		}
		return nil
	}
	return errors.New("empty step")
}

func (h *Harness) put(ctx context.Context, rec RecordSpec) error {
	cat, ok := h.catalogs[rec.Site]
	if !ok {
		return fmt.Errorf("put: unknown site %q", rec.Site)
	}

	tags := rec.Tags
	if len(tags) == 0 {
		tags = []string{model.TagDefault}
	}
	attrs := make(map[string]string, len(rec.Attributes)+1)
	for k, v := range rec.Attributes {
		attrs[k] = v
	}
	if rec.Title != "" {
		attrs[model.AttrTitle] = rec.Title
	}
	md := model.Metadata{
		ID:         rec.ID,
		Modified:   h.clock.Now().UTC(),
		Tags:       tags,
		Attributes: attrs,
	}
	if rec.Resource == "" {
		return cat.Put(ctx, md)
	}

	md.Resource = &model.Resource{
		Name:     rec.ID + ".txt",
		MIMEType: "text/plain",
		Size:     int64(len(rec.Resource)),
		Data:     strings.NewReader(rec.Resource),
	}
	exists, err := cat.Exists(ctx, md)
	if err != nil {
		return err
	}
	write := cat.CreateResource
	if exists {
		write = cat.UpdateResource
	}
	ok, err = write(ctx, []model.Metadata{md})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("put %s on %s: write rejected", rec.ID, rec.Site)
	}
	return nil
}

// sync plans one run of the replication and drives it through a fresh
// replicator until its status is recorded.
func (h *Harness) sync(ctx context.Context, id string) (model.Status, error) {
	rep, ok := h.topology.Replication(id)
	if !ok {
		return model.Status{}, fmt.Errorf("sync: unknown replication %q", id)
	}
	job, err := h.planner.Plan(ctx, rep)
	if err != nil {
		return model.Status{}, err
	}

	h.runs++
	var statuses []model.Status
	collect := eventlog.AppenderFunc[model.Status](func(_ context.Context, st model.Status) error {
		statuses = append(statuses, st)
		return nil
	})
	replicator := engine.New(h.factory, h.syncer,
		eventlog.Tee[model.Status](eventlog.AppenderFunc[model.Status](h.store.AppendStatus), collect),
		engine.WithLogger(h.logger),
		engine.WithClock(h.clock.Now),
		engine.WithIDGenerator(engine.NewFixedGenerator(fmt.Sprintf("run-%d", h.runs))),
		engine.WithPollInterval(time.Millisecond),
	)
	if err := replicator.Submit(job); err != nil {
		return model.Status{}, err
	}
	if err := replicator.Start(ctx); err != nil {
		return model.Status{}, err
	}
	if err := replicator.Shutdown(ctx).Err(); err != nil {
		return model.Status{}, err
	}
	if len(statuses) != 1 {
		return model.Status{}, fmt.Errorf("sync %s: expected 1 status, got %d", id, len(statuses))
	}
	return statuses[0], nil
}

func checkExpect(st model.Status, want ExpectClause) []string {
	var errs []string
	if st.State != want.State {
		errs = append(errs, fmt.Sprintf("state: expected %s, got %s", want.State, st.State))
	}
	errs = append(errs, checkCounts("pull", st.Pull, want.Pull)...)
	errs = append(errs, checkCounts("push", st.Push, want.Push)...)
	return errs
}

func checkCounts(phase string, got model.Counts, want *ExpectCounts) []string {
	if want == nil {
		return nil
	}
	var errs []string
	if want.Replicated != nil && got.Replicated != *want.Replicated {
		errs = append(errs, fmt.Sprintf("%s replicated: expected %d, got %d", phase, *want.Replicated, got.Replicated))
	}
	if want.Failed != nil && got.Failed != *want.Failed {
		errs = append(errs, fmt.Sprintf("%s failed: expected %d, got %d", phase, *want.Failed, got.Failed))
	}
	return errs
}
