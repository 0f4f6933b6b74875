package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/catalog"
	"github.com/roach88/replicate/internal/config"
	"github.com/roach88/replicate/internal/engine"
	"github.com/roach88/replicate/internal/eventlog"
	"github.com/roach88/replicate/internal/model"
	"github.com/roach88/replicate/internal/store"
	"github.com/roach88/replicate/internal/syncer"
)

// app is the runtime shared by commands: settings, topology, store and the
// components built on them.
type app struct {
	settings config.Settings
	topology *config.Topology
	store    *store.Store
	registry *adapter.Registry
	syncer   *syncer.Syncer
	planner  *engine.Planner
	history  eventlog.Appender[model.Status]
	logger   *slog.Logger
	closers  []io.Closer
}

// appOptions selects what openApp loads.
type appOptions struct {
	// topology loads the CUE topology, registers its sites and upserts its
	// filters into the store.
	topology bool
}

// openApp wires the application for cmd. Failures are reported through f
// and returned as ExitErrors.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command, f *OutputFormatter, ao appOptions) (*app, error) {
	settings, err := config.LoadSettings(opts.Config)
	if err != nil {
		return nil, fail(f, ExitCommandError, ErrCodeSettings, "failed to load settings", err)
	}
	if opts.Database != "" {
		settings.Database = opts.Database
	}
	if opts.Topology != "" {
		settings.Topology = opts.Topology
	}

	a := &app{settings: settings, logger: newLogger(opts, cmd.ErrOrStderr())}

	if ao.topology {
		a.logger.Debug("loading topology", "dir", settings.Topology)
		topo, err := config.LoadTopology(settings.Topology)
		if err != nil {
			return nil, fail(f, ExitCommandError, ErrCodeTopology, "failed to load topology", err)
		}
		a.topology = topo
	}

	a.logger.Debug("opening database", "path", settings.Database)
	st, err := store.Open(ctx, settings.Database)
	if err != nil {
		return nil, fail(f, ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	a.store = st
	a.closers = append(a.closers, st)

	a.registry = adapter.NewRegistry()
	a.registry.RegisterKind(catalog.Kind, catalog.Constructor(catalog.WithLogger(a.logger)))
	if a.topology != nil {
		for _, site := range a.topology.Sites {
			a.registry.AddSite(site)
		}
		for _, flt := range a.topology.Filters {
			if err := st.SaveFilter(ctx, flt); err != nil {
				_ = a.Close()
				return nil, fail(f, ExitCommandError, ErrCodeDatabase, "failed to store filter "+flt.ID, err)
			}
		}
	}

	a.history = eventlog.AppenderFunc[model.Status](st.AppendStatus)
	if settings.HistoryCSV != "" {
		csvFile, err := os.OpenFile(settings.HistoryCSV, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			_ = a.Close()
			return nil, fail(f, ExitCommandError, ErrCodeWriteFailed, "failed to open history CSV", err)
		}
		a.closers = append(a.closers, csvFile)
		a.history = eventlog.Tee(a.history, eventlog.Appender[model.Status](eventlog.NewCSVWriter[model.Status](csvFile)))
	}

	a.syncer = syncer.New(st,
		syncer.WithLogger(a.logger),
		syncer.WithMaxFailures(settings.MaxFailures),
		syncer.WithPageSize(settings.PageSize))
	a.planner = engine.NewPlanner(st)
	return a, nil
}

// newReplicator builds a replicator recording history to the app sinks
// and to any extra appenders.
func (a *app) newReplicator(extra ...eventlog.Appender[model.Status]) *engine.Replicator {
	history := a.history
	if len(extra) > 0 {
		history = eventlog.Tee(append([]eventlog.Appender[model.Status]{history}, extra...)...)
	}
	return engine.New(a.registry, a.syncer, history,
		engine.WithLogger(a.logger),
		engine.WithWorkers(a.settings.Workers),
		engine.WithDrainTimeout(a.settings.DrainTimeout),
		engine.WithPollInterval(a.settings.PollInterval))
}

// replication looks up a configured replication by id.
func (a *app) replication(id string) (model.Replication, error) {
	if a.topology == nil {
		return model.Replication{}, errors.New("topology not loaded")
	}
	rep, ok := a.topology.Replication(id)
	if !ok {
		return model.Replication{}, fmt.Errorf("unknown replication %q", id)
	}
	return rep, nil
}

// Close releases everything openApp acquired, in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newLogger configures a text handler on w. --verbose lowers the level to
// Debug.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// commandContext returns cmd's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// statusCollector is a history sink that keeps statuses in memory.
type statusCollector struct {
	mu       sync.Mutex
	statuses []model.Status
}

func (c *statusCollector) Append(_ context.Context, st model.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, st)
	return nil
}

func (c *statusCollector) all() []model.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Status(nil), c.statuses...)
}
