package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/eventlog"
	"github.com/roach88/replicate/internal/model"
	"github.com/roach88/replicate/internal/syncer"
)

// Defaults for Replicator options.
const (
	DefaultWorkers      = 1
	DefaultDrainTimeout = 30 * time.Second
	DefaultPollInterval = time.Second
	DefaultStopGrace    = 5 * time.Second
)

// Replicator schedules and executes replication jobs.
//
// Jobs are submitted from any goroutine and executed by a fixed pool of
// workers in FIFO order of first enqueue. A job identity is pending at most
// once and active at most once; a duplicate found active at dequeue time is
// dropped.
//
// Thread-safety model:
//   - Submit(), PendingJobs(), ActiveJobs(), ActiveStatuses(): safe from any goroutine
//   - Start(): called once
//   - Shutdown(): safe to call more than once; later calls return the first report
//
// Every execution that starts ends with its job removed from the active set
// and its Status appended to history, whatever happened inside.
type Replicator struct {
	factory adapter.Factory
	syncer  *syncer.Syncer
	history eventlog.Appender[model.Status]
	ids     IDGenerator
	now     func() time.Time
	logger  *slog.Logger
	queue   *jobQueue

	workers      int
	drainTimeout time.Duration
	pollInterval time.Duration
	stopGrace    time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	stopOnce sync.Once
	report   DrainReport
}

// Option configures a Replicator.
type Option func(*Replicator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Replicator) { r.logger = l }
}

// WithClock sets the time source used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Replicator) { r.now = now }
}

// WithIDGenerator sets the status id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Replicator) { r.ids = g }
}

// WithWorkers sets the worker pool size. Values below 1 are ignored.
//
// Each worker constructs its own adapters per job, so adapters are never
// shared, but two jobs touching the same site may contend for it.
func WithWorkers(n int) Option {
	return func(r *Replicator) {
		if n >= 1 {
			r.workers = n
		}
	}
}

// WithDrainTimeout bounds how long Shutdown waits for work to finish.
func WithDrainTimeout(d time.Duration) Option {
	return func(r *Replicator) {
		if d > 0 {
			r.drainTimeout = d
		}
	}
}

// WithPollInterval sets how often Shutdown checks for remaining work.
func WithPollInterval(d time.Duration) Option {
	return func(r *Replicator) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithStopGrace bounds how long Shutdown waits for workers to exit after
// cancelling them. A worker stuck in a call that ignores its context is
// abandoned once the grace period ends.
func WithStopGrace(d time.Duration) Option {
	return func(r *Replicator) {
		if d > 0 {
			r.stopGrace = d
		}
	}
}

// New creates a Replicator. Jobs are not executed until Start is called.
func New(factory adapter.Factory, s *syncer.Syncer, history eventlog.Appender[model.Status], opts ...Option) *Replicator {
	r := &Replicator{
		factory:      factory,
		syncer:       s,
		history:      history,
		ids:          UUIDv7Generator{},
		now:          time.Now,
		logger:       slog.Default(),
		queue:        newJobQueue(),
		workers:      DefaultWorkers,
		drainTimeout: DefaultDrainTimeout,
		pollInterval: DefaultPollInterval,
		stopGrace:    DefaultStopGrace,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the worker pool. Workers stop when ctx is cancelled or
// when Shutdown has drained the queue.
func (r *Replicator) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.queue.Closed() {
		return ErrStopped
	}
	if r.started {
		return errors.New("replicator already started")
	}
	r.started = true

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	g, gctx := errgroup.WithContext(runCtx)
	for i := range r.workers {
		g.Go(func() error {
			r.work(gctx, i)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(r.done)
	}()

	r.logger.Info("replicator started", "workers", r.workers)
	return nil
}

// Submit queues job for execution. Submitting a job whose identity is
// already pending is a no-op. Returns ErrStopped after Shutdown.
func (r *Replicator) Submit(job model.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	added, err := r.queue.Enqueue(job)
	if err != nil {
		return err
	}
	if !added {
		r.logger.Debug("job already pending", "job", job.Name(), "key", job.Key().String())
	}
	return nil
}

// PendingJobs returns a snapshot of queued jobs in execution order.
func (r *Replicator) PendingJobs() []model.Job {
	return r.queue.Pending()
}

// ActiveJobs returns a snapshot of executing jobs.
func (r *Replicator) ActiveJobs() []model.Job {
	active := r.queue.Active()
	jobs := make([]model.Job, len(active))
	for i, a := range active {
		jobs[i] = a.job
	}
	return jobs
}

// ActiveStatuses returns snapshots of the statuses of executing jobs.
func (r *Replicator) ActiveStatuses() []model.Status {
	active := r.queue.Active()
	out := make([]model.Status, len(active))
	for i, a := range active {
		out[i] = a.status.snapshot()
	}
	return out
}

// work is the worker loop. It takes jobs until the queue is closed and
// empty or ctx is cancelled.
func (r *Replicator) work(ctx context.Context, id int) {
	logger := r.logger.With("worker", id)
	logger.Debug("worker starting")

	for {
		if ctx.Err() != nil {
			logger.Debug("worker stopping", "reason", ctx.Err())
			return
		}

		a, ok, dup := r.queue.Take(r.newStatus)
		if ok {
			if dup {
				logger.Info("dropping job already in progress", "job", a.job.Name())
				continue
			}
			r.execute(ctx, a)
			continue
		}
		if r.queue.Closed() {
			logger.Debug("worker stopping", "reason", "drained")
			return
		}

		select {
		case <-ctx.Done():
		case <-r.queue.Wait():
		}
	}
}

func (r *Replicator) newStatus(job model.Job) *liveStatus {
	return &liveStatus{st: *model.NewStatus(r.ids.Generate(), job)}
}

// execute runs one job. Cleanup is deferred so that a panic still removes
// the job from the active set and records its status.
func (r *Replicator) execute(ctx context.Context, a *activeJob) {
	job := a.job
	key := job.Key()
	logger := r.logger.With("job", job.Name(), "key", key.String())

	a.status.update(func(s *model.Status) { s.MarkStart(r.now()) })
	logger.Info("job starting", "direction", job.Direction)

	defer func() {
		if v := recover(); v != nil {
			logger.Error("job panicked", "error", NewPanicError(key, v))
			a.status.update(func(s *model.Status) { s.State = model.StateFailure })
		}
		a.status.update(func(s *model.Status) { s.Complete(r.now()) })
		r.queue.Finish(key)

		st := a.status.snapshot()
		if err := r.history.Append(context.WithoutCancel(ctx), st); err != nil {
			logger.Error("failed to record status", "status", st.ID, "error", err)
		}
		logger.Info("job finished",
			"state", st.State,
			"duration", st.Duration,
			"pull_replicated", st.Pull.Replicated,
			"pull_failed", st.Pull.Failed,
			"push_replicated", st.Push.Replicated,
			"push_failed", st.Push.Failed)
	}()

	r.run(ctx, logger, job, a.status)
}

func (r *Replicator) run(ctx context.Context, logger *slog.Logger, job model.Job, live *liveStatus) {
	key := job.Key()

	src, err := r.connect(ctx, job.Source)
	if err != nil {
		r.unavailable(logger, live, key, job.Source, err)
		return
	}
	defer closeNode(logger, job.Source, src)

	dst, err := r.connect(ctx, job.Destination)
	if err != nil {
		r.unavailable(logger, live, key, job.Destination, err)
		return
	}
	defer closeNode(logger, job.Destination, dst)

	if job.Direction.Pulls() {
		live.update(func(s *model.Status) { s.State = model.StatePullInProgress })
		resp := r.syncer.Sync(ctx, src, dst, job)
		live.update(func(s *model.Status) {
			s.Pull = resp.Counts
			s.State = resp.State
		})
		if resp.State != model.StateSuccess {
			logPhaseFailure(logger, key, model.DirectionPull, resp)
			return
		}
	}

	if job.Direction.Pushes() {
		live.update(func(s *model.Status) { s.State = model.StatePushInProgress })
		resp := r.syncer.Sync(ctx, dst, src, job)
		live.update(func(s *model.Status) {
			s.Push = resp.Counts
			s.State = resp.State
		})
		if resp.State != model.StateSuccess {
			logPhaseFailure(logger, key, model.DirectionPush, resp)
		}
	}
}

// connect builds an adapter for siteID and probes it.
func (r *Replicator) connect(ctx context.Context, siteID string) (adapter.NodeAdapter, error) {
	node, err := r.factory.Create(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if !node.IsAvailable(ctx) {
		_ = node.Close()
		return nil, adapter.Unavailable("available", siteID, nil)
	}
	return node, nil
}

func (r *Replicator) unavailable(logger *slog.Logger, live *liveStatus, key model.JobKey, site string, err error) {
	logger.Warn("site unavailable", "error", NewConnectionError(key, site, err))
	live.update(func(s *model.Status) { s.State = model.StateConnectionUnavailable })
}

func logPhaseFailure(logger *slog.Logger, key model.JobKey, dir model.Direction, resp syncer.Response) {
	if resp.State == model.StateConnectionUnavailable {
		logger.Warn("connection lost", "direction", dir, "error", NewConnectionError(key, "", resp.Err))
		return
	}
	logger.Error("phase failed", "direction", dir, "error", NewQueryError(key, dir, resp.Err))
}

func closeNode(logger *slog.Logger, site string, node adapter.NodeAdapter) {
	if err := node.Close(); err != nil {
		logger.Warn("failed to close adapter", "site", site, "error", err)
	}
}

// DrainReport describes the work left when Shutdown returned.
type DrainReport struct {
	Pending  int
	Active   int
	TimedOut bool
}

// Err returns a DRAIN_TIMEOUT RuntimeError if the drain timed out.
func (d DrainReport) Err() error {
	if !d.TimedOut {
		return nil
	}
	return NewDrainTimeoutError(d.Pending, d.Active)
}

// Shutdown stops accepting jobs and waits for pending and active jobs to
// finish, polling at the configured interval for up to the drain timeout
// or until ctx ends. Workers are then cancelled and given the stop grace
// period to exit. Shutdown never fails and always returns; a drain that
// did not complete is reported with TimedOut set. Later calls return the
// first report.
func (r *Replicator) Shutdown(ctx context.Context) DrainReport {
	r.stopOnce.Do(func() {
		r.report = r.shutdown(ctx)
	})
	return r.report
}

func (r *Replicator) shutdown(ctx context.Context) DrainReport {
	r.queue.Close()

	r.mu.Lock()
	started, cancel := r.started, r.cancel
	r.mu.Unlock()

	var rep DrainReport
	if started {
		rep = r.drain(ctx)
		cancel()

		grace := time.NewTimer(r.stopGrace)
		defer grace.Stop()
		select {
		case <-r.done:
		case <-grace.C:
			rep.Pending, rep.Active = r.queue.Counts()
			rep.TimedOut = true
			r.logger.Warn("abandoning workers that did not exit", "grace", r.stopGrace)
		case <-ctx.Done():
			rep.Pending, rep.Active = r.queue.Counts()
			rep.TimedOut = true
			r.logger.Warn("shutdown returned before workers exited", "error", ctx.Err())
		}
	} else {
		rep.Pending, rep.Active = r.queue.Counts()
		rep.TimedOut = rep.Pending > 0
	}

	if rep.TimedOut {
		r.logger.Warn("shutdown drain timed out", "pending", rep.Pending, "active", rep.Active)
	} else {
		r.logger.Info("replicator stopped")
	}
	return rep
}

func (r *Replicator) drain(ctx context.Context) DrainReport {
	deadline := time.NewTimer(r.drainTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		var rep DrainReport
		rep.Pending, rep.Active = r.queue.Counts()
		if rep.Pending == 0 && rep.Active == 0 {
			return rep
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			rep.TimedOut = true
			return rep
		case <-ctx.Done():
			rep.TimedOut = true
			return rep
		}
	}
}
