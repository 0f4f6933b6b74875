package engine

import (
	"sync"

	"github.com/roach88/replicate/internal/model"
)

// activeJob is a job taken for execution together with its live status.
type activeJob struct {
	job    model.Job
	status *liveStatus
}

// jobQueue is the scheduler state: a deduplicating FIFO of pending jobs
// and the set of jobs currently executing, guarded by one mutex so that a
// job is never observed in neither set while moving between them.
//
// The queue is unbounded. Each job identity appears at most once in
// pending and at most once in active.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in worker loops.
type jobQueue struct {
	mu      sync.Mutex
	pending []model.Job
	queued  map[model.JobKey]struct{}
	active  map[model.JobKey]*activeJob
	closed  bool
	signal  chan struct{} // Signals job availability (buffered, size 1)
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		pending: make([]model.Job, 0, 16),
		queued:  make(map[model.JobKey]struct{}),
		active:  make(map[model.JobKey]*activeJob),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds job to the back of the queue unless an identical job is
// already pending. Returns false for a duplicate and ErrStopped once the
// queue is closed.
func (q *jobQueue) Enqueue(job model.Job) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrStopped
	}
	key := job.Key()
	if _, dup := q.queued[key]; dup {
		return false, nil
	}

	q.queued[key] = struct{}{}
	q.pending = append(q.pending, job.Clone())
	q.notify()
	return true, nil
}

// Take removes the front job and marks it active with status. ok is false
// if the queue is empty. dup is true if an identical job was already
// active; the taken job is then dropped rather than activated and is
// returned without a status.
func (q *jobQueue) Take(newStatus func(model.Job) *liveStatus) (_ *activeJob, ok, dup bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, false, false
	}

	job := q.pending[0]
	q.pending[0] = model.Job{}
	if len(q.pending) == 1 {
		q.pending = q.pending[:0]
	} else {
		q.pending = q.pending[1:]
	}
	key := job.Key()
	delete(q.queued, key)

	// Wake another worker for the rest of the queue.
	if len(q.pending) > 0 {
		q.notify()
	}

	if _, running := q.active[key]; running {
		return &activeJob{job: job}, true, true
	}
	a := &activeJob{job: job, status: newStatus(job)}
	q.active[key] = a
	return a, true, false
}

// Finish removes a job from the active set.
func (q *jobQueue) Finish(key model.JobKey) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, key)
}

// notify signals availability without blocking; the buffer of 1
// coalesces signals. Callers hold q.mu.
func (q *jobQueue) notify() {
	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Wait returns a channel that signals when jobs may be available. It is
// closed when the queue is closed.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Counts returns the number of pending and active jobs.
func (q *jobQueue) Counts() (pending, active int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), len(q.active)
}

// Pending returns copies of the pending jobs in queue order.
func (q *jobQueue) Pending() []model.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := make([]model.Job, len(q.pending))
	for i, job := range q.pending {
		jobs[i] = job.Clone()
	}
	return jobs
}

// Active returns copies of the executing jobs.
func (q *jobQueue) Active() []*activeJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*activeJob, 0, len(q.active))
	for _, a := range q.active {
		out = append(out, &activeJob{job: a.job.Clone(), status: a.status})
	}
	return out
}

// Closed reports whether Close has been called.
func (q *jobQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further enqueues and wakes all waiters by closing the
// signal channel. Pending jobs may still be taken.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// liveStatus is a status being mutated by its worker while other
// goroutines read snapshots.
type liveStatus struct {
	mu sync.Mutex
	st model.Status
}

func (l *liveStatus) update(fn func(*model.Status)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.st)
}

func (l *liveStatus) snapshot() model.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st
}
