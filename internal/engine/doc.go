// Package engine schedules and executes replication jobs.
//
// ARCHITECTURE:
//
// Scheduling:
// Jobs enter a deduplicating FIFO queue through Submit. A fixed pool of
// workers takes jobs one at a time. The pending queue and the active set
// share one lock, so a job identity is pending at most once and active at
// most once. A job found active at dequeue time is dropped, not requeued.
//
// Execution Flow:
// 1. Worker takes a job and creates its live Status (PENDING)
// 2. Source and destination adapters are built and probed
// 3. PULL phase: syncer.Sync(source, destination) when the direction pulls
// 4. PUSH phase: syncer.Sync(destination, source) after a successful PULL
// 5. Cleanup: job leaves the active set and its Status is appended to history
//
// Step 5 is deferred and runs on every exit path, including panics.
//
// Shutdown:
// Shutdown closes the queue to new jobs and polls until pending and active
// work drains or the drain timeout passes. Workers are then cancelled and
// abandoned if they do not exit within the stop grace period. A
// drain that times out is reported, never returned as an error.
//
// Planning:
// Planner turns configured replications into jobs: the query is the OR of
// the replication query and the source site's active filters, and the
// watermark is the start of the last successful run.
package engine
