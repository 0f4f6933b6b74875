// Package syncer moves records in one direction between two catalog nodes.
//
// A Syncer builds the incremental query for a job, walks the source's
// results page by page and applies each record to the destination as a
// create, update or delete. Every attempt is recorded in the item tracker:
// success clears an item's failure counter and failure increments it.
// Items below the configured failure maximum are retried on every run
// regardless of the watermark.
//
// Per-item failures never abort a run. A lost connection, a failed query
// or a tracker error ends the run early with a terminal state.
package syncer
