// Package store provides SQLite-backed persistence for replication
// bookkeeping.
//
// Three tables are kept:
//   - replication_items: per (metadata id, source, destination) outcome and
//     failure counter, the item tracker consulted by every run
//   - replication_status: append-only history of completed job executions
//   - filters: named query fragments scoped to a site
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Schema changes are goose migrations embedded from migrations/.
//
// Timestamps are stored as fixed-width UTC text so that lexical order
// matches chronological order.
package store
