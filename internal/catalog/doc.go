// Package catalog implements a local catalog node stored in a bbolt file.
//
// Records live in the "records" bucket keyed by id. Deleting a record
// writes a revision (tombstone) to the "revisions" bucket tagged
// "revision" with action "Deleted", so deletions surface to incremental
// queries. Queries are evaluated with the cql package and returned page by
// page in key order.
//
// A node's identity is the title of its registry identity record, the same
// convention remote catalogs use.
package catalog
