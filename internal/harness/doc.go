// Package harness runs end-to-end replication scenarios.
//
// A scenario declares a topology in CUE, edits site catalogs, runs
// replications through the real planner, replicator and syncer, and then
// checks the resulting catalogs, tracked items and run history. Sites are
// bolt catalogs in a scratch directory, wrapped in fault-injecting
// adapters, and every component reads the same deterministic clock.
//
// # Scenario Format
//
//	name: pull_basic
//	description: "Records flow from source to destination"
//	topology: |
//	  site: a: {name: "Site A", location: "a.db"}
//	  site: b: {name: "Site B", location: "b.db"}
//	  replication: "a-b": {
//	    source: "a", destination: "b", direction: "PULL"
//	    query: "[ \"title\" like '*' ]"
//	  }
//	setup:
//	  - put: {site: a, id: doc-1, title: "first"}
//	steps:
//	  - sync: a-b
//	    expect:
//	      state: SUCCESS
//	      pull: {replicated: 1, failed: 0}
//	  - fault: {site: b, op: create, error: "disk full"}
//	  - advance: 1h
//	assertions:
//	  - type: origins
//	    site: b
//	    id: doc-1
//	    origins: ["Site A"]
//
// # Step Types
//
//   - put: store a record on a site as a local edit
//   - remove: delete a record, leaving a deletion revision
//   - advance: move the clock forward
//   - fault: make an adapter operation fail, optionally as unavailable
//   - reject: make writes of some ids report non-success
//   - clear: remove faults and rejections from a site
//   - sync: plan and run a replication to completion
//
// # Assertion Types
//
//   - record_present, record_absent: live record lookup on a site
//   - origins: the record's origin names, compared as a set
//   - item: tracked item status and failure count
//   - history_count: recorded runs, optionally per replication and state
//   - query_contains: a query issued to a site contains a fragment
//
// # Golden Files
//
// Run produces a Snapshot of runs, items and site records without
// timestamps. RunWithGolden compares it with goldie fixtures in
// testdata/golden; RunDir compares each scenario file with
// golden/<name>.golden next to it.
package harness
