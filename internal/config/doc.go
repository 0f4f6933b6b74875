// Package config loads process settings and the replication topology.
//
// Settings come from a YAML file (strict: unknown keys are errors), then a
// .env file, then REPLICATE_* environment variables, in increasing
// precedence.
//
// The topology is a directory of CUE files declaring sites, filters and
// replications. Files are unified with an embedded schema before decoding,
// so type and enum errors carry CUE source positions:
//
//	package topology
//
//	site: "site-a": {kind: "bolt", location: "data/a.db"}
//	site: "site-b": {kind: "bolt", location: "data/b.db"}
//
//	filter: reports: {site: "site-a", name: "Reports", query: "[ \"title\" like 'report*' ]"}
//
//	replication: "a-b": {source: "site-a", destination: "site-b", direction: "BOTH"}
package config
