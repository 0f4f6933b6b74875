// Package model defines the data shared by the replication engine: jobs,
// run statuses, metadata records, per-item replication state and filters.
//
// Job identity is (config id, source, destination, direction). Identity
// components are NFC-normalised so that visually identical site names
// written with different Unicode compositions collapse to the same job.
package model
