// Package cql builds and evaluates catalog query expressions.
//
// Expressions use a fully bracketed grammar understood by the catalogs this
// module replicates between:
//
//	[ "title" = 'alpha' ]
//	[ "metacard.version.action" like 'Deleted*' ]
//	[ metacard.modified after 2024-05-01T12:00:00.000Z ]
//	[ "registry.local.registry-identity-node" IS NULL ]
//	[ NOT <expr> ]
//	[ <expr> AND <expr> AND ... ]
//	[ <expr> OR <expr> OR ... ]
//
// The builder functions are pure and never reorder operands. Parse turns an
// expression back into an Expr tree that can be evaluated against a record's
// attributes, which is how local catalog nodes answer queries.
package cql
