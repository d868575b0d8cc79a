// Package store owns all durable state: tracked files, processing logs,
// rollback points, and user preferences, persisted in a single SQLite
// database.
//
// Mutations happen inside a unit-of-work Scope: one transaction per logical
// operation, audit fields stamped on commit, and domain events queued on the
// scope dispatched to the event sink only after a successful commit. Reads
// default-filter soft-deleted rows; explicit include-inactive variants exist
// for audit surfaces.
package store
