// Package sqlite provides the SQLite-backed progress store: the live
// progress record, pre-migration backups and the migration and rollback
// history.
package sqlite
