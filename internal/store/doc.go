// Package store persists bot state in SQLite.
//
// # Tables
//
//   - app_data: named JSON documents. OpenCell binds one document to a
//     guard.Cell so every released write guard saves the value.
//   - command_log: one row per command invocation, written by the stats
//     component and read back by the "stats recent" command.
//
// # SQLite Configuration
//
// The store uses modernc.org/sqlite (no cgo) with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Parent directories of the database file are created on open.
//
// # Testing
//
// NewMockStore returns an in-memory Store for unit tests. Use
// NewSQLiteStore(filepath.Join(t.TempDir(), "bot.db")) for tests that need
// real SQL.
package store
