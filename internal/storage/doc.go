// Package storage persists analysis snapshots in SQLite.
//
// One snapshot is the complete output of an analysis session: the project
// row, its files, their symbols and warnings, and the dependency edges.
// SaveSnapshot replaces the previous snapshot of the same root atomically,
// so readers always see either the old analysis or the new one, never a
// mix.
//
// # Schema
//
// Five tables plus an FTS5 virtual table:
//
//	projects    one row per analyzed root
//	files       per-file metadata, cascade-deleted with the project
//	symbols     persisted canonical symbols, keyed by stable hash ID
//	edges       file-level dependency edges
//	warnings    extraction warnings per file
//	symbols_fts full-text index over names, signatures, and doc comments
//
// Triggers keep symbols_fts in sync with the symbols table, so FTS search
// needs no explicit reindex step.
//
// # Drivers
//
// Two interchangeable SQLite drivers are selected at build time:
//
//   - cgo_sqlite tag: github.com/mattn/go-sqlite3 (CGO, fastest)
//   - default: modernc.org/sqlite (pure Go, no C toolchain)
//
// Both run the same migrations; migration state is tracked in
// schema_version and compared with semantic versioning.
package storage
