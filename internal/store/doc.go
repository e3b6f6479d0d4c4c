// Package store provides record-store implementations: Postgres for the
// shared research database, SQLite for single-machine runs, and an
// in-memory provider for tests. All three share the same merge-on-conflict
// upsert semantics: existing non-null fields are never overwritten by an
// incoming null.
package store
