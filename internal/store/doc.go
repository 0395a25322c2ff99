// Package store is the local execution journal of an installation.
//
// The journal is a SQLite database at <root>/journal.db with two tables:
//   - runs: one row per operation (sync, add, undo) that ran the scheduler
//   - executions: one row per record per scheduler step, keyed by the
//     step's logical sequence number
//
// Ordering uses seq, never timestamps. Timestamps are informational.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
