// Package store provides SQLite-backed run history for knotfield.
//
// Every completed pipeline run can be recorded as one row of the runs
// table: its parameters (as JSON), the parameter key, the invariant triple
// and the supplementary reductions.
//
// # Ordering
//
// Runs carry a logical sequence number assigned at insert time. All list
// queries order by seq ASC, id ASC COLLATE BINARY, so history reads are
// deterministic regardless of wall time.
//
// # Idempotency
//
// Run ids are unique; writing the same id twice is a no-op.
//
// # Database Configuration
//
// Connection settings travel in the DSN so every pooled connection gets
// them: WAL journal, synchronous=NORMAL, a 5 second busy timeout and
// foreign key enforcement.
//
// The schema version lives in PRAGMA user_version. Open creates missing
// tables and indexes, stamps older files and refuses files stamped by a
// newer binary with ErrSchemaTooNew.
package store
