// Package journal is an append-only SQLite log of committed remote changes.
//
// Every commit of the remote document store becomes one Record. Reading
// the records back in seq order and applying them to an empty store
// rebuilds the same tree, document IDs and targets included.
//
// # Ordering and identity
//
//   - seq is the remote's logical clock. It is the primary key and the only
//     ordering used; wall time is never stored.
//   - fingerprint is the canonical hash of the whole record, seq included.
//     Appending the same record twice is a no-op; appending a different
//     record under a used seq is an error.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - one open connection, SQLite has a single writer anyway
package journal
