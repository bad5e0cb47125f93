// Package store defines the append-only reading store contract and the
// error taxonomy shared by every backend.
//
// The store is an append-only log of sensor readings:
//   - Insert/InsertBatch: append rows, ids assigned by the store
//   - Window: bounded recent slice, oldest to newest
//   - Latest: most recent reading (ErrNoReadings when empty)
//
// # Concurrency contract
//
// One writer plus any number of concurrent readers. Readers never observe
// a partially written row and never block the writer indefinitely. How
// that is achieved is backend-specific: the SQLite backend uses WAL mode
// with a bounded busy timeout, the Badger backend serves reads from LSM
// snapshots.
//
// # Error taxonomy
//
//   - *UnavailableError: backing medium cannot be opened or created
//   - *WriteError: one insert failed; the producer logs and continues
//   - *ReadError: one query failed; the scheduler renders "data
//     unavailable" and continues
//   - ErrNoReadings: the well-defined "none" result for Latest
//
// Backends are constructed by their own packages (sqlite.Open,
// badger.Open); construction doubles as idempotent schema initialization.
package store
