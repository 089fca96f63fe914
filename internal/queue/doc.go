// Package queue persists generation jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, idempotent
// enqueueing, the atomic claim of pending jobs by workers, partial status
// transitions, stuck-job recovery, and aggregate statistics. Jobs capture
// attempts, runtime, operator ratings, prompt variant hashes, and serialized
// task parameters so batch tooling can coordinate without additional state.
//
// The claim transaction is the single serialization point that prevents two
// workers from processing one job. Everything else is last-writer-wins.
//
// The database is treated as transient storage for in-flight batches rather
// than a long-term archive. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package queue
