// Package commit supervises durable writes against the queue database.
//
// SQLite under WAL can still refuse writes transiently (locked database,
// checkpoint contention, a briefly unavailable volume). The supervisor
// retries those with exponential backoff and a connection probe between
// attempts, and converts exhaustion into a deterministic episode error
// instead of leaving state half-written.
package commit
