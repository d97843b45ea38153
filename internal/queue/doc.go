// Package queue persists episodes and queued assembly jobs in SQLite.
//
// The store is the single durable source of truth for episode lifecycle
// state. Status transitions are validated here so that no caller can move
// an episode backwards from a published state, and heartbeat bookkeeping
// lets the daemon reclaim work orphaned by a crash.
package queue
