// Package workflow advances pending episodes through assembly.
//
// The Manager polls the queue for pending episodes, claims them into
// processing, and hands them to the registered assembly handler while a
// heartbeat loop keeps the claim fresh. Stale claims left behind by a
// crashed daemon are reclaimed before new work is picked up. Failures are
// classified through the services error taxonomy and persisted on the
// episode, never swallowed.
package workflow
