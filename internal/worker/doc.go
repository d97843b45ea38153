// Package worker implements the assembly stage handler.
//
// The runtime composes the substages of episode assembly: source fetch,
// transcription, marker-driven editing over bounded-concurrency chunks,
// template mixing, and finalization. Each substage records the canonical
// artifact URI it produced on the episode row before the next substage
// starts, so a crashed run can resume from durable state instead of
// repeating completed work. Cancellation is checked at substage
// boundaries.
package worker
