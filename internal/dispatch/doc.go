// Package dispatch hands assembly requests to the daemon and absorbs
// daemon unavailability.
//
// A failed hand-off is never surfaced to the submitter as an error: the
// request is persisted as a queued assembly job and the episode keeps
// reporting queued progress. The poller redrives queued jobs on a cadence
// that backs off as jobs age, and abandons jobs that have waited too long
// by failing their episodes with an operator-visible message.
package dispatch
