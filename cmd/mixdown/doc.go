// Command mixdown is the operator CLI for the mixdown assembly daemon.
// It talks to a running daemon over the unix control socket and falls
// back to direct queue database access for read-only commands when the
// daemon is down.
package main
