// Package daemon coordinates the background services and enforces
// single-instance execution with a file lock.
package daemon
