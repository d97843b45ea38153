// Package ipc exposes daemon control over JSON-RPC on a Unix domain
// socket. The CLI and the dispatcher are its only clients; every call is
// request-response with JSON-friendly payloads defined in types.go.
package ipc
