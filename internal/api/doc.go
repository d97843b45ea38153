// Package api defines the transport-friendly episode DTOs shared by the
// IPC surface and the CLI presentation layer.
package api
