// Package logging provides slog-based structured logging for mixdown,
// including typed attribute helpers, standardized field keys, and
// context-derived logger augmentation shared by the daemon and CLI.
package logging
