// Package services provides the shared error taxonomy and context plumbing
// used across pipeline stages, plus client subpackages for the external
// transcription and speech-synthesis collaborators.
package services
