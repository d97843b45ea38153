// Package editing implements transcript-synchronized marker editing: scanning
// for spoken command phrases, computing the audio spans they remove, cutting
// the audio with declick ramps, and re-deriving a consistent transcript.
package editing
