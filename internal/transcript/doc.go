// Package transcript models word-timestamped transcripts and the timestamp
// arithmetic the pipeline performs when audio is sliced or cut.
package transcript
