// Package chunker splits long recordings into bounded-duration chunks aligned
// to transcript token gaps, edits each chunk under a bounded worker pool, and
// reassembles the results strictly in original order with sample-count
// accounting across seams.
package chunker
