package chunker

import (
	"mixdown/internal/transcript"
)

// Chunk is one planned slice of the source recording.
type Chunk struct {
	Index   int
	StartMs int64
	EndMs   int64
}

// Duration returns the chunk length in milliseconds.
func (c Chunk) Duration() int64 {
	return c.EndMs - c.StartMs
}

// Plan splits [0, totalMs) into chunks of roughly targetMs each, moving every
// boundary to the nearest token gap so no word spans a chunk seam. Boundaries
// that collapse onto each other after snapping are dropped.
func Plan(tr *transcript.Transcript, totalMs, targetMs int64) []Chunk {
	if totalMs <= 0 {
		return nil
	}
	if targetMs <= 0 || targetMs >= totalMs {
		return []Chunk{{Index: 0, StartMs: 0, EndMs: totalMs}}
	}

	var bounds []int64
	for cut := targetMs; cut < totalMs; cut += targetMs {
		snapped := tr.NearestGap(cut)
		if snapped <= 0 || snapped >= totalMs {
			continue
		}
		if len(bounds) > 0 && snapped <= bounds[len(bounds)-1] {
			continue
		}
		bounds = append(bounds, snapped)
	}

	chunks := make([]Chunk, 0, len(bounds)+1)
	var start int64
	for _, b := range bounds {
		chunks = append(chunks, Chunk{Index: len(chunks), StartMs: start, EndMs: b})
		start = b
	}
	chunks = append(chunks, Chunk{Index: len(chunks), StartMs: start, EndMs: totalMs})
	return chunks
}
