package transcript

import "sort"

// Span is a half-open interval [StartMs, EndMs) of episode time.
type Span struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// Duration returns the span length in milliseconds.
func (s Span) Duration() int64 {
	return s.EndMs - s.StartMs
}

// MergeSpans sorts spans and merges overlapping or adjacent intervals.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartMs < sorted[j].StartMs })

	merged := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.StartMs <= last.EndMs {
			if s.EndMs > last.EndMs {
				last.EndMs = s.EndMs
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Complement returns the kept intervals of [0, totalMs) after removing spans.
// The input spans must already be merged and clamped by the caller.
func Complement(spans []Span, totalMs int64) []Span {
	var kept []Span
	var cursor int64
	for _, s := range spans {
		start := s.StartMs
		if start < cursor {
			start = cursor
		}
		if start > cursor {
			kept = append(kept, Span{StartMs: cursor, EndMs: start})
		}
		if s.EndMs > cursor {
			cursor = s.EndMs
		}
	}
	if cursor < totalMs {
		kept = append(kept, Span{StartMs: cursor, EndMs: totalMs})
	}
	return kept
}

// RemovedBefore returns the total removed duration strictly before ms.
// The spans must be merged; ms must not fall inside a removed span.
func RemovedBefore(spans []Span, ms int64) int64 {
	var removed int64
	for _, s := range spans {
		if s.EndMs <= ms {
			removed += s.Duration()
			continue
		}
		break
	}
	return removed
}

// ApplyCuts re-derives the transcript after the given spans are removed from
// the audio. Tokens fully inside a removed span are dropped; tokens straddling
// a boundary are clipped; surviving timestamps shift left by the cumulative
// removed duration. The removal spans are merged first, so callers may pass
// overlapping spans.
func (t *Transcript) ApplyCuts(spans []Span) *Transcript {
	merged := MergeSpans(spans)
	if len(merged) == 0 {
		out := &Transcript{Words: make([]WordToken, len(t.Words))}
		copy(out.Words, t.Words)
		return out
	}

	out := &Transcript{}
	for _, w := range t.Words {
		start, end := clipToKept(merged, w.StartMs, w.EndMs)
		if start >= end {
			continue
		}
		out.Words = append(out.Words, WordToken{
			Text:      w.Text,
			StartMs:   start - RemovedBefore(merged, start),
			EndMs:     end - RemovedBefore(merged, end),
			SpeakerID: w.SpeakerID,
		})
	}
	return out
}

// clipToKept narrows [start, end) so neither endpoint lands inside a removed span.
func clipToKept(merged []Span, start, end int64) (int64, int64) {
	for _, s := range merged {
		if s.StartMs <= start && start < s.EndMs {
			start = s.EndMs
		}
		if s.StartMs < end && end <= s.EndMs {
			end = s.StartMs
		}
		if s.StartMs >= start && s.EndMs <= end {
			// Removed span fully inside the token: attribute the token to its
			// leading portion.
			end = s.StartMs
		}
	}
	return start, end
}

// NearestGap returns the timestamp of the token gap closest to targetMs,
// so a chunk boundary never splits a word. When the transcript is empty the
// target itself is returned.
func (t *Transcript) NearestGap(targetMs int64) int64 {
	if t == nil || len(t.Words) == 0 {
		return targetMs
	}
	best := targetMs
	bestDist := int64(-1)
	consider := func(ms int64) {
		dist := ms - targetMs
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = ms
			bestDist = dist
		}
	}
	consider(0)
	for _, w := range t.Words {
		consider(w.EndMs)
	}
	return best
}
