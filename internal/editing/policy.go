package editing

import (
	"strings"

	"mixdown/internal/transcript"
)

// Warning records a non-fatal policy fallback for job diagnostics.
type Warning struct {
	Marker  Marker
	Message string
}

// CutPolicy decides the audio span removed for one matched marker. The exact
// heuristic is deliberately pluggable; both built-in policies include the
// marker utterance itself in the removed span.
type CutPolicy interface {
	Name() string
	SpanFor(tr *transcript.Transcript, m Marker) (transcript.Span, *Warning)
}

// FixedWindowPolicy removes a fixed-duration window ending at the marker.
type FixedWindowPolicy struct {
	WindowMs int64
}

func (p FixedWindowPolicy) Name() string { return "fixed" }

func (p FixedWindowPolicy) SpanFor(_ *transcript.Transcript, m Marker) (transcript.Span, *Warning) {
	start := m.EndMs - p.WindowMs
	if start > m.StartMs {
		start = m.StartMs
	}
	if start < 0 {
		start = 0
	}
	return transcript.Span{StartMs: start, EndMs: m.EndMs}, nil
}

// SentenceBoundaryPolicy removes everything from the previous sentence
// boundary through the marker. A boundary is a token ending with terminal
// punctuation or a silence gap of at least GapMs. When no boundary exists
// within FallbackMs before the marker, the policy falls back to a fixed
// window and reports a warning.
type SentenceBoundaryPolicy struct {
	GapMs      int64
	FallbackMs int64
}

func (p SentenceBoundaryPolicy) Name() string { return "sentence" }

func (p SentenceBoundaryPolicy) SpanFor(tr *transcript.Transcript, m Marker) (transcript.Span, *Warning) {
	earliest := m.EndMs - p.FallbackMs
	if earliest < 0 {
		earliest = 0
	}

	for i := m.StartToken - 1; i >= 0; i-- {
		w := tr.Words[i]
		if w.EndMs < earliest {
			break
		}
		boundary := endsSentence(w.Text)
		if !boundary && i+1 < len(tr.Words) {
			boundary = tr.Words[i+1].StartMs-w.EndMs >= p.GapMs
		}
		if boundary {
			return transcript.Span{StartMs: w.EndMs, EndMs: m.EndMs}, nil
		}
	}
	if m.StartToken == 0 {
		// The marker opens the transcript; the recording start is the boundary.
		return transcript.Span{StartMs: 0, EndMs: m.EndMs}, nil
	}

	fallback := FixedWindowPolicy{WindowMs: p.FallbackMs}
	span, _ := fallback.SpanFor(tr, m)
	return span, &Warning{
		Marker:  m,
		Message: "no sentence boundary within window; removed fixed-duration span instead",
	}
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(word), "\"')]")
	return strings.HasSuffix(trimmed, ".") ||
		strings.HasSuffix(trimmed, "?") ||
		strings.HasSuffix(trimmed, "!")
}
