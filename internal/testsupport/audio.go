package testsupport

import (
	"testing"

	"mixdown/internal/audio"
	"mixdown/internal/transcript"
)

// ToneClip builds a mono clip of the given length filled with a constant
// sample value. Constant amplitude keeps frame accounting assertions easy.
func ToneClip(t testing.TB, ms int, sampleRate int, amplitude int) *audio.Clip {
	t.Helper()

	frames := ms * sampleRate / 1000
	clip := audio.NewClip(frames, sampleRate, 1)
	for i := range clip.Data {
		clip.Data[i] = amplitude
	}
	return clip
}

// Words builds a transcript from (text, startMs, endMs) triples.
func Words(t testing.TB, entries ...any) *transcript.Transcript {
	t.Helper()

	if len(entries)%3 != 0 {
		t.Fatalf("Words requires text, start, end triples; got %d values", len(entries))
	}
	tokens := make([]transcript.WordToken, 0, len(entries)/3)
	for i := 0; i < len(entries); i += 3 {
		tokens = append(tokens, transcript.WordToken{
			Text:    entries[i].(string),
			StartMs: int64(entries[i+1].(int)),
			EndMs:   int64(entries[i+2].(int)),
		})
	}
	tr, err := transcript.New(tokens)
	if err != nil {
		t.Fatalf("transcript.New: %v", err)
	}
	return tr
}
