package editing

import (
	"strings"

	"mixdown/internal/transcript"
)

// Marker is one matched command phrase within a transcript.
type Marker struct {
	Phrase     string
	StartToken int
	EndToken   int // inclusive
	StartMs    int64
	EndMs      int64
}

// Vocabulary is the set of literal phrases that trigger a cut.
type Vocabulary struct {
	phrases [][]string
	raw     []string
}

// NewVocabulary normalizes and indexes marker phrases. Empty phrases are dropped.
func NewVocabulary(phrases []string) *Vocabulary {
	v := &Vocabulary{}
	for _, phrase := range phrases {
		words := splitNormalized(phrase)
		if len(words) == 0 {
			continue
		}
		v.phrases = append(v.phrases, words)
		v.raw = append(v.raw, strings.Join(words, " "))
	}
	return v
}

// Empty reports whether the vocabulary has no usable phrases.
func (v *Vocabulary) Empty() bool {
	return v == nil || len(v.phrases) == 0
}

// Phrases returns the normalized phrase list for logging.
func (v *Vocabulary) Phrases() []string {
	cp := make([]string, len(v.raw))
	copy(cp, v.raw)
	return cp
}

// Scan finds all non-overlapping marker occurrences in transcript order.
// Longer phrases win at the same starting token.
func (v *Vocabulary) Scan(tr *transcript.Transcript) []Marker {
	if v.Empty() || tr == nil || len(tr.Words) == 0 {
		return nil
	}
	normalized := make([]string, len(tr.Words))
	for i, w := range tr.Words {
		normalized[i] = normalizeWord(w.Text)
	}

	var markers []Marker
	for i := 0; i < len(normalized); {
		best := -1
		bestLen := 0
		for pi, phrase := range v.phrases {
			if len(phrase) > bestLen && matchesAt(normalized, i, phrase) {
				best = pi
				bestLen = len(phrase)
			}
		}
		if best < 0 {
			i++
			continue
		}
		end := i + bestLen - 1
		markers = append(markers, Marker{
			Phrase:     v.raw[best],
			StartToken: i,
			EndToken:   end,
			StartMs:    tr.Words[i].StartMs,
			EndMs:      tr.Words[end].EndMs,
		})
		i = end + 1
	}
	return markers
}

func matchesAt(words []string, at int, phrase []string) bool {
	if at+len(phrase) > len(words) {
		return false
	}
	for j, p := range phrase {
		if words[at+j] != p {
			return false
		}
	}
	return true
}

func splitNormalized(phrase string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(phrase)))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := normalizeWord(f); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// normalizeWord lowercases and strips surrounding punctuation so spoken
// phrases match regardless of the transcription service's formatting.
func normalizeWord(word string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(word)), ".,!?;:\"'()[]")
}
