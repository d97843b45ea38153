package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// WordToken is a single transcribed word with millisecond timestamps.
type WordToken struct {
	Text      string `json:"text"`
	StartMs   int64  `json:"start_ms"`
	EndMs     int64  `json:"end_ms"`
	SpeakerID string `json:"speaker_id,omitempty"`
}

// Duration returns the token length in milliseconds.
func (w WordToken) Duration() int64 {
	return w.EndMs - w.StartMs
}

// Transcript is an ordered sequence of word tokens.
// Tokens are strictly non-overlapping and monotonically increasing in StartMs.
type Transcript struct {
	Words []WordToken `json:"words"`
}

// New constructs a transcript and validates its ordering invariant.
func New(words []WordToken) (*Transcript, error) {
	tr := &Transcript{Words: words}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	return tr, nil
}

// Validate checks that tokens are non-overlapping and strictly ordered.
func (t *Transcript) Validate() error {
	var prevEnd int64 = -1
	var prevStart int64 = -1
	for i, w := range t.Words {
		if w.EndMs < w.StartMs {
			return fmt.Errorf("token %d (%q): end %dms before start %dms", i, w.Text, w.EndMs, w.StartMs)
		}
		if w.StartMs <= prevStart && i > 0 {
			return fmt.Errorf("token %d (%q): start %dms does not increase", i, w.Text, w.StartMs)
		}
		if w.StartMs < prevEnd {
			return fmt.Errorf("token %d (%q): start %dms overlaps previous token ending %dms", i, w.Text, w.StartMs, prevEnd)
		}
		prevStart = w.StartMs
		prevEnd = w.EndMs
	}
	return nil
}

// Len returns the token count.
func (t *Transcript) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Words)
}

// DurationMs returns the end timestamp of the final token, or zero when empty.
func (t *Transcript) DurationMs() int64 {
	if t == nil || len(t.Words) == 0 {
		return 0
	}
	return t.Words[len(t.Words)-1].EndMs
}

// Text joins the token texts with single spaces.
func (t *Transcript) Text() string {
	parts := make([]string, 0, len(t.Words))
	for _, w := range t.Words {
		if trimmed := strings.TrimSpace(w.Text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// Slice returns the tokens fully contained in [startMs, endMs), re-anchored
// so the window start becomes zero.
func (t *Transcript) Slice(startMs, endMs int64) *Transcript {
	out := &Transcript{}
	for _, w := range t.Words {
		if w.StartMs < startMs || w.EndMs > endMs {
			continue
		}
		out.Words = append(out.Words, WordToken{
			Text:      w.Text,
			StartMs:   w.StartMs - startMs,
			EndMs:     w.EndMs - startMs,
			SpeakerID: w.SpeakerID,
		})
	}
	return out
}

// Shift returns a copy with every timestamp moved by offsetMs.
func (t *Transcript) Shift(offsetMs int64) *Transcript {
	out := &Transcript{Words: make([]WordToken, len(t.Words))}
	for i, w := range t.Words {
		w.StartMs += offsetMs
		w.EndMs += offsetMs
		out.Words[i] = w
	}
	return out
}

// Append concatenates other onto t. Callers are responsible for shifting
// other to the correct offset first.
func (t *Transcript) Append(other *Transcript) {
	if other == nil {
		return
	}
	t.Words = append(t.Words, other.Words...)
}

// Encode writes the transcript as JSON.
func (t *Transcript) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(t)
}

// Decode reads a transcript from JSON and validates it.
func Decode(r io.Reader) (*Transcript, error) {
	var tr Transcript
	if err := json.NewDecoder(r).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transcript: %w", err)
	}
	return &tr, nil
}
