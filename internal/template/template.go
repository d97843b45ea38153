package template

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mixdown/internal/artifacts"
)

// SegmentType identifies a template slot.
type SegmentType string

const (
	SegmentIntro   SegmentType = "intro"
	SegmentContent SegmentType = "content"
	SegmentOutro   SegmentType = "outro"
)

// ParseSegmentType converts a string into a known SegmentType.
func ParseSegmentType(value string) (SegmentType, bool) {
	normalized := SegmentType(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case SegmentIntro, SegmentContent, SegmentOutro:
		return normalized, true
	}
	return "", false
}

// Segment is a named slot with a concrete audio source: either a static
// asset in the artifact store or a synthesized-speech request.
type Segment struct {
	Type     SegmentType `json:"type"`
	AssetURI string      `json:"asset_uri,omitempty"`
	TTSText  string      `json:"tts_text,omitempty"`
	TTSVoice string      `json:"tts_voice,omitempty"`
}

// Synthesized reports whether the segment audio comes from speech synthesis.
func (s Segment) Synthesized() bool {
	return strings.TrimSpace(s.AssetURI) == "" && strings.TrimSpace(s.TTSText) != ""
}

// MusicRule overlays background music onto one or more segment types.
type MusicRule struct {
	TargetSegmentTypes []SegmentType `json:"target_segment_types"`
	AssetURI           string        `json:"asset_uri"`
	VolumeDB           float64       `json:"volume_db"`
	FadeInS            float64       `json:"fade_in_s"`
	FadeOutS           float64       `json:"fade_out_s"`
	StartOffsetS       float64       `json:"start_offset_s,omitempty"`
	EndOffsetS         float64       `json:"end_offset_s,omitempty"`
	DuckDB             float64       `json:"duck_db,omitempty"`
}

// Targets returns the segment types the rule applies to. An empty list
// defaults to content rather than silently matching nothing.
func (r MusicRule) Targets() []SegmentType {
	if len(r.TargetSegmentTypes) == 0 {
		return []SegmentType{SegmentContent}
	}
	return r.TargetSegmentTypes
}

// Template is an ordered segment layout plus music rules, shared read-only
// across many episodes.
type Template struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Segments   []Segment   `json:"segments"`
	MusicRules []MusicRule `json:"music_rules"`
}

// Validate checks structural requirements before a template is used.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("template: id must not be empty")
	}
	content := 0
	for i, seg := range t.Segments {
		if _, ok := ParseSegmentType(string(seg.Type)); !ok {
			return fmt.Errorf("template %s: segment %d: unknown type %q", t.ID, i, seg.Type)
		}
		if seg.Type == SegmentContent {
			content++
			continue
		}
		if strings.TrimSpace(seg.AssetURI) == "" && strings.TrimSpace(seg.TTSText) == "" {
			return fmt.Errorf("template %s: segment %d: needs an asset or synthesis text", t.ID, i)
		}
	}
	if content != 1 {
		return fmt.Errorf("template %s: exactly one content segment required, found %d", t.ID, content)
	}
	for i, rule := range t.MusicRules {
		if strings.TrimSpace(rule.AssetURI) == "" {
			return fmt.Errorf("template %s: music rule %d: asset_uri must not be empty", t.ID, i)
		}
		for _, target := range rule.TargetSegmentTypes {
			if _, ok := ParseSegmentType(string(target)); !ok {
				return fmt.Errorf("template %s: music rule %d: unknown target %q", t.ID, i, target)
			}
		}
	}
	return nil
}

// Load fetches and validates a template document from the artifact store.
func Load(ctx context.Context, store artifacts.Store, ownerID, templateID string) (*Template, error) {
	key := artifacts.TemplateKey(ownerID, templateID)
	r, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", templateID, err)
	}
	defer r.Close()

	var tpl Template
	if err := json.NewDecoder(r).Decode(&tpl); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", templateID, err)
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return &tpl, nil
}
