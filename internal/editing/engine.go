package editing

import (
	"log/slog"

	"mixdown/internal/audio"
	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/transcript"
)

// Result carries the edited audio, the re-derived transcript, and the spans
// that were removed from the original timeline.
type Result struct {
	Clip       *audio.Clip
	Transcript *transcript.Transcript
	Removed    []transcript.Span
	Warnings   []Warning
}

// Engine scans for marker phrases and cuts the spans they select.
type Engine struct {
	vocab  *Vocabulary
	policy CutPolicy
	fadeMs int
	logger *slog.Logger
}

// NewEngine builds an engine from assembly configuration.
func NewEngine(cfg config.Assembly, logger *slog.Logger) *Engine {
	var policy CutPolicy
	switch cfg.CutPolicy {
	case "fixed":
		policy = FixedWindowPolicy{WindowMs: int64(cfg.FixedCutSeconds) * 1000}
	default:
		policy = SentenceBoundaryPolicy{
			GapMs:      1500,
			FallbackMs: int64(cfg.FixedCutSeconds) * 1000,
		}
	}
	return &Engine{
		vocab:  NewVocabulary(cfg.MarkerPhrases),
		policy: policy,
		fadeMs: cfg.SeamFadeMillis,
		logger: logging.NewComponentLogger(logger, "editing"),
	}
}

// PolicyName returns the active cut policy identifier.
func (e *Engine) PolicyName() string {
	return e.policy.Name()
}

// Apply edits one clip/transcript pair. With zero markers the inputs are
// returned unchanged, so the output duration and transcript are identical
// to the input's.
func (e *Engine) Apply(clip *audio.Clip, tr *transcript.Transcript) (*Result, error) {
	markers := e.vocab.Scan(tr)
	if len(markers) == 0 {
		return &Result{Clip: clip, Transcript: tr}, nil
	}

	spans := make([]transcript.Span, 0, len(markers))
	var warnings []Warning
	for _, m := range markers {
		span, warning := e.policy.SpanFor(tr, m)
		if warning != nil {
			warnings = append(warnings, *warning)
			e.logger.Warn("cut policy fallback",
				logging.String("marker", m.Phrase),
				logging.Int64("marker_start_ms", m.StartMs),
				logging.String(logging.FieldEventType, "cut_policy_fallback"),
			)
		}
		spans = append(spans, span)
	}
	merged := transcript.MergeSpans(spans)

	edited, err := audio.CutSpans(clip, merged, e.fadeMs)
	if err != nil {
		return nil, err
	}
	remapped := tr.ApplyCuts(merged)

	e.logger.Debug("marker edit applied",
		logging.Int("markers", len(markers)),
		logging.Int("spans", len(merged)),
		logging.Int64("removed_ms", totalDuration(merged)),
	)
	return &Result{
		Clip:       edited,
		Transcript: remapped,
		Removed:    merged,
		Warnings:   warnings,
	}, nil
}

func totalDuration(spans []transcript.Span) int64 {
	var total int64
	for _, s := range spans {
		total += s.Duration()
	}
	return total
}
