package mixer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"mixdown/internal/artifacts"
	"mixdown/internal/audio"
	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/services"
	"mixdown/internal/template"
	"mixdown/internal/transcript"
)

// StageName identifies mixer artifacts in the artifact store.
const StageName = "mix"

// Synthesizer renders speech audio for template segments that carry text
// instead of a stored asset. Implementations return complete WAV bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Interval is a half-open frame range in the assembled episode that a single
// template segment occupies.
type Interval struct {
	Type       template.SegmentType
	StartFrame int
	EndFrame   int
}

// Result is the assembled episode with the segment layout that produced it.
type Result struct {
	Clip      *audio.Clip
	Intervals []Interval
	Warnings  []string
}

// Mixer assembles the final episode audio from a template: segment layout
// first, then music overlays.
type Mixer struct {
	cfg    config.Assembly
	store  artifacts.Store
	synth  Synthesizer
	logger *slog.Logger
}

func New(cfg config.Assembly, store artifacts.Store, synth Synthesizer, logger *slog.Logger) *Mixer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mixer{cfg: cfg, store: store, synth: synth, logger: logger}
}

// Mix lays the template segments around the edited content clip and applies
// the template's music rules. The returned clip's frame count equals the sum
// of the segment frame counts; overlays never extend the episode.
func (m *Mixer) Mix(ctx context.Context, workDir string, content *audio.Clip, tr *transcript.Transcript, tpl *template.Template) (*Result, error) {
	clips, intervals, err := m.layout(ctx, workDir, content, tpl)
	if err != nil {
		return nil, err
	}

	joined, err := audio.JoinDeclick(clips, m.cfg.SeamFadeMillis)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, StageName, "join", "joining template segments", err)
	}
	layoutFrames := joined.Frames()

	res := &Result{Clip: joined, Intervals: intervals}
	for i, rule := range tpl.MusicRules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if warn := m.applyRule(ctx, workDir, res, tr, intervals, rule); warn != "" {
			m.logger.Warn("music rule skipped",
				logging.Int("rule", i),
				logging.String("asset", rule.AssetURI),
				logging.String("reason", warn))
			res.Warnings = append(res.Warnings, warn)
		}
	}

	if res.Clip.Frames() != layoutFrames {
		return nil, services.Wrap(services.ErrUnknown, StageName, "mix",
			fmt.Sprintf("overlay changed episode length: %d frames before music, %d after", layoutFrames, res.Clip.Frames()), nil)
	}
	return res, nil
}

// layout materializes every segment as a clip and records where each lands
// in the concatenated episode.
func (m *Mixer) layout(ctx context.Context, workDir string, content *audio.Clip, tpl *template.Template) ([]*audio.Clip, []Interval, error) {
	clips := make([]*audio.Clip, 0, len(tpl.Segments))
	intervals := make([]Interval, 0, len(tpl.Segments))
	cursor := 0
	for _, seg := range tpl.Segments {
		var clip *audio.Clip
		var err error
		switch {
		case seg.Type == template.SegmentContent:
			clip = content
		case seg.Synthesized():
			clip, err = m.synthesizeSegment(ctx, seg, content)
		default:
			clip, err = m.decodeAsset(ctx, workDir, seg.AssetURI)
		}
		if err != nil {
			return nil, nil, services.Wrap(services.ErrValidation, StageName, "layout",
				fmt.Sprintf("materializing %s segment", seg.Type), err)
		}
		if err := content.CompatibleWith(clip); err != nil {
			return nil, nil, services.Wrap(services.ErrValidation, StageName, "layout",
				fmt.Sprintf("%s segment format mismatch", seg.Type), err)
		}
		clips = append(clips, clip)
		intervals = append(intervals, Interval{Type: seg.Type, StartFrame: cursor, EndFrame: cursor + clip.Frames()})
		cursor += clip.Frames()
	}
	return clips, intervals, nil
}

func (m *Mixer) synthesizeSegment(ctx context.Context, seg template.Segment, content *audio.Clip) (*audio.Clip, error) {
	if m.synth == nil {
		return nil, fmt.Errorf("segment requires speech synthesis but no synthesizer is configured")
	}
	raw, err := m.synth.Synthesize(ctx, seg.TTSText, seg.TTSVoice)
	if err != nil {
		return nil, err
	}
	clip, err := audio.DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding synthesized audio: %w", err)
	}
	return conform(clip, content), nil
}

func (m *Mixer) decodeAsset(ctx context.Context, workDir, uri string) (*audio.Clip, error) {
	asset := artifacts.MediaAsset{URI: uri}
	path, err := asset.Resolve(ctx, m.store, workDir)
	if err != nil {
		return nil, err
	}
	return audio.DecodeWAVFile(path)
}

// applyRule overlays one music rule onto every matching interval. A missing
// or unreadable asset degrades to a warning so the episode still assembles.
func (m *Mixer) applyRule(ctx context.Context, workDir string, res *Result, tr *transcript.Transcript, intervals []Interval, rule template.MusicRule) string {
	music, err := m.decodeAsset(ctx, workDir, rule.AssetURI)
	if err != nil {
		return fmt.Sprintf("music asset %s unavailable: %v", rule.AssetURI, err)
	}
	if err := res.Clip.CompatibleWith(music); err != nil {
		return fmt.Sprintf("music asset %s: %v", rule.AssetURI, err)
	}

	rate := res.Clip.SampleRate
	gain := audio.DBToGain(rule.VolumeDB)
	for _, target := range rule.Targets() {
		for _, iv := range intervals {
			if iv.Type != target {
				continue
			}
			start := iv.StartFrame + secondsToFrames(rule.StartOffsetS, rate)
			end := iv.EndFrame - secondsToFrames(rule.EndOffsetS, rate)
			if end <= start {
				continue
			}
			bed := music.LoopToFrames(end - start)
			bed.Gain(gain)
			bed.FadeIn(secondsToFrames(rule.FadeInS, rate))
			bed.FadeOut(secondsToFrames(rule.FadeOutS, rate))
			if rule.DuckDB < 0 && iv.Type == template.SegmentContent && tr != nil {
				duckUnderSpeech(bed, tr, start-iv.StartFrame, audio.DBToGain(rule.DuckDB))
			}
			res.Clip.Overlay(bed, start, 1.0)
		}
	}
	return ""
}

// duckUnderSpeech attenuates the music bed wherever the transcript has a
// spoken word. bedOffset is the bed's first frame expressed in the content
// segment's local timeline.
func duckUnderSpeech(bed *audio.Clip, tr *transcript.Transcript, bedOffset int, duckGain float64) {
	rate := bed.SampleRate
	ramp := rate / 100 // 10ms ramp either side of a word
	for _, w := range tr.Words {
		start := int(w.StartMs)*rate/1000 - bedOffset - ramp
		end := int(w.EndMs)*rate/1000 - bedOffset + ramp
		if end <= 0 || start >= bed.Frames() {
			continue
		}
		if start < 0 {
			start = 0
		}
		if end > bed.Frames() {
			end = bed.Frames()
		}
		scaleFrames(bed, start, end, duckGain)
	}
}

func scaleFrames(c *audio.Clip, startFrame, endFrame int, gain float64) {
	lo := startFrame * c.Channels
	hi := endFrame * c.Channels
	for i := lo; i < hi && i < len(c.Data); i++ {
		c.Data[i] = int(float64(c.Data[i]) * gain)
	}
}

func secondsToFrames(s float64, rate int) int {
	if s <= 0 {
		return 0
	}
	return int(s * float64(rate))
}

// conform resamples nothing; it only adapts channel count when a mono TTS
// clip meets stereo content by duplicating the single channel.
func conform(clip, ref *audio.Clip) *audio.Clip {
	if ref == nil || clip.Channels == ref.Channels || clip.Channels != 1 {
		return clip
	}
	out := audio.NewClip(clip.Frames(), clip.SampleRate, ref.Channels)
	for f := 0; f < clip.Frames(); f++ {
		for ch := 0; ch < ref.Channels; ch++ {
			out.Data[f*ref.Channels+ch] = clip.Data[f]
		}
	}
	return out
}
