package audio

import (
	"math"

	"mixdown/internal/transcript"
)

const (
	sampleMax = 32767
	sampleMin = -32768
)

// DBToGain converts decibels to a linear gain factor.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

func clampSample(v int) int {
	if v > sampleMax {
		return sampleMax
	}
	if v < sampleMin {
		return sampleMin
	}
	return v
}

// Gain scales every sample in place.
func (c *Clip) Gain(linear float64) {
	for i, v := range c.Data {
		c.Data[i] = clampSample(int(math.Round(float64(v) * linear)))
	}
}

// FadeIn applies a linear ramp from silence over the first frames.
func (c *Clip) FadeIn(frames int) {
	total := c.Frames()
	if frames > total {
		frames = total
	}
	for f := 0; f < frames; f++ {
		scale := float64(f) / float64(frames)
		for ch := 0; ch < c.Channels; ch++ {
			i := f*c.Channels + ch
			c.Data[i] = int(math.Round(float64(c.Data[i]) * scale))
		}
	}
}

// FadeOut applies a linear ramp to silence over the last frames.
func (c *Clip) FadeOut(frames int) {
	total := c.Frames()
	if frames > total {
		frames = total
	}
	for f := 0; f < frames; f++ {
		scale := float64(f) / float64(frames)
		frame := total - 1 - f
		for ch := 0; ch < c.Channels; ch++ {
			i := frame*c.Channels + ch
			c.Data[i] = int(math.Round(float64(c.Data[i]) * scale))
		}
	}
}

// framesForMs converts a millisecond duration to a frame count for the clip.
func (c *Clip) framesForMs(ms int) int {
	return ms * c.SampleRate / 1000
}

// JoinDeclick concatenates clips in order, applying a short fade-out/fade-in
// ramp at each seam. The ramps are in place, so the output frame count is
// exactly the sum of the input frame counts.
func JoinDeclick(clips []*Clip, fadeMs int) (*Clip, error) {
	if len(clips) == 0 {
		return nil, nil
	}
	first := clips[0]
	totalFrames := 0
	for _, clip := range clips {
		if err := first.CompatibleWith(clip); err != nil {
			return nil, err
		}
		totalFrames += clip.Frames()
	}

	out := NewClip(totalFrames, first.SampleRate, first.Channels)
	fadeFrames := first.framesForMs(fadeMs)
	cursor := 0
	for i, clip := range clips {
		part := clip.Clone()
		if fadeFrames > 0 {
			if i > 0 {
				part.FadeIn(fadeFrames)
			}
			if i < len(clips)-1 {
				part.FadeOut(fadeFrames)
			}
		}
		copy(out.Data[cursor:], part.Data)
		cursor += len(part.Data)
	}
	return out, nil
}

// CutSpans removes the given spans from the clip, declicking each join.
// Spans are merged and clamped to the clip duration first.
func CutSpans(c *Clip, spans []transcript.Span, fadeMs int) (*Clip, error) {
	total := c.DurationMs()
	clamped := make([]transcript.Span, 0, len(spans))
	for _, s := range spans {
		if s.StartMs < 0 {
			s.StartMs = 0
		}
		if s.EndMs > total {
			s.EndMs = total
		}
		if s.StartMs < s.EndMs {
			clamped = append(clamped, s)
		}
	}
	merged := transcript.MergeSpans(clamped)
	if len(merged) == 0 {
		return c.Clone(), nil
	}

	kept := transcript.Complement(merged, total)
	parts := make([]*Clip, 0, len(kept))
	for _, k := range kept {
		parts = append(parts, c.SliceMs(k.StartMs, k.EndMs))
	}
	if len(parts) == 0 {
		return NewClip(0, c.SampleRate, c.Channels), nil
	}
	return JoinDeclick(parts, fadeMs)
}

// Overlay mixes src into dst starting at frame offset, scaled by gain.
// Mixing stops at the end of dst: an overlay never extends the base clip.
func (c *Clip) Overlay(src *Clip, atFrame int, gain float64) {
	limit := c.Frames()
	for f := 0; f < src.Frames(); f++ {
		target := atFrame + f
		if target >= limit {
			break
		}
		for ch := 0; ch < c.Channels; ch++ {
			srcCh := ch
			if srcCh >= src.Channels {
				srcCh = src.Channels - 1
			}
			v := float64(src.Data[f*src.Channels+srcCh]) * gain
			i := target*c.Channels + ch
			c.Data[i] = clampSample(c.Data[i] + int(math.Round(v)))
		}
	}
}

// LoopToFrames repeats or trims the clip to exactly the requested frame count.
func (c *Clip) LoopToFrames(frames int) *Clip {
	out := NewClip(frames, c.SampleRate, c.Channels)
	if c.Frames() == 0 {
		return out
	}
	srcLen := len(c.Data)
	for i := range out.Data {
		out.Data[i] = c.Data[i%srcLen]
	}
	return out
}

// TrimTrailingSilence drops audio after the last sample louder than floor,
// keeping keepMs of tail beyond it. The transcript is unaffected because only
// audio after the final word can be trimmed by the caller's floor choice.
func TrimTrailingSilence(c *Clip, floor int, keepMs int) *Clip {
	lastLoud := -1
	for f := c.Frames() - 1; f >= 0; f-- {
		for ch := 0; ch < c.Channels; ch++ {
			v := c.Data[f*c.Channels+ch]
			if v < 0 {
				v = -v
			}
			if v > floor {
				lastLoud = f
				break
			}
		}
		if lastLoud >= 0 {
			break
		}
	}
	if lastLoud < 0 {
		return c.Clone()
	}
	end := lastLoud + 1 + c.framesForMs(keepMs)
	if end >= c.Frames() {
		return c.Clone()
	}
	out := NewClip(end, c.SampleRate, c.Channels)
	copy(out.Data, c.Data[:end*c.Channels])
	return out
}
