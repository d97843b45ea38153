package audio

import (
	"errors"
	"fmt"
)

// Clip is a decoded slab of interleaved PCM samples.
type Clip struct {
	Data       []int
	SampleRate int
	Channels   int
}

// NewClip allocates a silent clip of the given frame count.
func NewClip(frames, sampleRate, channels int) *Clip {
	return &Clip{
		Data:       make([]int, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Frames returns the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c == nil || c.Channels == 0 {
		return 0
	}
	return len(c.Data) / c.Channels
}

// DurationMs returns the clip duration in milliseconds.
func (c *Clip) DurationMs() int64 {
	if c == nil || c.SampleRate == 0 {
		return 0
	}
	return int64(c.Frames()) * 1000 / int64(c.SampleRate)
}

// FrameAtMs converts a millisecond offset to a frame index, clamped to the clip.
func (c *Clip) FrameAtMs(ms int64) int {
	frame := int(ms * int64(c.SampleRate) / 1000)
	if frame < 0 {
		frame = 0
	}
	if frame > c.Frames() {
		frame = c.Frames()
	}
	return frame
}

// Clone returns an independent copy of the clip.
func (c *Clip) Clone() *Clip {
	data := make([]int, len(c.Data))
	copy(data, c.Data)
	return &Clip{Data: data, SampleRate: c.SampleRate, Channels: c.Channels}
}

// SliceMs copies out the samples in [startMs, endMs).
func (c *Clip) SliceMs(startMs, endMs int64) *Clip {
	start := c.FrameAtMs(startMs) * c.Channels
	end := c.FrameAtMs(endMs) * c.Channels
	if end < start {
		end = start
	}
	data := make([]int, end-start)
	copy(data, c.Data[start:end])
	return &Clip{Data: data, SampleRate: c.SampleRate, Channels: c.Channels}
}

// CompatibleWith reports whether two clips share a sample format.
func (c *Clip) CompatibleWith(other *Clip) error {
	if other == nil {
		return errors.New("nil clip")
	}
	if c.SampleRate != other.SampleRate || c.Channels != other.Channels {
		return fmt.Errorf("format mismatch: %dHz/%dch vs %dHz/%dch",
			c.SampleRate, c.Channels, other.SampleRate, other.Channels)
	}
	return nil
}
