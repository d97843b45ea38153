package audio

import (
	"math"
	"testing"

	"mixdown/internal/transcript"
)

func constantClip(frames, sampleRate, channels, amplitude int) *Clip {
	clip := NewClip(frames, sampleRate, channels)
	for i := range clip.Data {
		clip.Data[i] = amplitude
	}
	return clip
}

func TestDBToGain(t *testing.T) {
	if got := DBToGain(0); got != 1 {
		t.Fatalf("DBToGain(0) = %v, want 1", got)
	}
	if got := DBToGain(-6); math.Abs(got-0.5012) > 0.001 {
		t.Fatalf("DBToGain(-6) = %v, want ~0.5012", got)
	}
}

func TestGainClamps(t *testing.T) {
	clip := constantClip(4, 48000, 1, 30000)
	clip.Gain(2)
	for i, v := range clip.Data {
		if v != sampleMax {
			t.Fatalf("Data[%d] = %d, want clamp at %d", i, v, sampleMax)
		}
	}
}

func TestFadeInOut(t *testing.T) {
	clip := constantClip(10, 48000, 1, 1000)
	clip.FadeIn(4)
	if clip.Data[0] != 0 {
		t.Fatalf("first sample = %d, want 0", clip.Data[0])
	}
	if clip.Data[5] != 1000 {
		t.Fatalf("sample after ramp = %d, want 1000", clip.Data[5])
	}

	clip = constantClip(10, 48000, 1, 1000)
	clip.FadeOut(4)
	if clip.Data[9] != 0 {
		t.Fatalf("last sample = %d, want 0", clip.Data[9])
	}
	if clip.Data[4] != 1000 {
		t.Fatalf("sample before ramp = %d, want 1000", clip.Data[4])
	}
}

func TestJoinDeclickPreservesFrameSum(t *testing.T) {
	clips := []*Clip{
		constantClip(4800, 48000, 1, 500),
		constantClip(2400, 48000, 1, 500),
		constantClip(1200, 48000, 1, 500),
	}
	joined, err := JoinDeclick(clips, 10)
	if err != nil {
		t.Fatalf("JoinDeclick: %v", err)
	}
	if joined.Frames() != 8400 {
		t.Fatalf("Frames = %d, want 8400", joined.Frames())
	}
	// Seam ramps touch the edges only.
	if joined.Data[0] != 500 {
		t.Fatalf("first sample = %d, want untouched 500", joined.Data[0])
	}
	if joined.Data[4800] != 0 {
		t.Fatalf("sample at seam start = %d, want faded to 0", joined.Data[4800])
	}
}

func TestJoinDeclickFormatMismatch(t *testing.T) {
	clips := []*Clip{
		constantClip(100, 48000, 1, 1),
		constantClip(100, 44100, 1, 1),
	}
	if _, err := JoinDeclick(clips, 5); err == nil {
		t.Fatal("JoinDeclick accepted mismatched sample rates")
	}
}

func TestCutSpansExactAccounting(t *testing.T) {
	// One second of audio, remove 200ms.
	clip := constantClip(48000, 48000, 1, 400)
	cut, err := CutSpans(clip, []transcript.Span{{StartMs: 100, EndMs: 300}}, 5)
	if err != nil {
		t.Fatalf("CutSpans: %v", err)
	}
	if cut.Frames() != 48000-9600 {
		t.Fatalf("Frames = %d, want %d", cut.Frames(), 48000-9600)
	}
}

func TestCutSpansNoSpans(t *testing.T) {
	clip := constantClip(1000, 48000, 1, 400)
	cut, err := CutSpans(clip, nil, 5)
	if err != nil {
		t.Fatalf("CutSpans: %v", err)
	}
	if cut.Frames() != 1000 {
		t.Fatalf("Frames = %d, want 1000", cut.Frames())
	}
	cut.Data[0] = 9999
	if clip.Data[0] != 400 {
		t.Fatal("CutSpans returned a view instead of a copy")
	}
}

func TestCutSpansClampsOutOfRange(t *testing.T) {
	clip := constantClip(4800, 48000, 1, 400)
	cut, err := CutSpans(clip, []transcript.Span{{StartMs: -50, EndMs: 50}, {StartMs: 90, EndMs: 5000}}, 0)
	if err != nil {
		t.Fatalf("CutSpans: %v", err)
	}
	// Kept audio is [50,90)ms.
	if cut.Frames() != 40*48 {
		t.Fatalf("Frames = %d, want %d", cut.Frames(), 40*48)
	}
}

func TestOverlayNeverExtends(t *testing.T) {
	base := constantClip(100, 48000, 1, 100)
	src := constantClip(500, 48000, 1, 50)
	base.Overlay(src, 80, 1)
	if base.Frames() != 100 {
		t.Fatalf("Frames = %d, want 100", base.Frames())
	}
	if base.Data[79] != 100 {
		t.Fatalf("sample before overlay = %d, want 100", base.Data[79])
	}
	if base.Data[80] != 150 {
		t.Fatalf("mixed sample = %d, want 150", base.Data[80])
	}
}

func TestOverlayMonoIntoStereo(t *testing.T) {
	base := NewClip(10, 48000, 2)
	src := constantClip(10, 48000, 1, 200)
	base.Overlay(src, 0, 0.5)
	if base.Data[0] != 100 || base.Data[1] != 100 {
		t.Fatalf("stereo overlay = [%d %d], want [100 100]", base.Data[0], base.Data[1])
	}
}

func TestLoopToFrames(t *testing.T) {
	src := NewClip(3, 48000, 1)
	src.Data = []int{1, 2, 3}

	looped := src.LoopToFrames(7)
	want := []int{1, 2, 3, 1, 2, 3, 1}
	for i, v := range want {
		if looped.Data[i] != v {
			t.Fatalf("looped = %v, want %v", looped.Data, want)
		}
	}

	trimmed := src.LoopToFrames(2)
	if trimmed.Frames() != 2 || trimmed.Data[1] != 2 {
		t.Fatalf("trimmed = %v", trimmed.Data)
	}
}

func TestTrimTrailingSilence(t *testing.T) {
	clip := NewClip(48000, 48000, 1)
	for i := 0; i < 24000; i++ {
		clip.Data[i] = 1000
	}

	trimmed := TrimTrailingSilence(clip, 100, 100)
	// Last loud frame is 23999; keep 100ms beyond it.
	want := 24000 + 4800
	if trimmed.Frames() != want {
		t.Fatalf("Frames = %d, want %d", trimmed.Frames(), want)
	}
}

func TestTrimTrailingSilenceAllQuiet(t *testing.T) {
	clip := NewClip(1000, 48000, 1)
	trimmed := TrimTrailingSilence(clip, 100, 100)
	if trimmed.Frames() != 1000 {
		t.Fatalf("Frames = %d, want 1000 for an all-quiet clip", trimmed.Frames())
	}
}

func TestSliceMs(t *testing.T) {
	clip := constantClip(48000, 48000, 2, 7)
	part := clip.SliceMs(250, 750)
	if part.Frames() != 24000 {
		t.Fatalf("Frames = %d, want 24000", part.Frames())
	}
	if part.Channels != 2 {
		t.Fatalf("Channels = %d, want 2", part.Channels)
	}
}
