package mixer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mixdown/internal/artifacts"
	"mixdown/internal/audio"
	"mixdown/internal/logging"
	"mixdown/internal/template"
	"mixdown/internal/testsupport"
)

func storeWAV(t *testing.T, store artifacts.Store, key string, clip *audio.Clip) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "asset.wav")
	if err := audio.EncodeWAVFile(path, clip); err != nil {
		t.Fatalf("EncodeWAVFile: %v", err)
	}
	asset, err := artifacts.StoreFile(context.Background(), store, key, path)
	if err != nil {
		t.Fatalf("StoreFile: %v", err)
	}
	return asset.URI
}

func wavBytes(t *testing.T, clip *audio.Clip) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tts.wav")
	if err := audio.EncodeWAVFile(path, clip); err != nil {
		t.Fatalf("EncodeWAVFile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return raw
}

type fakeSynth struct {
	raw   []byte
	calls int
}

func (f *fakeSynth) Synthesize(_ context.Context, _, _ string) ([]byte, error) {
	f.calls++
	return f.raw, nil
}

func newTestMixer(t *testing.T, synth Synthesizer) (*Mixer, artifacts.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenArtifacts(t, cfg)
	return New(cfg.Assembly, store, synth, logging.NewNop()), store
}

func TestMixLaysOutSegmentsInOrder(t *testing.T) {
	mixer, store := newTestMixer(t, nil)

	intro := testsupport.ToneClip(t, 500, 48000, 300)
	outro := testsupport.ToneClip(t, 250, 48000, 300)
	content := testsupport.ToneClip(t, 2000, 48000, 600)

	tpl := &template.Template{
		ID: "tpl-1",
		Segments: []template.Segment{
			{Type: template.SegmentIntro, AssetURI: storeWAV(t, store, "u/assets/intro.wav", intro)},
			{Type: template.SegmentContent},
			{Type: template.SegmentOutro, AssetURI: storeWAV(t, store, "u/assets/outro.wav", outro)},
		},
	}

	res, err := mixer.Mix(context.Background(), t.TempDir(), content, nil, tpl)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}

	wantFrames := intro.Frames() + content.Frames() + outro.Frames()
	if res.Clip.Frames() != wantFrames {
		t.Fatalf("frames = %d, want %d", res.Clip.Frames(), wantFrames)
	}
	if len(res.Intervals) != 3 {
		t.Fatalf("intervals = %+v, want 3", res.Intervals)
	}
	contentIv := res.Intervals[1]
	if contentIv.Type != template.SegmentContent {
		t.Fatalf("middle interval type = %s, want content", contentIv.Type)
	}
	if contentIv.StartFrame != intro.Frames() || contentIv.EndFrame != intro.Frames()+content.Frames() {
		t.Fatalf("content interval = %+v", contentIv)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings = %+v, want none", res.Warnings)
	}
}

func TestMixSynthesizedSegment(t *testing.T) {
	tts := testsupport.ToneClip(t, 400, 48000, 200)
	synth := &fakeSynth{}

	mixer, _ := newTestMixer(t, synth)
	synth.raw = wavBytes(t, tts)

	content := testsupport.ToneClip(t, 1000, 48000, 600)
	tpl := &template.Template{
		ID: "tpl-2",
		Segments: []template.Segment{
			{Type: template.SegmentIntro, TTSText: "welcome to the show", TTSVoice: "narrator"},
			{Type: template.SegmentContent},
		},
	}
	res, err := mixer.Mix(context.Background(), t.TempDir(), content, nil, tpl)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if synth.calls != 1 {
		t.Fatalf("synth calls = %d, want 1", synth.calls)
	}
	if res.Clip.Frames() != tts.Frames()+content.Frames() {
		t.Fatalf("frames = %d, want %d", res.Clip.Frames(), tts.Frames()+content.Frames())
	}
}

func TestMixSynthesizedWithoutSynthesizerFails(t *testing.T) {
	mixer, _ := newTestMixer(t, nil)

	content := testsupport.ToneClip(t, 1000, 48000, 600)
	tpl := &template.Template{
		ID: "tpl-3",
		Segments: []template.Segment{
			{Type: template.SegmentIntro, TTSText: "hello"},
			{Type: template.SegmentContent},
		},
	}

	if _, err := mixer.Mix(context.Background(), t.TempDir(), content, nil, tpl); err == nil {
		t.Fatal("Mix succeeded without a synthesizer for a TTS segment")
	}
}

func TestMixMusicOverlayPreservesDuration(t *testing.T) {
	mixer, store := newTestMixer(t, nil)

	music := testsupport.ToneClip(t, 300, 48000, 100)
	content := testsupport.ToneClip(t, 2000, 48000, 600)
	tr := testsupport.Words(t, "hello", 200, 600, "there", 700, 1100)

	tpl := &template.Template{
		ID: "tpl-4",
		Segments: []template.Segment{
			{Type: template.SegmentContent},
		},
		MusicRules: []template.MusicRule{
			{
				AssetURI: storeWAV(t, store, "u/assets/bed.wav", music),
				VolumeDB: -12,
				FadeInS:  0.1,
				FadeOutS: 0.1,
				DuckDB:   -18,
			},
		},
	}

	res, err := mixer.Mix(context.Background(), t.TempDir(), content, tr, tpl)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if res.Clip.Frames() != content.Frames() {
		t.Fatalf("frames = %d, want %d unchanged by overlay", res.Clip.Frames(), content.Frames())
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings = %+v, want none", res.Warnings)
	}

	// The looped bed raises sample values somewhere in the content interval.
	changed := false
	for _, v := range res.Clip.Data {
		if v > 600 {
			changed = true
			break
		}
	}
	if !changed {
		t.Fatal("overlay left the content samples untouched")
	}
}

func TestMixMissingMusicAssetDegradesToWarning(t *testing.T) {
	mixer, _ := newTestMixer(t, nil)

	content := testsupport.ToneClip(t, 1000, 48000, 600)
	tpl := &template.Template{
		ID: "tpl-5",
		Segments: []template.Segment{
			{Type: template.SegmentContent},
		},
		MusicRules: []template.MusicRule{
			{AssetURI: "artifact://u/assets/missing.wav", VolumeDB: -12},
		},
	}

	res, err := mixer.Mix(context.Background(), t.TempDir(), content, nil, tpl)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %+v, want one", res.Warnings)
	}
	if !strings.Contains(res.Warnings[0], "missing.wav") {
		t.Fatalf("warning does not name the asset: %q", res.Warnings[0])
	}
	if res.Clip.Frames() != content.Frames() {
		t.Fatalf("frames = %d, want %d", res.Clip.Frames(), content.Frames())
	}
}

func TestDuckUnderSpeechAttenuatesWords(t *testing.T) {
	bed := testsupport.ToneClip(t, 1000, 48000, 1000)
	tr := testsupport.Words(t, "word", 400, 600)

	duckUnderSpeech(bed, tr, 0, 0.25)

	mid := bed.FrameAtMs(500)
	if bed.Data[mid] != 250 {
		t.Fatalf("ducked sample = %d, want 250", bed.Data[mid])
	}
	early := bed.FrameAtMs(100)
	if bed.Data[early] != 1000 {
		t.Fatalf("sample outside speech = %d, want 1000", bed.Data[early])
	}
}
