package editing

import (
	"testing"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/testsupport"
)

func testAssemblyConfig() config.Assembly {
	cfg := config.Default()
	cfg.Assembly.MarkerPhrases = []string{"cut that"}
	cfg.Assembly.SeamFadeMillis = 10
	return cfg.Assembly
}

func TestApplyWithoutMarkersIsIdentity(t *testing.T) {
	engine := NewEngine(testAssemblyConfig(), logging.NewNop())
	clip := testsupport.ToneClip(t, 2000, 48000, 500)
	tr := testsupport.Words(t, "hello", 0, 400, "world", 500, 900)

	res, err := engine.Apply(clip, tr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Clip != clip {
		t.Fatal("clip should pass through unchanged with zero markers")
	}
	if res.Transcript != tr {
		t.Fatal("transcript should pass through unchanged with zero markers")
	}
	if len(res.Removed) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("Removed = %+v Warnings = %+v, want none", res.Removed, res.Warnings)
	}
}

func TestApplyRemovesMarkedSpan(t *testing.T) {
	engine := NewEngine(testAssemblyConfig(), logging.NewNop())
	clip := testsupport.ToneClip(t, 4000, 48000, 500)
	tr := testsupport.Words(t,
		"intro.", 0, 500,
		"oops", 1000, 1400,
		"cut", 1500, 1900,
		"that", 2000, 2400,
		"outro", 3000, 3400,
	)

	res, err := engine.Apply(clip, tr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Removed) != 1 {
		t.Fatalf("Removed = %+v, want one span", res.Removed)
	}
	removed := res.Removed[0]
	if removed.StartMs != 500 || removed.EndMs != 2400 {
		t.Fatalf("removed span = %+v, want [500,2400)", removed)
	}

	wantFrames := clip.Frames() - clip.FrameAtMs(2400) + clip.FrameAtMs(500)
	if res.Clip.Frames() != wantFrames {
		t.Fatalf("edited frames = %d, want %d", res.Clip.Frames(), wantFrames)
	}

	if res.Transcript.Len() != 2 {
		t.Fatalf("edited transcript = %+v, want intro and outro", res.Transcript.Words)
	}
	outro := res.Transcript.Words[1]
	if outro.Text != "outro" || outro.StartMs != 1100 || outro.EndMs != 1500 {
		t.Fatalf("outro token = %+v, want [1100,1500)", outro)
	}
	if err := res.Transcript.Validate(); err != nil {
		t.Fatalf("Validate after edit: %v", err)
	}
}

func TestApplySurfacesPolicyWarnings(t *testing.T) {
	cfg := testAssemblyConfig()
	cfg.FixedCutSeconds = 2
	engine := NewEngine(cfg, logging.NewNop())

	clip := testsupport.ToneClip(t, 4000, 48000, 500)
	tr := testsupport.Words(t,
		"one", 0, 400,
		"two", 500, 900,
		"three", 1000, 1400,
		"four", 1500, 1900,
		"five", 2000, 2400,
		"cut", 2500, 2900,
		"that", 3000, 3400,
	)

	res, err := engine.Apply(clip, tr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %+v, want one fallback warning", res.Warnings)
	}
	if res.Warnings[0].Message == "" {
		t.Fatal("warning message is empty")
	}
}

func TestPolicySelection(t *testing.T) {
	cfg := testAssemblyConfig()
	cfg.CutPolicy = "fixed"
	if got := NewEngine(cfg, logging.NewNop()).PolicyName(); got != "fixed" {
		t.Fatalf("PolicyName = %q, want fixed", got)
	}

	cfg.CutPolicy = "sentence"
	if got := NewEngine(cfg, logging.NewNop()).PolicyName(); got != "sentence" {
		t.Fatalf("PolicyName = %q, want sentence", got)
	}
}
