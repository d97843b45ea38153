package services

import (
	"context"
	"errors"
	"testing"
)

func TestWrapPreservesSentinelAndCause(t *testing.T) {
	cause := errors.New("unix socket refused")
	err := Wrap(ErrWorkerUnavailable, "dispatch", "submit", "daemon hand-off failed", cause)

	if !errors.Is(err, ErrWorkerUnavailable) {
		t.Fatalf("error %v lost its sentinel", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("error %v lost its cause", err)
	}
	want := "worker unavailable: dispatch: submit: daemon hand-off failed: unix socket refused"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapDefaults(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrUnknown) {
		t.Fatalf("nil marker should default to unknown, got %v", err)
	}
	if err.Error() != "unknown error: service failure" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		kind      ErrorKind
		transient bool
		fatal     bool
	}{
		{"storage", Wrap(ErrTransientStorage, "artifacts", "put", "write failed", nil), KindTransientStorage, true, false},
		{"connection", ErrTransientConnection, KindTransientConnection, true, false},
		{"worker", ErrWorkerUnavailable, KindWorkerUnavailable, false, false},
		{"validation", Wrap(ErrValidation, "template", "load", "unknown segment", nil), KindValidation, false, true},
		{"partial", ErrPartialStage, KindPartialStage, false, true},
		{"plain", errors.New("boom"), KindUnknown, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Kind(tc.err); got != tc.kind {
				t.Errorf("Kind = %s, want %s", got, tc.kind)
			}
			if got := IsTransient(tc.err); got != tc.transient {
				t.Errorf("IsTransient = %v, want %v", got, tc.transient)
			}
			if got := IsFatal(tc.err); got != tc.fatal {
				t.Errorf("IsFatal = %v, want %v", got, tc.fatal)
			}
		})
	}

	if IsFatal(nil) {
		t.Fatal("nil error must not be fatal")
	}
}

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()

	if _, ok := EpisodeIDFromContext(ctx); ok {
		t.Fatal("bare context should carry no episode id")
	}

	ctx = WithEpisodeID(ctx, 42)
	ctx = WithStage(ctx, "assembly")
	ctx = WithRequestID(ctx, "req-1")

	if id, ok := EpisodeIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("episode id = %d, %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "assembly" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if req, ok := RequestIDFromContext(ctx); !ok || req != "req-1" {
		t.Fatalf("request id = %q, %v", req, ok)
	}

	// Empty values do not annotate.
	ctx = WithStage(context.Background(), "")
	if _, ok := StageFromContext(ctx); ok {
		t.Fatal("empty stage should not annotate the context")
	}
}
