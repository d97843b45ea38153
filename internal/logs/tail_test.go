package logs

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeLog(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mixdown.log")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthree\nfour\n")

	result, err := Tail(context.Background(), path, Options{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"three", "four"}) {
		t.Fatalf("lines = %v", result.Lines)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if result.Offset != info.Size() {
		t.Fatalf("offset = %d, want end of file %d", result.Offset, info.Size())
	}
}

func TestTailLimitLargerThanFile(t *testing.T) {
	path := writeLog(t, "only\n")

	result, err := Tail(context.Background(), path, Options{Offset: -1, Limit: 50})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"only"}) {
		t.Fatalf("lines = %v", result.Lines)
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := writeLog(t, "first\n")
	ctx := context.Background()

	initial, err := Tail(ctx, path, Options{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := file.WriteString("second\nthird\n"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	file.Close()

	next, err := Tail(ctx, path, Options{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !reflect.DeepEqual(next.Lines, []string{"second", "third"}) {
		t.Fatalf("lines = %v", next.Lines)
	}

	// Nothing new means no lines and an unchanged offset.
	idle, err := Tail(ctx, path, Options{Offset: next.Offset})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(idle.Lines) != 0 || idle.Offset != next.Offset {
		t.Fatalf("idle = %+v", idle)
	}
}

func TestTailHandlesTruncation(t *testing.T) {
	path := writeLog(t, "a long line that will vanish\n")
	ctx := context.Background()

	initial, err := Tail(ctx, path, Options{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, err := Tail(ctx, path, Options{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"fresh"}) {
		t.Fatalf("lines = %v, want restart from the rotated file", result.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")
	result, err := Tail(context.Background(), path, Options{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestTailFollowWaitsForNewLines(t *testing.T) {
	path := writeLog(t, "seed\n")
	ctx := context.Background()

	initial, err := Tail(ctx, path, Options{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	go func() {
		time.Sleep(300 * time.Millisecond)
		file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer file.Close()
		_, _ = file.WriteString("arrived\n")
	}()

	result, err := Tail(ctx, path, Options{Offset: initial.Offset, Follow: true, Wait: 3 * time.Second})
	if err != nil {
		t.Fatalf("Tail follow: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"arrived"}) {
		t.Fatalf("lines = %v", result.Lines)
	}
}

func TestTailFollowHonorsContext(t *testing.T) {
	path := writeLog(t, "seed\n")
	ctx, cancel := context.WithCancel(context.Background())

	initial, err := Tail(ctx, path, Options{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = Tail(ctx, path, Options{Offset: initial.Offset, Follow: true, Wait: 10 * time.Second})
	if err == nil {
		t.Fatal("expected context cancellation to surface")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("follow did not stop on cancellation")
	}
}
