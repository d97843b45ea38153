package artifacts

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()
	key := StageArtifactKey("alice", 7, "edit", "chunk_000.wav")

	uri, err := store.Put(ctx, key, strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if uri != URIScheme+key {
		t.Fatalf("uri = %q, want %q", uri, URIScheme+key)
	}

	exists, err := store.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("expected artifact to exist after Put")
	}

	rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("payload = %q", data)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, err = store.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("expected artifact to be gone after Delete")
	}
	// Deleting again is not an error.
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestFSStorePutOverwrites(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, "alice/file.txt", strings.NewReader("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Put(ctx, "alice/file.txt", strings.NewReader("second")); err != nil {
		t.Fatalf("Put again: %v", err)
	}

	rc, err := store.Get(ctx, "alice/file.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "second" {
		t.Fatalf("payload = %q, want latest write", data)
	}
}

func TestFSStoreGetMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	_, err = store.Get(context.Background(), "alice/absent.wav")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Get missing = %v, want fs.ErrNotExist", err)
	}
}

func TestFSStoreConfinesKeysToRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewFSStore(root)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	outside := filepath.Join(filepath.Dir(root), "escape.txt")
	if _, err := store.Put(ctx, "../escape.txt", strings.NewReader("nope")); err == nil {
		if _, statErr := os.Stat(outside); statErr == nil {
			t.Fatalf("traversal key escaped the root to %s", outside)
		}
	}
	// The cleaned key lands inside the root regardless of the dot segments.
	exists, err := store.Exists(ctx, "escape.txt")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("expected cleaned key to resolve under the root")
	}

	if _, err := store.Put(ctx, "", strings.NewReader("nope")); err == nil {
		t.Fatal("expected empty key to be rejected")
	}
	if _, err := store.Put(ctx, "/..", strings.NewReader("nope")); err == nil {
		t.Fatal("expected root-collapsing key to be rejected")
	}
}

func TestFSStoreHonorsContext(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "alice/file.txt", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Put with cancelled context = %v", err)
	}
	if _, err := store.Exists(ctx, "alice/file.txt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Exists with cancelled context = %v", err)
	}
}

func TestKeyHelpers(t *testing.T) {
	if got := StageArtifactKey("alice", 12, "transcribe", "transcript.json"); got != "alice/episodes/12/transcribe/transcript.json" {
		t.Fatalf("StageArtifactKey = %q", got)
	}
	if got := FinalKey("alice", 12, "final.wav"); got != "alice/episodes/12/final/final.wav" {
		t.Fatalf("FinalKey = %q", got)
	}
	if got := TemplateKey("alice", "weekly"); got != "alice/templates/weekly.json" {
		t.Fatalf("TemplateKey = %q", got)
	}

	key, err := URIToKey("artifact://alice/episodes/12/final/final.wav")
	if err != nil {
		t.Fatalf("URIToKey: %v", err)
	}
	if key != "alice/episodes/12/final/final.wav" {
		t.Fatalf("key = %q", key)
	}
	if KeyToURI(key) != "artifact://alice/episodes/12/final/final.wav" {
		t.Fatalf("KeyToURI = %q", KeyToURI(key))
	}

	if _, err := URIToKey("file:///tmp/x.wav"); err == nil {
		t.Fatal("expected unsupported scheme to be rejected")
	}
	if _, err := URIToKey("artifact://"); err == nil {
		t.Fatal("expected empty key to be rejected")
	}
}

func TestMediaAssetResolve(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(src, []byte("samples"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	asset, err := StoreFile(ctx, store, "alice/music/clip.wav", src)
	if err != nil {
		t.Fatalf("StoreFile: %v", err)
	}
	if asset.URI != "artifact://alice/music/clip.wav" {
		t.Fatalf("asset uri = %q", asset.URI)
	}

	// While the local copy survives, Resolve returns it untouched.
	path, err := asset.Resolve(ctx, store, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != src {
		t.Fatalf("path = %q, want local copy %q", path, src)
	}

	// After losing the local copy, Resolve re-materializes from the store.
	if err := os.Remove(src); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	workDir := t.TempDir()
	path, err = asset.Resolve(ctx, store, workDir)
	if err != nil {
		t.Fatalf("Resolve after loss: %v", err)
	}
	if filepath.Dir(path) != workDir {
		t.Fatalf("path = %q, want file under %q", path, workDir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "samples" {
		t.Fatalf("materialized payload = %q", data)
	}
}
