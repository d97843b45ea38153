package testsupport

import (
	"context"
	"testing"

	"mixdown/internal/artifacts"
	"mixdown/internal/config"
	"mixdown/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenArtifacts opens a filesystem artifact store rooted in the test
// config's artifact directory.
func MustOpenArtifacts(t testing.TB, cfg *config.Config) *artifacts.FSStore {
	t.Helper()

	store, err := artifacts.NewFSStore(cfg.Paths.ArtifactDir)
	if err != nil {
		t.Fatalf("artifacts.NewFSStore: %v", err)
	}
	return store
}

// NewEpisode creates a pending episode for tests using the provided store.
func NewEpisode(t testing.TB, store *queue.Store, userID, title string) *queue.Episode {
	t.Helper()

	episode, err := store.NewEpisode(context.Background(), userID, title, "tpl-default", "artifact://"+userID+"/episodes/src/source.wav")
	if err != nil {
		t.Fatalf("store.NewEpisode: %v", err)
	}
	return episode
}
