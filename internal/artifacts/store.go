package artifacts

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// URIScheme prefixes every durable artifact reference.
const URIScheme = "artifact://"

// Store is the narrow contract the pipeline holds against durable storage.
type Store interface {
	// Put writes the artifact under key and returns its durable URI.
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	// Get opens the artifact stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether an artifact is present under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the artifact under key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// StageArtifactKey builds the canonical key for an intermediate stage output.
func StageArtifactKey(ownerID string, episodeID int64, stage, name string) string {
	return fmt.Sprintf("%s/episodes/%d/%s/%s", ownerID, episodeID, stage, name)
}

// FinalKey builds the canonical key for published output.
func FinalKey(ownerID string, episodeID int64, name string) string {
	return fmt.Sprintf("%s/episodes/%d/final/%s", ownerID, episodeID, name)
}

// TemplateKey builds the canonical key for a stored template document.
func TemplateKey(ownerID, templateID string) string {
	return fmt.Sprintf("%s/templates/%s.json", ownerID, templateID)
}

// URIToKey converts a durable URI back to its store key.
func URIToKey(uri string) (string, error) {
	if !strings.HasPrefix(uri, URIScheme) {
		return "", fmt.Errorf("artifact uri %q: unsupported scheme", uri)
	}
	key := strings.TrimPrefix(uri, URIScheme)
	if key == "" {
		return "", fmt.Errorf("artifact uri %q: empty key", uri)
	}
	return key, nil
}

// KeyToURI converts a store key to its durable URI form.
func KeyToURI(key string) string {
	return URIScheme + key
}
