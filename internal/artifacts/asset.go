package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MediaAsset pairs an ephemeral working path with a durable store URI.
// The URI is authoritative: any asset consumed by a later stage must remain
// resolvable from it even when the local path is gone after a restart.
type MediaAsset struct {
	LocalPath string `json:"local_path,omitempty"`
	URI       string `json:"uri"`
}

// Resolve returns a readable local path for the asset, re-materializing it
// from the durable store into workDir when the ephemeral copy is missing.
func (a *MediaAsset) Resolve(ctx context.Context, store Store, workDir string) (string, error) {
	if a.LocalPath != "" {
		if _, err := os.Stat(a.LocalPath); err == nil {
			return a.LocalPath, nil
		}
	}
	key, err := URIToKey(a.URI)
	if err != nil {
		return "", err
	}
	src, err := store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer src.Close()

	local := filepath.Join(workDir, filepath.Base(key))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure work dir: %w", err)
	}
	dst, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("create local copy: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(local)
		return "", fmt.Errorf("materialize %s: %w", a.URI, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close local copy: %w", err)
	}
	a.LocalPath = local
	return local, nil
}

// StoreFile uploads a local file under key and returns the resulting asset.
func StoreFile(ctx context.Context, store Store, key, localPath string) (MediaAsset, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return MediaAsset{}, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer file.Close()

	uri, err := store.Put(ctx, key, file)
	if err != nil {
		return MediaAsset{}, err
	}
	return MediaAsset{LocalPath: localPath, URI: uri}, nil
}
