package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mixdown/internal/services"
)

// FSStore is a filesystem-backed Store rooted at a single directory.
// It stands in for the production object store behind the same contract.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed and returns the store.
func NewFSStore(root string) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("artifact store root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Root returns the backing directory.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) pathFor(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", errors.New("artifact key must not be empty")
	}
	return filepath.Join(s.root, cleaned), nil
}

// Put writes the artifact atomically: a temp file in the same directory is
// renamed into place so readers never observe partial writes.
func (s *FSStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransientStorage, "artifacts", "put", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return "", services.Wrap(services.ErrTransientStorage, "artifacts", "put", key, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return "", services.Wrap(services.ErrTransientStorage, "artifacts", "put", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", services.Wrap(services.ErrTransientStorage, "artifacts", "put", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", services.Wrap(services.ErrTransientStorage, "artifacts", "put", key, err)
	}
	return KeyToURI(key), nil
}

// Get opens the artifact stored under key.
func (s *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("artifact %s: %w", key, fs.ErrNotExist)
		}
		return nil, services.Wrap(services.ErrTransientStorage, "artifacts", "get", key, err)
	}
	return file, nil
}

// Exists reports whether an artifact is present under key.
func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, services.Wrap(services.ErrTransientStorage, "artifacts", "exists", key, err)
}

// Delete removes the artifact under key. Missing keys are not an error.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrTransientStorage, "artifacts", "delete", key, err)
	}
	return nil
}
