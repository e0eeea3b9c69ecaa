package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists objects on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

var _ ObjectStore = (*LocalStorage)(nil)

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./archives"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Put writes data to key, replacing any previous content.
func (s *LocalStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare archive directory: %w", err)
	}

	// Write then rename so a crash never leaves a truncated archive behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write archive object: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit archive object: %w", err)
	}
	return nil
}

// Get reads the object stored at key.
func (s *LocalStorage) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read archive object: %w", err)
	}
	return data, nil
}

// Exists reports whether key has been written.
func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat archive object: %w", err)
	}
}

// Delete removes a stored object if present.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete archive object: %w", err)
	}
	return nil
}

// Path exposes the on-disk location of key.
func (s *LocalStorage) Path(key string) string {
	path, _ := s.resolve(key)
	return path
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}
