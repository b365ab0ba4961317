// Package storage provides archival backends for scraped artifacts:
// preview imagery always, and optional off-site mirroring of finished
// downloads.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Archiver stores one named artifact.
type Archiver interface {
	Store(ctx context.Context, key string, reader io.Reader) error
}

// LocalStorage writes artifacts under a base directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a local archiver rooted at basePath.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Store writes one artifact, creating intermediate directories.
func (s *LocalStorage) Store(ctx context.Context, key string, reader io.Reader) error {
	path := filepath.Join(s.basePath, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
