package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemStore keeps blobs under baseDir/<category>/<key>. Category
// directories are created on first use.
type FilesystemStore struct {
	baseDir string
}

// NewFilesystemStore creates a filesystem-backed blob store rooted at baseDir.
func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage base dir must not be empty")
	}
	for _, c := range []Category{CategoryFiles, CategoryImages, CategoryAudio} {
		if err := os.MkdirAll(filepath.Join(baseDir, string(c)), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return &FilesystemStore{baseDir: baseDir}, nil
}

// Save implements Store.
func (s *FilesystemStore) Save(_ context.Context, category Category, filename string, data []byte) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidBlobKey, category)
	}
	key := blobKey(filename)
	dst := filepath.Join(s.baseDir, string(category), key)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return key, nil
}

// Load implements Store.
func (s *FilesystemStore) Load(_ context.Context, category Category, key string) ([]byte, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidBlobKey, category)
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, string(category), key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, category, key)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Compile-time check
var _ Store = (*FilesystemStore)(nil)
