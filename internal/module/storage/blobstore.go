// Package storage persists uploaded blobs. Two backends exist: a local
// filesystem tree for single-node deployments and an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Module errors.
var (
	ErrBlobNotFound   = errors.New("blob not found")
	ErrInvalidBlobKey = errors.New("invalid blob key")
)

// Category partitions blobs by upload kind. Each category maps to its own
// directory or key prefix.
type Category string

const (
	CategoryFiles  Category = "files"
	CategoryImages Category = "images"
	CategoryAudio  Category = "audio"
)

// Valid reports whether the category is one of the known partitions.
func (c Category) Valid() bool {
	switch c {
	case CategoryFiles, CategoryImages, CategoryAudio:
		return true
	}
	return false
}

// Store is the blob persistence interface.
type Store interface {
	// Save writes the blob and returns its key within the category.
	Save(ctx context.Context, category Category, filename string, data []byte) (string, error)

	// Load reads a blob back by the key Save returned.
	Load(ctx context.Context, category Category, key string) ([]byte, error)
}

// blobKey builds a collision-free key for an upload, keeping the original
// extension so downloads and extractors can route on it. The original base
// name is folded in for operator readability but sanitized first.
func blobKey(filename string) string {
	base := sanitizeName(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	return uuid.NewString() + "_" + base
}

// sanitizeName strips path separators and traversal sequences from a client
// supplied file name. Keys produced from the result never escape their
// category prefix.
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "upload"
	}
	return name
}

// validateKey rejects keys that could escape the category prefix. Load
// accepts only keys that Save could have produced: no separators and not a
// relative path element. Inner ".." sequences are legal — file names like
// "report..v2.pdf" survive sanitization and cannot traverse without a
// separator.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidBlobKey, key)
	}
	return nil
}
