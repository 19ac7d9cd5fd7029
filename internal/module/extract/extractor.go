// Package extract holds the content extractors invoked after a quota
// admission. Each extractor is a thin wrapper over an existing library or
// service; none of them is ever consulted before the guard admits a request.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/echoverse/server/internal/module/quota"
)

// Module errors.
var (
	// ErrUnsupportedFormat is returned for file types no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoExtractor is returned when a feature has no registered extractor.
	ErrNoExtractor = errors.New("no extractor registered for feature")
)

// Extractor converts an uploaded blob into text.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, filename string, data []byte) (string, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	return f(ctx, filename, data)
}

// Registry maps features to their extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[quota.Feature]Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[quota.Feature]Extractor)}
}

// Register binds an extractor to a feature, replacing any previous binding.
func (r *Registry) Register(feature quota.Feature, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[feature] = e
}

// Get returns the extractor for a feature.
func (r *Registry) Get(feature quota.Feature) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[feature]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoExtractor, feature)
	}
	return e, nil
}

// Extract runs the feature's extractor against the blob.
func (r *Registry) Extract(ctx context.Context, feature quota.Feature, filename string, data []byte) (string, error) {
	e, err := r.Get(feature)
	if err != nil {
		return "", err
	}
	return e.Extract(ctx, filename, data)
}
