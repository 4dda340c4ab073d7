// Package memory provides an in-memory contact store for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

// Store keeps persisted results in a slice.
type Store struct {
	mu      sync.Mutex
	results []extractor.ExtractionResult
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Persist appends the result.
func (s *Store) Persist(_ context.Context, result extractor.ExtractionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Results returns a copy of everything persisted so far.
func (s *Store) Results() []extractor.ExtractionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]extractor.ExtractionResult(nil), s.results...)
}
