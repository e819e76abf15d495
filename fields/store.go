package fields

import (
	"context"
	"fmt"
	"sync"
)

// Store is the external record store boundary. The engine only reads field
// records and writes back values and re-encoded regions.
type Store interface {
	Fetch(ctx context.Context, reviewID string) ([]Field, error)
	SaveValue(ctx context.Context, id, value string) error
	SaveRegions(ctx context.Context, id, encoded string) error
}

// MemStore is an in-memory Store for tests and the demo binary.
type MemStore struct {
	mu      sync.RWMutex
	reviews map[string][]Field
}

func NewMemStore() *MemStore {
	return &MemStore{reviews: make(map[string][]Field)}
}

// Seed installs the field set for a review, replacing any existing one.
func (s *MemStore) Seed(reviewID string, fs []Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[reviewID] = append([]Field(nil), fs...)
}

func (s *MemStore) Fetch(_ context.Context, reviewID string) ([]Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs, ok := s.reviews[reviewID]
	if !ok {
		return nil, fmt.Errorf("review %q not found", reviewID)
	}
	return append([]Field(nil), fs...), nil
}

func (s *MemStore) SaveValue(_ context.Context, id, value string) error {
	return s.update(id, func(f *Field) { f.Value = value })
}

func (s *MemStore) SaveRegions(_ context.Context, id, encoded string) error {
	return s.update(id, func(f *Field) {
		f.EncodedRegions = encoded
		f.decoded = false
	})
}

func (s *MemStore) update(id string, apply func(*Field)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for reviewID, fs := range s.reviews {
		for i := range fs {
			if fs[i].ID == id {
				apply(&fs[i])
				s.reviews[reviewID] = fs
				return nil
			}
		}
	}
	return fmt.Errorf("field %q not found", id)
}
