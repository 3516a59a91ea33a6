package storage

import (
	"context"
	"sync"

	"github.com/urbemaps/geofence/internal/model"
)

// MemoryStore keeps the area mapping in memory. It backs ephemeral runs and
// tests; a store switched to read-only behaves like an unwritable medium.
type MemoryStore struct {
	mu       sync.Mutex
	areas    map[string]model.Area
	readOnly bool
	loadErr  error
	saves    int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{areas: map[string]model.Area{}}
}

// Seed replaces the stored mapping without counting as a save.
func (s *MemoryStore) Seed(areas map[string]model.Area) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.areas = copyAreas(areas)
}

// SetReadOnly makes subsequent saves fail with ErrReadOnly.
func (s *MemoryStore) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOnly = readOnly
}

// FailLoads makes subsequent loads return err until called with nil.
func (s *MemoryStore) FailLoads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// SaveCount returns the number of successful saves.
func (s *MemoryStore) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemoryStore) Load(ctx context.Context) (map[string]model.Area, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return copyAreas(s.areas), nil
}

func (s *MemoryStore) Save(ctx context.Context, areas map[string]model.Area) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}
	s.areas = copyAreas(areas)
	s.saves++
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func copyAreas(areas map[string]model.Area) map[string]model.Area {
	out := make(map[string]model.Area, len(areas))
	for slug, a := range areas {
		out[slug] = a
	}
	return out
}
