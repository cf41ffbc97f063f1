package store

import (
	"sort"
	"sync"

	"github.com/ironsheep/signature-tools-mcp/internal/features"
)

// MemoryStore keeps templates in process memory. It is safe for concurrent use.
//
// Sets are deep-copied on the way in and out, so callers may mutate what they
// pass to Save or receive from Load without affecting the stored template.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]*features.DescriptorSet
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]*features.DescriptorSet),
	}
}

// Save stores a copy of set under key, replacing any existing template.
func (s *MemoryStore) Save(key string, set *features.DescriptorSet) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := checkSet(set); err != nil {
		return err
	}
	clone := set.Clone()

	s.mu.Lock()
	s.templates[key] = clone
	s.mu.Unlock()
	return nil
}

// Load returns a copy of the template stored under key.
func (s *MemoryStore) Load(key string) (*features.DescriptorSet, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	set, ok := s.templates[key]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(key)
	}
	return set.Clone(), nil
}

// Delete removes the template stored under key.
func (s *MemoryStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[key]; !ok {
		return notFound(key)
	}
	delete(s.templates, key)
	return nil
}

// Keys returns all stored keys in sorted order.
func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}
