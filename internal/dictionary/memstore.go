package dictionary

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for tests and throwaway sessions.
type MemStore struct {
	mu    sync.RWMutex
	terms map[string]Term
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		terms: make(map[string]Term),
	}
}

// Put implements [Store.Put].
func (s *MemStore) Put(ctx context.Context, term Term) (Term, error) {
	if term.ID == "" {
		id, err := generateID()
		if err != nil {
			return Term{}, fmt.Errorf("dictionary: generate id: %w", err)
		}
		term.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terms == nil {
		s.terms = make(map[string]Term)
	}
	if _, exists := s.terms[term.ID]; exists {
		return Term{}, ErrDuplicateID
	}

	now := time.Now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now
	s.terms[term.ID] = term
	return term, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.terms[id]
	if !ok {
		return Term{}, ErrNotFound
	}
	return t, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context) ([]Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Term, 0, len(s.terms))
	for _, t := range s.terms {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Canonical < out[j].Canonical
	})
	return out, nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(ctx context.Context, term Term) error {
	if term.ID == "" {
		return fmt.Errorf("dictionary: update requires a term id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.terms[term.ID]
	if !ok {
		return ErrNotFound
	}
	term.CreatedAt = existing.CreatedAt
	term.UpdatedAt = time.Now().UTC()
	s.terms[term.ID] = term
	return nil
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.terms[id]; !ok {
		return ErrNotFound
	}
	delete(s.terms, id)
	return nil
}

// generateID returns a random 16-character hex id.
func generateID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
