package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"
)

// MemStore is an in-memory [TranscriptStore] for tests and setups without
// a database. Safe for concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	t         *transcript.Transcript
	revision  string
	updatedAt time.Time
}

var _ TranscriptStore = (*MemStore)(nil)

// NewMemStore returns an empty [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]memEntry)}
}

// Save implements [TranscriptStore].
func (s *MemStore) Save(ctx context.Context, t *transcript.Transcript) error {
	if err := transcript.Normalize(t); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[t.ID] = memEntry{
		t:         cloneTranscript(t),
		revision:  transcript.Revision(t),
		updatedAt: time.Now(),
	}
	return nil
}

// Load implements [TranscriptStore].
func (s *MemStore) Load(ctx context.Context, id string) (*transcript.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("store: load %q: %w", id, ErrNotFound)
	}
	return cloneTranscript(entry.t), nil
}

// List implements [TranscriptStore].
func (s *MemStore) List(ctx context.Context) ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]Meta, 0, len(s.entries))
	for _, entry := range s.entries {
		metas = append(metas, Meta{
			ID:           entry.t.ID,
			Name:         entry.t.Name,
			Revision:     entry.revision,
			SegmentCount: len(entry.t.Segments),
			UpdatedAt:    entry.updatedAt,
		})
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete implements [TranscriptStore].
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("store: delete %q: %w", id, ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

// SetConfirmed implements [TranscriptStore].
func (s *MemStore) SetConfirmed(ctx context.Context, transcriptID, segmentID string, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[transcriptID]
	if !ok {
		return fmt.Errorf("store: set confirmed %q: %w", transcriptID, ErrNotFound)
	}
	for i := range entry.t.Segments {
		if entry.t.Segments[i].ID != segmentID {
			continue
		}
		entry.t.Segments[i].Confirmed = confirmed
		entry.revision = transcript.Revision(entry.t)
		entry.updatedAt = time.Now()
		s.entries[transcriptID] = entry
		return nil
	}
	return fmt.Errorf("store: set confirmed %q/%q: %w", transcriptID, segmentID, ErrNotFound)
}

// cloneTranscript deep-copies t so callers cannot mutate stored state.
func cloneTranscript(t *transcript.Transcript) *transcript.Transcript {
	out := &transcript.Transcript{
		ID:       t.ID,
		Name:     t.Name,
		Segments: make([]transcript.Segment, len(t.Segments)),
	}
	for i, seg := range t.Segments {
		cp := seg
		cp.Tags = make([]string, len(seg.Tags))
		copy(cp.Tags, seg.Tags)
		cp.Words = make([]transcript.Word, len(seg.Words))
		for j, w := range seg.Words {
			wc := w
			if w.Confidence != nil {
				conf := *w.Confidence
				wc.Confidence = &conf
			}
			cp.Words[j] = wc
		}
		out.Segments[i] = cp
	}
	return out
}
