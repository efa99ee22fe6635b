package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/store"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"
)

func sampleTranscript(id string) *transcript.Transcript {
	return &transcript.Transcript{
		ID:   id,
		Name: "weekly sync",
		Segments: []transcript.Segment{
			{ID: "s1", Speaker: "alice", Text: "hello everyone"},
			{ID: "s2", Speaker: "bob", Text: "hi alice"},
		},
	}
}

func TestMemStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	ctx := context.Background()

	if err := s.Save(ctx, sampleTranscript("tr-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "tr-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "weekly sync" || len(got.Segments) != 2 {
		t.Fatalf("loaded transcript = %+v", got)
	}
	if got.Segments[0].Tags == nil || got.Segments[0].Words == nil {
		t.Error("loaded segment has nil slices, normalization should prevent that")
	}
}

func TestMemStoreLoadReturnsCopy(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	ctx := context.Background()
	if err := s.Save(ctx, sampleTranscript("tr-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	first, _ := s.Load(ctx, "tr-1")
	first.Segments[0].Text = "mutated"

	second, _ := s.Load(ctx, "tr-1")
	if second.Segments[0].Text != "hello everyone" {
		t.Error("mutating a loaded transcript changed stored state")
	}
}

func TestMemStoreLoadNotFound(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Load error = %v, want ErrNotFound", err)
	}
}

func TestMemStoreListMetadata(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	ctx := context.Background()
	if err := s.Save(ctx, sampleTranscript("tr-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, sampleTranscript("tr-2")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	metas, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d metas, want 2", len(metas))
	}
	for _, m := range metas {
		if m.SegmentCount != 2 {
			t.Errorf("meta %s: SegmentCount = %d, want 2", m.ID, m.SegmentCount)
		}
		if m.Revision == "" {
			t.Errorf("meta %s: empty revision", m.ID)
		}
	}
}

func TestMemStoreSetConfirmedBumpsRevision(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	ctx := context.Background()
	if err := s.Save(ctx, sampleTranscript("tr-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before, _ := s.List(ctx)

	if err := s.SetConfirmed(ctx, "tr-1", "s2", true); err != nil {
		t.Fatalf("SetConfirmed: %v", err)
	}

	got, _ := s.Load(ctx, "tr-1")
	if !got.Segments[1].Confirmed {
		t.Error("segment s2 not confirmed after SetConfirmed")
	}
	after, _ := s.List(ctx)
	if before[0].Revision == after[0].Revision {
		t.Error("revision unchanged after confirming a segment")
	}

	if err := s.SetConfirmed(ctx, "tr-1", "missing", true); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetConfirmed missing segment error = %v, want ErrNotFound", err)
	}
}

func TestMemStoreDelete(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	ctx := context.Background()
	if err := s.Save(ctx, sampleTranscript("tr-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.Delete(ctx, "tr-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, "tr-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Load after Delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "tr-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}
