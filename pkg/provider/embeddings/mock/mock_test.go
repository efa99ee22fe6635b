package mock_test

import (
	"errors"
	"testing"

	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/embeddings/mock"
)

func TestEmbedDeterministic(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Dim: 8}

	a, err := p.Embed(t.Context(), "the party enters the vault")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := p.Embed(t.Context(), "the party enters the vault")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(a) != 8 {
		t.Fatalf("got %d dimensions, want 8", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vector not deterministic at index %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestEmbedBatchRecordsCalls(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}

	vecs, err := p.EmbedBatch(t.Context(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if got := len(p.EmbedCalls); got != 2 {
		t.Fatalf("got %d recorded calls, want 2", got)
	}
	if p.EmbedCalls[0] != "first" || p.EmbedCalls[1] != "second" {
		t.Fatalf("unexpected recorded calls: %v", p.EmbedCalls)
	}
}

func TestEmbedError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("backend down")
	p := &mock.Provider{Err: wantErr}

	if _, err := p.Embed(t.Context(), "x"); !errors.Is(err, wantErr) {
		t.Fatalf("Embed error = %v, want %v", err, wantErr)
	}
	if _, err := p.EmbedBatch(t.Context(), []string{"x"}); !errors.Is(err, wantErr) {
		t.Fatalf("EmbedBatch error = %v, want %v", err, wantErr)
	}
}
