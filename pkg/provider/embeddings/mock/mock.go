// Package mock provides a test double for the embeddings.Provider interface.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider. It returns
// deterministic vectors derived from the input text length so tests can
// assert stable behaviour without a live backend.
type Provider struct {
	mu sync.Mutex

	// Dim is the dimensionality of returned vectors. Defaults to 4 when zero.
	Dim int

	// Err, if non-nil, is returned by Embed and EmbedBatch.
	Err error

	// EmbedCalls records every text passed to Embed or EmbedBatch, in order.
	EmbedCalls []string
}

// Compile-time interface check.
var _ embeddings.Provider = (*Provider)(nil)

func (p *Provider) dim() int {
	if p.Dim <= 0 {
		return 4
	}
	return p.Dim
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}

	vec := make([]float32, p.dim())
	for i := range vec {
		vec[i] = float32(len(text)%(i+2)) / float32(i+2)
	}
	return vec, nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.Err != nil {
		return nil, fmt.Errorf("mock embeddings: %w", p.Err)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int { return p.dim() }

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string { return "mock" }
