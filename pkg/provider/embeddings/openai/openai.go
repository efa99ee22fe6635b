// Package openai provides an embeddings provider backed by the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/embeddings"
)

// DefaultModel is used when no embeddings model is configured.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

// nativeDimensions maps known OpenAI embedding models to their full output
// width. Models absent from the table fall back to 1536.
var nativeDimensions = map[string]int{
	oai.EmbeddingModelTextEmbedding3Large: 3072,
	oai.EmbeddingModelTextEmbedding3Small: 1536,
	oai.EmbeddingModelTextEmbeddingAda002: 1536,
}

// Provider implements embeddings.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
	dims   int
}

// Compile-time interface check.
var _ embeddings.Provider = (*Provider)(nil)

// Option is a functional option for Provider.
type Option func(*Provider, *[]option.RequestOption)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(_ *Provider, reqOpts *[]option.RequestOption) {
		*reqOpts = append(*reqOpts, option.WithBaseURL(url))
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(_ *Provider, reqOpts *[]option.RequestOption) {
		*reqOpts = append(*reqOpts, option.WithHTTPClient(&http.Client{Timeout: d}))
	}
}

// WithDimensions requests truncated vectors of the given width. Only the
// text-embedding-3 family supports this; the value must match the width of
// the vector column the embeddings are stored in.
func WithDimensions(n int) Option {
	return func(p *Provider, _ *[]option.RequestOption) {
		p.dims = n
	}
}

// New constructs an OpenAI embeddings provider. An empty model selects
// [DefaultModel].
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embeddings: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	p := &Provider{model: model}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(p, &reqOpts)
	}
	if p.dims < 0 {
		return nil, fmt.Errorf("openai embeddings: dimensions must be positive, got %d", p.dims)
	}

	p.client = oai.NewClient(reqOpts...)
	return p, nil
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if p.dims > 0 {
		params.Dimensions = param.NewOpt(int64(p.dims))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: embed %d texts: %w", len(texts), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	// The API may return embeddings out of order; Index is authoritative.
	vecs := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if e.Index < 0 || int(e.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", e.Index)
		}
		vec := make([]float32, len(e.Embedding))
		for i, v := range e.Embedding {
			vec[i] = float32(v)
		}
		vecs[e.Index] = vec
	}
	return vecs, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	if p.dims > 0 {
		return p.dims
	}
	if n, ok := nativeDimensions[p.model]; ok {
		return n
	}
	return 1536
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	return p.model
}
