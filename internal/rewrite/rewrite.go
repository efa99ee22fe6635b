// Package rewrite implements FlowScribe's scoped AI actions: bulk
// language-model edits applied to a user-selected subset of transcript
// segments.
//
// The [Engine] resolves the user's selection through the scope filter
// (dropping deleted segments and, by default, segments the user has
// already confirmed), then rewrites each remaining segment with an
// [llm.Provider] under a conservative system prompt. Dictionary canonicals
// and, when configured, semantically related segments are injected as
// context so the model spells domain terms correctly and keeps
// cross-segment consistency.
//
// Segments are processed concurrently with a bounded worker count. A
// response the engine cannot parse degrades to "no change" for that
// segment rather than failing the batch — a stale rewrite must never take
// the editor down.
package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/dictionary"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/observe"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript/scope"
	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/llm"
)

const (
	defaultTemperature = 0.2
	defaultConcurrency = 4
)

// ContextRetriever finds transcript segments related to a piece of text.
// The semantic index implements it; nil disables context retrieval.
type ContextRetriever interface {
	// Related returns up to topK segment texts semantically similar to
	// text, most similar first.
	Related(ctx context.Context, transcriptID, text string, topK int) ([]string, error)
}

// Request describes one scoped AI action.
type Request struct {
	// Transcript is the full transcript snapshot the action runs against.
	Transcript *transcript.Transcript

	// SegmentIDs is the user's selection, in selection order. Ids that no
	// longer exist are silently dropped.
	SegmentIDs []string

	// Instruction is the user's edit instruction
	// (e.g., "remove filler words", "tighten the phrasing").
	Instruction string

	// IncludeConfirmed applies the action to confirmed segments too.
	// Default false: confirmed segments are protected from bulk edits.
	IncludeConfirmed bool
}

// SegmentResult is the outcome for a single scoped segment, in scope order.
type SegmentResult struct {
	// SegmentID identifies the segment this result applies to.
	SegmentID string `json:"segment_id"`

	// Original is the segment text before the action.
	Original string `json:"original"`

	// Rewritten is the model's replacement text. Equals Original when the
	// model made no change or its response could not be parsed.
	Rewritten string `json:"rewritten"`

	// Changed reports whether Rewritten differs from Original.
	Changed bool `json:"changed"`
}

// Result is the outcome of [Engine.Run].
type Result struct {
	// Results holds one entry per scoped segment, in scope order.
	Results []SegmentResult `json:"results"`

	// Filtered reports whether the action ran on a strict subset of the
	// transcript (size heuristic over the resolved scope).
	Filtered bool `json:"filtered"`

	// Usage aggregates token usage across all provider calls.
	Usage llm.Usage `json:"usage"`
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithTemperature sets the LLM sampling temperature. Default: 0.2.
func WithTemperature(temp float64) Option {
	return func(e *Engine) {
		e.temperature = temp
	}
}

// WithConcurrency bounds how many segments are rewritten in parallel.
// Default: 4.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithDictionary attaches a dictionary store whose canonicals are injected
// into every rewrite prompt. When nil (the default), prompts carry no term
// list.
func WithDictionary(store dictionary.Store) Option {
	return func(e *Engine) {
		e.dict = store
	}
}

// WithContextRetriever attaches a [ContextRetriever] supplying related
// segments as prompt context. topK is the number of segments fetched per
// rewrite; zero disables retrieval even when a retriever is set.
func WithContextRetriever(r ContextRetriever, topK int) Option {
	return func(e *Engine) {
		e.retriever = r
		e.contextTopK = topK
	}
}

// WithMetrics attaches a metrics instance. When nil (the default),
// [observe.DefaultMetrics] is used.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine runs scoped AI actions. It is safe for concurrent use.
type Engine struct {
	llm         llm.Provider
	dict        dictionary.Store
	retriever   ContextRetriever
	contextTopK int
	metrics     *observe.Metrics
	temperature float64
	concurrency int
}

// New returns an [Engine] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Engine {
	e := &Engine{
		llm:         provider,
		temperature: defaultTemperature,
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Run executes the action described by req and returns per-segment results
// in scope order.
//
// The scope is resolved once at the start: segments deleted since the
// selection was made are skipped, and confirmed segments are skipped
// unless req.IncludeConfirmed is set. An empty resolved scope yields an
// empty Result, not an error.
//
// Provider failures abort the whole batch with an error; unparseable
// provider responses do not (the affected segment reports no change).
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Transcript == nil {
		return nil, fmt.Errorf("rewrite: nil transcript")
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, fmt.Errorf("rewrite: empty instruction")
	}

	idx := scope.BuildIndex(req.Transcript.Segments)
	scopedIDs := scope.ScopedIDs(idx, req.SegmentIDs, !req.IncludeConfirmed)

	result := &Result{
		Results:  make([]SegmentResult, len(scopedIDs)),
		Filtered: scope.IsFiltered(req.Transcript.Segments, scopedIDs),
	}
	if len(scopedIDs) == 0 {
		return result, nil
	}

	terms, err := e.loadTerms(ctx)
	if err != nil {
		return nil, err
	}

	e.metrics.ActiveRewrites.Add(ctx, 1)
	defer e.metrics.ActiveRewrites.Add(ctx, -1)

	var (
		usageCh = make(chan llm.Usage, len(scopedIDs))
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.concurrency)

	for i, id := range scopedIDs {
		seg := idx[id]
		eg.Go(func() error {
			res, usage, err := e.rewriteSegment(egCtx, req, seg, terms)
			if err != nil {
				return err
			}
			result.Results[i] = res
			usageCh <- usage
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	close(usageCh)
	for u := range usageCh {
		result.Usage.PromptTokens += u.PromptTokens
		result.Usage.CompletionTokens += u.CompletionTokens
		result.Usage.TotalTokens += u.TotalTokens
	}

	return result, nil
}

// loadTerms lists the dictionary when one is attached.
func (e *Engine) loadTerms(ctx context.Context) ([]dictionary.Term, error) {
	if e.dict == nil {
		return nil, nil
	}
	terms, err := e.dict.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewrite: list dictionary: %w", err)
	}
	return terms, nil
}

// rewriteSegment performs one provider round-trip for a single segment.
func (e *Engine) rewriteSegment(
	ctx context.Context,
	req Request,
	seg transcript.Segment,
	terms []dictionary.Term,
) (SegmentResult, llm.Usage, error) {
	res := SegmentResult{
		SegmentID: seg.ID,
		Original:  seg.Text,
		Rewritten: seg.Text,
	}

	var related []string
	if e.retriever != nil && e.contextTopK > 0 {
		var err error
		related, err = e.retriever.Related(ctx, req.Transcript.ID, seg.Text, e.contextTopK)
		if err != nil {
			// Retrieval is best-effort context; log and continue without it.
			observe.Logger(ctx).Warn("rewrite: context retrieval failed",
				"segment_id", seg.ID, "err", err)
		}
	}

	start := time.Now()
	resp, err := e.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: buildSystemPrompt(req.Instruction, dictionary.Canonicals(terms)),
		Messages: []llm.Message{
			{Role: "user", Content: buildUserMessage(seg, related)},
		},
		Temperature: e.temperature,
	})
	e.metrics.RewriteDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		e.metrics.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", "llm"),
		))
		e.metrics.SegmentsRewritten.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", "error"),
		))
		return SegmentResult{}, llm.Usage{}, fmt.Errorf("rewrite: segment %q: %w", seg.ID, err)
	}
	e.metrics.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", "llm"),
		attribute.String("status", "ok"),
	))

	rewritten, parsed := parseResponse(resp.Content)
	if parsed {
		res.Rewritten = rewritten
		res.Changed = rewritten != seg.Text
		e.metrics.SegmentsRewritten.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", "ok"),
		))
	} else {
		// Unparseable model output degrades to "no change".
		observe.Logger(ctx).Warn("rewrite: unparseable model response",
			"segment_id", seg.ID)
		e.metrics.SegmentsRewritten.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", "unparseable"),
		))
	}

	return res, resp.Usage, nil
}

// modelResponse is the JSON structure the system prompt instructs the
// model to return.
type modelResponse struct {
	RewrittenText string `json:"rewritten_text"`
}

// parseResponse extracts the rewritten text from the model's reply.
// Returns ok=false when the reply is not the expected JSON object or the
// rewritten text is empty.
func parseResponse(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)

	// Models occasionally wrap the JSON in a markdown fence despite the
	// prompt; strip one level before parsing.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var parsed modelResponse
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return "", false
	}
	if strings.TrimSpace(parsed.RewrittenText) == "" {
		return "", false
	}
	return parsed.RewrittenText, true
}
