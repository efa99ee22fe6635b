package rewrite_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/dictionary"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/rewrite"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"
	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/llm"
	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/llm/mock"
)

func testTranscript() *transcript.Transcript {
	return &transcript.Transcript{
		ID:   "tr-1",
		Name: "session one",
		Segments: []transcript.Segment{
			{ID: "s1", Speaker: "alice", Text: "um so basically the thing is"},
			{ID: "s2", Speaker: "bob", Text: "right, I agree with that"},
			{ID: "s3", Speaker: "alice", Text: "we ship on friday", Confirmed: true},
		},
	}
}

// jsonEcho returns a CompleteFunc that rewrites every segment to a fixed
// transformation of its input, in the JSON shape the engine expects.
func jsonEcho(transform func(string) string) func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		// The segment text is the last line of the user message.
		content := req.Messages[len(req.Messages)-1].Content
		lines := strings.Split(content, "\n")
		segText := lines[len(lines)-1]
		return &llm.CompletionResponse{
			Content: fmt.Sprintf(`{"rewritten_text": %q}`, transform(segText)),
			Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}
}

func TestRunRewritesScopedSegments(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteFunc: jsonEcho(strings.ToUpper)}
	engine := rewrite.New(provider, rewrite.WithConcurrency(2))

	res, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"s2", "s1"},
		Instruction: "shout everything",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(res.Results))
	}
	// Scope order follows the request order, not transcript order.
	if res.Results[0].SegmentID != "s2" || res.Results[1].SegmentID != "s1" {
		t.Errorf("result order = [%s, %s], want [s2, s1]",
			res.Results[0].SegmentID, res.Results[1].SegmentID)
	}
	for _, r := range res.Results {
		if !r.Changed {
			t.Errorf("segment %s: Changed = false, want true", r.SegmentID)
		}
		if r.Rewritten != strings.ToUpper(r.Original) {
			t.Errorf("segment %s: Rewritten = %q, want uppercase of %q",
				r.SegmentID, r.Rewritten, r.Original)
		}
	}
	if !res.Filtered {
		t.Error("Filtered = false, want true for a 2-of-3 selection")
	}
	if res.Usage.TotalTokens != 30 {
		t.Errorf("Usage.TotalTokens = %d, want 30", res.Usage.TotalTokens)
	}
}

func TestRunSkipsConfirmedByDefault(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteFunc: jsonEcho(strings.ToUpper)}
	engine := rewrite.New(provider)

	res, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"s1", "s3", "missing"},
		Instruction: "shout",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Results) != 1 || res.Results[0].SegmentID != "s1" {
		t.Fatalf("got %d results (first %v), want only s1",
			len(res.Results), res.Results)
	}
}

func TestRunIncludeConfirmed(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteFunc: jsonEcho(strings.ToUpper)}
	engine := rewrite.New(provider)

	res, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:       testTranscript(),
		SegmentIDs:       []string{"s3"},
		Instruction:      "shout",
		IncludeConfirmed: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Results) != 1 || res.Results[0].SegmentID != "s3" {
		t.Fatalf("got %v, want s3 included", res.Results)
	}
}

func TestRunEmptyScope(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{}
	engine := rewrite.New(provider)

	res, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"nope", "s3"},
		Instruction: "shout",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Results) != 0 {
		t.Fatalf("got %d results, want 0", len(res.Results))
	}
	if len(provider.Calls()) != 0 {
		t.Errorf("provider was called %d times for an empty scope", len(provider.Calls()))
	}
}

func TestRunUnparseableResponseDegradesToNoChange(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Sure! Here is the rewritten text: ..."},
	}
	engine := rewrite.New(provider)

	res, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"s1"},
		Instruction: "shout",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := res.Results[0]
	if r.Changed {
		t.Error("Changed = true for unparseable response, want false")
	}
	if r.Rewritten != r.Original {
		t.Errorf("Rewritten = %q, want original %q", r.Rewritten, r.Original)
	}
}

func TestRunAcceptsFencedJSON(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "```json\n{\"rewritten_text\": \"clean text\"}\n```",
		},
	}
	engine := rewrite.New(provider)

	res, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"s1"},
		Instruction: "clean up",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := res.Results[0].Rewritten; got != "clean text" {
		t.Errorf("Rewritten = %q, want %q", got, "clean text")
	}
}

func TestRunProviderErrorFailsBatch(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("backend down")
	provider := &mock.Provider{CompleteErr: wantErr}
	engine := rewrite.New(provider)

	_, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"s1", "s2"},
		Instruction: "shout",
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run error = %v, want wrapped %v", err, wantErr)
	}
}

func TestRunValidation(t *testing.T) {
	t.Parallel()

	engine := rewrite.New(&mock.Provider{})

	if _, err := engine.Run(context.Background(), rewrite.Request{
		SegmentIDs:  []string{"s1"},
		Instruction: "shout",
	}); err == nil {
		t.Error("nil transcript: expected error")
	}
	if _, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"s1"},
		Instruction: "   ",
	}); err == nil {
		t.Error("blank instruction: expected error")
	}
}

func TestRunInjectsDictionaryCanonicals(t *testing.T) {
	t.Parallel()

	dict := dictionary.NewMemStore()
	ctx := context.Background()
	if _, err := dict.Put(ctx, dictionary.Term{Canonical: "Kubernetes", Variants: []string{"kube"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := dict.Put(ctx, dictionary.Term{Canonical: "PostgreSQL"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	provider := &mock.Provider{CompleteFunc: jsonEcho(strings.ToUpper)}
	engine := rewrite.New(provider, rewrite.WithDictionary(dict))

	if _, err := engine.Run(ctx, rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"s1"},
		Instruction: "fix spelling",
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := provider.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d provider calls, want 1", len(calls))
	}
	prompt := calls[0].Req.SystemPrompt
	for _, term := range []string{"Kubernetes", "PostgreSQL"} {
		if !strings.Contains(prompt, term) {
			t.Errorf("system prompt missing canonical %q:\n%s", term, prompt)
		}
	}
	if strings.Contains(prompt, "kube,") {
		t.Error("system prompt should list canonicals, not variants")
	}
}

type staticRetriever struct {
	related []string
	err     error
}

func (r *staticRetriever) Related(context.Context, string, string, int) ([]string, error) {
	return r.related, r.err
}

func TestRunContextRetriever(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteFunc: jsonEcho(strings.ToUpper)}
	retriever := &staticRetriever{related: []string{"earlier we said friday"}}
	engine := rewrite.New(provider, rewrite.WithContextRetriever(retriever, 3))

	if _, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"s1"},
		Instruction: "tighten",
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := provider.Calls()
	msg := calls[0].Req.Messages[0].Content
	if !strings.Contains(msg, "earlier we said friday") {
		t.Errorf("user message missing related context:\n%s", msg)
	}
}

func TestRunContextRetrieverErrorIsNonFatal(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteFunc: jsonEcho(strings.ToUpper)}
	retriever := &staticRetriever{err: errors.New("index offline")}
	engine := rewrite.New(provider, rewrite.WithContextRetriever(retriever, 3))

	res, err := engine.Run(context.Background(), rewrite.Request{
		Transcript:  testTranscript(),
		SegmentIDs:  []string{"s1"},
		Instruction: "tighten",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Results) != 1 || !res.Results[0].Changed {
		t.Fatalf("expected rewrite to proceed without context, got %v", res.Results)
	}
}
