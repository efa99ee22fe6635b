package dictionary_test

import (
	"testing"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/dictionary"
)

func TestSuggester_PhoneticMatch(t *testing.T) {
	t.Parallel()

	s := dictionary.NewSuggester()
	terms := []dictionary.Term{
		{Canonical: "Kubernetes"},
		{Canonical: "Grafana"},
	}

	canonical, conf, ok := s.Suggest("kubernetis", terms)
	if !ok {
		t.Fatalf("Suggest(%q): ok=false, want true", "kubernetis")
	}
	if canonical != "Kubernetes" {
		t.Errorf("Suggest(%q): canonical=%q, want Kubernetes", "kubernetis", canonical)
	}
	if conf < 0.7 {
		t.Errorf("Suggest(%q): confidence=%f, want >= 0.7", "kubernetis", conf)
	}
}

func TestSuggester_VariantResolvesToCanonical(t *testing.T) {
	t.Parallel()

	s := dictionary.NewSuggester()
	terms := []dictionary.Term{
		{Canonical: "Kubernetes", Variants: []string{"cooper netties"}},
		{Canonical: "Terraform"},
	}

	// The input is nowhere near "Kubernetes" as a string, but matches the
	// recorded variant phonetically.
	canonical, _, ok := s.Suggest("cooper neties", terms)
	if !ok {
		t.Fatalf("Suggest via variant: ok=false, want true")
	}
	if canonical != "Kubernetes" {
		t.Errorf("Suggest via variant: canonical=%q, want Kubernetes", canonical)
	}
}

func TestSuggester_NoMatch(t *testing.T) {
	t.Parallel()

	s := dictionary.NewSuggester()
	terms := []dictionary.Term{{Canonical: "Kubernetes"}}

	canonical, conf, ok := s.Suggest("hello", terms)
	if ok {
		t.Fatalf("Suggest(%q): ok=true, want false", "hello")
	}
	if canonical != "hello" {
		t.Errorf("Suggest(%q): canonical=%q, want original word", "hello", canonical)
	}
	if conf != 0 {
		t.Errorf("Suggest(%q): confidence=%f, want 0", "hello", conf)
	}
}

func TestSuggester_EmptyInputs(t *testing.T) {
	t.Parallel()

	s := dictionary.NewSuggester()

	if _, _, ok := s.Suggest("word", nil); ok {
		t.Error("Suggest with no terms: ok=true, want false")
	}
	if _, _, ok := s.Suggest("  ", []dictionary.Term{{Canonical: "X"}}); ok {
		t.Error("Suggest with blank word: ok=true, want false")
	}
}

func TestSuggester_ExactMatchHighConfidence(t *testing.T) {
	t.Parallel()

	s := dictionary.NewSuggester()
	terms := []dictionary.Term{{Canonical: "Grafana"}, {Canonical: "Kibana"}}

	canonical, conf, ok := s.Suggest("grafana", terms)
	if !ok {
		t.Fatal("Suggest exact: ok=false, want true")
	}
	if canonical != "Grafana" {
		t.Errorf("Suggest exact: canonical=%q, want Grafana", canonical)
	}
	if conf < 0.9 {
		t.Errorf("Suggest exact: confidence=%f, want >= 0.9", conf)
	}
}

func TestSuggester_ThresholdFiltering(t *testing.T) {
	t.Parallel()

	s := dictionary.NewSuggester(
		dictionary.WithPhoneticThreshold(0.99),
		dictionary.WithFuzzyThreshold(0.99),
	)
	terms := []dictionary.Term{{Canonical: "Kubernetes"}}

	if _, _, ok := s.Suggest("kubernetis", terms); ok {
		t.Error("Suggest with threshold 0.99 should reject near-matches")
	}
}
