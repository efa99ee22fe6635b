package dictionary

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// SuggesterOption is a functional option for configuring a [Suggester].
type SuggesterOption func(*Suggester)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) SuggesterOption {
	return func(s *Suggester) {
		s.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the suggester falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) SuggesterOption {
	return func(s *Suggester) {
		s.fuzzyThreshold = threshold
	}
}

// Suggester proposes dictionary canonicals for misrecognised words using
// Double Metaphone phonetic encoding combined with Jaro-Winkler string
// similarity.
//
// The algorithm proceeds in two stages. First, Double Metaphone codes of
// the input word are compared against the codes of each term's canonical
// spelling and recorded variants; any overlap makes the term a phonetic
// candidate. Among candidates, the term with the highest Jaro-Winkler
// similarity wins, provided it clears the phonetic threshold. When no
// phonetic candidate exists, a pure Jaro-Winkler pass with a stricter
// fuzzy threshold is tried instead.
//
// Matching against variants means a word the user has already flagged once
// ("cooper netties") resolves to its canonical ("Kubernetes") even when
// the canonical itself is phonetically distant.
//
// All methods are safe for concurrent use — the Suggester is read-only
// after construction.
type Suggester struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewSuggester returns a new [Suggester] configured with the supplied
// options.
func NewSuggester(opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Suggest attempts to find the dictionary term whose canonical or variants
// are most phonetically similar to word.
//
// Return values: when ok is false, canonical equals word unchanged and
// confidence is 0. Otherwise canonical is the best-matching term's
// canonical spelling and confidence is the winning similarity score in
// [0.0, 1.0].
func (s *Suggester) Suggest(word string, terms []Term) (canonical string, confidence float64, ok bool) {
	if len(terms) == 0 || strings.TrimSpace(word) == "" {
		return word, 0, false
	}

	wordLower := strings.ToLower(strings.TrimSpace(word))
	wordCodes := phoneticCodes(wordLower)

	type candidate struct {
		canonical string
		score     float64
		phonetic  bool
	}

	var best candidate

	for _, term := range terms {
		if strings.TrimSpace(term.Canonical) == "" {
			continue
		}

		// Compare against the canonical and every recorded variant; the
		// best-scoring spelling represents the term.
		spellings := append([]string{term.Canonical}, term.Variants...)

		phoneticMatch := false
		score := 0.0
		for _, spelling := range spellings {
			sl := strings.ToLower(strings.TrimSpace(spelling))
			if sl == "" {
				continue
			}
			if codesOverlap(wordCodes, phoneticCodes(sl)) {
				phoneticMatch = true
			}
			if jw := bestJWScore(wordLower, sl); jw > score {
				score = jw
			}
		}

		if phoneticMatch {
			if score >= s.phoneticThreshold {
				if !best.phonetic || score > best.score {
					best = candidate{canonical: term.Canonical, score: score, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if score >= s.fuzzyThreshold && score > best.score {
				best = candidate{canonical: term.Canonical, score: score, phonetic: false}
			}
		}
	}

	if best.canonical != "" {
		return best.canonical, best.score, true
	}
	return word, 0, false
}

// phoneticCodes returns the union of Double Metaphone codes across the
// whitespace-separated tokens of s. Empty codes (words too short or with
// no consonants) are excluded.
func phoneticCodes(s string) map[string]struct{} {
	tokens := strings.Fields(s)
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, sec := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if sec != "" {
			codes[sec] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	// Iterate over the smaller set for efficiency.
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between input
// and spelling using three strategies: the full strings, the space-stripped
// strings, and the best pairwise token score. Multi-word spellings
// ("Mvon Renteln") match both when spoken as one word and word-by-word.
func bestJWScore(input, spelling string) float64 {
	score := matchr.JaroWinkler(input, spelling, false)

	inputTokens := strings.Fields(input)
	spellingTokens := strings.Fields(spelling)

	if len(inputTokens) > 1 || len(spellingTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(spellingTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, st := range spellingTokens {
			if s := matchr.JaroWinkler(it, st, false); s > score {
				score = s
			}
		}
	}

	return score
}
