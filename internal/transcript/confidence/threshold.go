// Package confidence derives the auto low-confidence threshold used to
// flag doubtful words in the transcript editor.
//
// The threshold is the score at a configurable percentile (default: the
// 10th) of all word confidence scores in a transcript, capped from above so
// that an unusually confident transcript never yields a lenient threshold.
// The percentile value is found with quickselect rather than a full sort,
// so a transcript is scanned in expected linear time however large it is.
//
// AutoThreshold is pure with respect to its inputs: scores are copied into
// a function-local scratch slice before partitioning, so the transcript's
// segments and words are never touched.
package confidence

import "github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"

const (
	// DefaultPercentile is the fraction of scores that should fall below
	// the auto threshold.
	DefaultPercentile = 0.1

	// DefaultMaxThreshold caps the computed threshold. Scores above it are
	// never flagged, whatever the percentile computes to.
	DefaultMaxThreshold = 0.4
)

// Option is a functional option for [AutoThreshold].
type Option func(*settings)

type settings struct {
	percentile   float64
	maxThreshold float64
}

// WithPercentile sets the target percentile as a fraction in [0, 1].
// Values at or below 0 select the lowest score; values at or above 1 select
// the highest. Default: 0.1.
func WithPercentile(p float64) Option {
	return func(s *settings) {
		s.percentile = p
	}
}

// WithMaxThreshold sets the upper cap applied to the computed percentile
// value. Default: 0.4.
func WithMaxThreshold(max float64) Option {
	return func(s *settings) {
		s.maxThreshold = max
	}
}

// AutoThreshold computes the confidence score at the configured percentile
// across every scored word in segments, capped at the configured maximum.
//
// Words without a confidence score are skipped entirely — a missing score
// carries no signal and must not drag the percentile down as a zero. When
// no word in the transcript carries a score, ok is false and the feature
// should stay disabled; that is the "no data" outcome, not an error.
//
// The returned value equals min(cap, sortedAscending(scores)[rank]) where
// rank = clamp(floor(n*percentile), 0, n-1), for any input ordering.
func AutoThreshold(segments []transcript.Segment, opts ...Option) (threshold float64, ok bool) {
	s := settings{
		percentile:   DefaultPercentile,
		maxThreshold: DefaultMaxThreshold,
	}
	for _, o := range opts {
		o(&s)
	}

	// Collect defined scores in encounter order. The slice is owned by this
	// call; selectRank reorders it in place.
	var scores []float64
	for _, seg := range segments {
		for _, w := range seg.Words {
			if score, scored := w.Score(); scored {
				scores = append(scores, score)
			}
		}
	}
	if len(scores) == 0 {
		return 0, false
	}

	target := int(float64(len(scores)) * s.percentile)
	if target < 0 {
		target = 0
	}
	if target > len(scores)-1 {
		target = len(scores) - 1
	}

	value := selectRank(scores, target)
	return min(s.maxThreshold, value), true
}

// selectRank returns the value that would sit at index target (0-based,
// ascending) if scores were sorted, using quickselect with a Lomuto
// partition. scores is reordered in place; target must be a valid index.
//
// The pivot is always the midpoint of the working window. That keeps the
// selection deterministic and reproducible, at the cost of O(n²) behaviour
// on adversarial orderings; transcripts are far too small for that to
// matter in practice.
func selectRank(scores []float64, target int) float64 {
	left, right := 0, len(scores)-1
	for left <= right {
		if left == right {
			return scores[left]
		}
		pivot := partition(scores, left, right, (left+right)/2)
		switch {
		case pivot == target:
			return scores[pivot]
		case target < pivot:
			right = pivot - 1
		default:
			left = pivot + 1
		}
	}
	return scores[target]
}

// partition performs a Lomuto partition of scores[left:right+1] around the
// value at pivotIndex and returns the pivot's final sorted position.
//
// Ties land on either side of the pivot under the strict less-than
// comparison; the returned rank is still correct because equal values are
// interchangeable at that rank.
func partition(scores []float64, left, right, pivotIndex int) int {
	pivotValue := scores[pivotIndex]
	scores[pivotIndex], scores[right] = scores[right], scores[pivotIndex]

	store := left
	for i := left; i < right; i++ {
		if scores[i] < pivotValue {
			scores[store], scores[i] = scores[i], scores[store]
			store++
		}
	}
	scores[store], scores[right] = scores[right], scores[store]
	return store
}
