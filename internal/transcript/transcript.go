// Package transcript defines the FlowScribe transcript data model and the
// pure helper operations the editing features are built on.
//
// A [Transcript] is an ordered sequence of speaker-attributed [Segment]
// values, each carrying timed [Word] values as produced by a speech
// recogniser. Segments are treated as immutable snapshots: none of the
// functions in this package or its subpackages mutate a segment once it has
// been built. Derived structures (the scope index, the auto-confidence
// threshold) are recomputed from scratch on every call — callers own any
// caching they need.
//
// Subpackages:
//
//   - scope: segment id indexing and order-preserving scope filtering,
//     used to restrict bulk AI actions to a user-selected subset.
//   - confidence: linear-time percentile selection over word confidence
//     scores, used to auto-derive a low-confidence display threshold.
package transcript

// Word is the smallest transcript unit: a single recognised token with its
// timing and, when the recogniser reported one, a confidence score.
type Word struct {
	// Text is the recognised token.
	Text string `json:"text"`

	// Start and End are the word's position in the recording, in seconds
	// from the start of the transcript.
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Confidence is the recogniser's per-word confidence in [0.0, 1.0].
	// Nil when the recogniser reported no score for this word; a missing
	// score is excluded from statistics, never treated as zero.
	Confidence *float64 `json:"confidence,omitempty"`
}

// Segment is a contiguous span of a transcript attributed to one speaker.
type Segment struct {
	// ID uniquely identifies the segment within its transcript.
	ID string `json:"id"`

	// Speaker is the display name of the speaker this span is attributed to.
	Speaker string `json:"speaker"`

	// Tags is the ordered list of user-assigned labels on this segment.
	// Normalised transcripts always carry a non-nil (possibly empty) slice;
	// see [Normalize].
	Tags []string `json:"tags"`

	// Start and End are the segment's position in the recording, in seconds.
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Text is the segment's full text. It is the editable surface; Words
	// retains the original recogniser tokens with their timings.
	Text string `json:"text"`

	// Words is the ordered list of recognised words within this segment.
	Words []Word `json:"words"`

	// Confirmed marks a segment the user has accepted as final. Confirmed
	// segments are excluded from bulk AI actions when the caller asks for it.
	Confirmed bool `json:"confirmed"`
}

// Transcript is an ordered sequence of segments plus identifying metadata.
// A transcript owns its segments exclusively; segments are never shared
// between transcripts.
type Transcript struct {
	// ID uniquely identifies the transcript.
	ID string `json:"id"`

	// Name is the user-visible transcript title.
	Name string `json:"name"`

	// Segments is the ordered segment sequence.
	Segments []Segment `json:"segments"`
}

// Score returns the word's confidence score and whether one is present.
// Preferred over touching Confidence directly in statistics code, where a
// missing score must be skipped rather than read as zero.
func (w Word) Score() (float64, bool) {
	if w.Confidence == nil {
		return 0, false
	}
	return *w.Confidence, true
}
