// Package store persists transcripts.
//
// The canonical implementation is [PostgresStore] (pgx connection pool,
// transcripts + segments tables, word timings as JSONB). [MemStore] keeps
// everything in process memory and backs single-user setups and tests.
//
// Every save recomputes the transcript revision hash so clients can cheaply
// detect concurrent modification.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"
)

// ErrNotFound is returned when no transcript with the given id exists.
var ErrNotFound = errors.New("store: transcript not found")

// Meta is the listing view of a stored transcript, without segment data.
type Meta struct {
	// ID identifies the transcript.
	ID string `json:"id"`

	// Name is the human-readable title.
	Name string `json:"name"`

	// Revision is the content hash at last save.
	Revision string `json:"revision"`

	// SegmentCount is the number of stored segments.
	SegmentCount int `json:"segment_count"`

	// UpdatedAt is the time of the last save.
	UpdatedAt time.Time `json:"updated_at"`
}

// TranscriptStore persists transcripts.
//
// All implementations must be safe for concurrent use.
type TranscriptStore interface {
	// Save upserts the transcript. The transcript is normalized first, so
	// segments gain ids and non-nil slices as a side effect.
	Save(ctx context.Context, t *transcript.Transcript) error

	// Load retrieves a transcript by id.
	// Returns [ErrNotFound] when no transcript with that id exists.
	Load(ctx context.Context, id string) (*transcript.Transcript, error)

	// List returns metadata for all stored transcripts, most recently
	// updated first.
	List(ctx context.Context) ([]Meta, error)

	// Delete removes a transcript and its segments.
	// Returns [ErrNotFound] when no transcript with that id exists.
	Delete(ctx context.Context, id string) error

	// SetConfirmed flips the confirmed flag of one segment.
	// Returns [ErrNotFound] when the transcript or segment does not exist.
	SetConfirmed(ctx context.Context, transcriptID, segmentID string, confirmed bool) error
}
