// Package dictionary manages the user correction dictionary: canonical
// spellings of names and domain terms the recogniser keeps getting wrong,
// together with the misheard variants the user has seen for them.
//
// The dictionary serves two consumers. The [Suggester] proposes canonical
// terms for low-confidence words using phonetic matching, and the rewrite
// engine injects the canonical list into its prompts so the model spells
// domain terms correctly.
//
// Three [Store] implementations exist: [MemStore] for tests, [SQLiteStore]
// for local single-user use, and [PostgresStore] for server deployments.
package dictionary

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get, Update, and Delete when the requested
// term does not exist.
var ErrNotFound = errors.New("dictionary term not found")

// ErrDuplicateID is returned by Put when a term with the same non-empty ID
// already exists.
var ErrDuplicateID = errors.New("dictionary term with that ID already exists")

// Term is one dictionary entry: a canonical spelling plus the misheard
// variants the user has recorded for it.
type Term struct {
	// ID uniquely identifies the term.
	ID string `json:"id"`

	// Canonical is the correct spelling (e.g., "Kubernetes", "Mvon Renteln").
	Canonical string `json:"canonical"`

	// Variants are misrecognised spellings observed in transcripts
	// (e.g., "cooper netties"). Used to seed phonetic matching.
	Variants []string `json:"variants"`

	// CreatedAt and UpdatedAt are maintained by the store.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store manages dictionary terms.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Put creates a new term. When the term's ID is empty, one is generated
	// and the stored term is returned.
	// Returns [ErrDuplicateID] if a term with the same non-empty ID exists.
	Put(ctx context.Context, term Term) (Term, error)

	// Get retrieves a term by ID.
	// Returns [ErrNotFound] when no term with that ID exists.
	Get(ctx context.Context, id string) (Term, error)

	// List returns all terms ordered by canonical spelling.
	List(ctx context.Context) ([]Term, error)

	// Update replaces an existing term. The term's ID must be non-empty.
	// Returns [ErrNotFound] when no term with that ID exists.
	Update(ctx context.Context, term Term) error

	// Delete removes a term by ID.
	// Returns [ErrNotFound] when no term with that ID exists.
	Delete(ctx context.Context, id string) error
}

// Canonicals returns the canonical spellings of terms, in input order.
// Convenience for prompt building and phonetic matching.
func Canonicals(terms []Term) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.Canonical)
	}
	return out
}
