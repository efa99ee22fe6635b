// Package semantic maintains a per-transcript vector index over segment
// text, backed by a PostgreSQL table with a pgvector HNSW index.
//
// The index feeds the rewrite engine with segments related to the one
// being edited, so multi-segment edits stay consistent (names, dates,
// decisions mentioned elsewhere in the recording). Indexing is
// best-effort: a transcript works fine without it, searches just return
// nothing.
package semantic

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/rewrite"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"
	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/embeddings"
)

// ddl returns the segment embedding DDL with the vector dimension
// substituted. The dimension is baked into the column type at schema
// creation time and must match the configured embedding model.
func ddl(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS segment_embeddings (
    segment_id     TEXT         NOT NULL,
    transcript_id  TEXT         NOT NULL,
    content        TEXT         NOT NULL,
    embedding      vector(%d),
    updated_at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (transcript_id, segment_id)
);

CREATE INDEX IF NOT EXISTS idx_segment_embeddings_transcript
    ON segment_embeddings (transcript_id);

CREATE INDEX IF NOT EXISTS idx_segment_embeddings_vec
    ON segment_embeddings USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures the segment embedding table and pgvector
// extension exist. Idempotent and safe to call on every start.
//
// embeddingDimensions must match the configured embedding model (e.g.,
// 1536 for OpenAI text-embedding-3-small). Changing it after the first
// migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddl(embeddingDimensions)); err != nil {
		return fmt.Errorf("semantic migrate: %w", err)
	}
	return nil
}

// Match is a single similarity search hit.
type Match struct {
	// SegmentID identifies the matched segment.
	SegmentID string

	// Text is the segment text as it was at indexing time.
	Text string

	// Distance is the cosine distance to the query (smaller is closer).
	Distance float64
}

// Index is the pgvector-backed segment similarity index.
// All methods are safe for concurrent use.
type Index struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
}

// Compile-time check: the index can feed the rewrite engine directly.
var _ rewrite.ContextRetriever = (*Index)(nil)

// NewIndex returns an [Index] over pool using embedder for vectorization.
func NewIndex(pool *pgxpool.Pool, embedder embeddings.Provider) *Index {
	return &Index{pool: pool, embedder: embedder}
}

// IndexSegment embeds seg.Text and upserts it. A segment indexed before
// is completely replaced, so re-indexing after an edit keeps the vector
// current.
func (ix *Index) IndexSegment(ctx context.Context, transcriptID string, seg transcript.Segment) error {
	vec, err := ix.embedder.Embed(ctx, seg.Text)
	if err != nil {
		return fmt.Errorf("semantic index: embed segment %q: %w", seg.ID, err)
	}
	return ix.upsert(ctx, transcriptID, seg, vec)
}

// IndexTranscript embeds and upserts every segment of t in one batch
// provider call.
func (ix *Index) IndexTranscript(ctx context.Context, t *transcript.Transcript) error {
	if len(t.Segments) == 0 {
		return nil
	}

	texts := make([]string, len(t.Segments))
	for i, seg := range t.Segments {
		texts[i] = seg.Text
	}
	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("semantic index: embed transcript %q: %w", t.ID, err)
	}

	for i, seg := range t.Segments {
		if err := ix.upsert(ctx, t.ID, seg, vecs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) upsert(ctx context.Context, transcriptID string, seg transcript.Segment, vec []float32) error {
	const q = `
		INSERT INTO segment_embeddings (segment_id, transcript_id, content, embedding, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (transcript_id, segment_id) DO UPDATE SET
		    content    = EXCLUDED.content,
		    embedding  = EXCLUDED.embedding,
		    updated_at = now()`

	_, err := ix.pool.Exec(ctx, q, seg.ID, transcriptID, seg.Text, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("semantic index: upsert segment %q: %w", seg.ID, err)
	}
	return nil
}

// Search finds the topK indexed segments of a transcript closest to
// query by cosine distance, most similar first.
func (ix *Index) Search(ctx context.Context, transcriptID, query string, topK int) ([]Match, error) {
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("semantic index: embed query: %w", err)
	}

	const q = `
		SELECT segment_id, content, embedding <=> $1 AS distance
		FROM   segment_embeddings
		WHERE  transcript_id = $2
		ORDER  BY distance
		LIMIT  $3`

	rows, err := ix.pool.Query(ctx, q, pgvector.NewVector(vec), transcriptID, topK)
	if err != nil {
		return nil, fmt.Errorf("semantic index: search: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Match, error) {
		var m Match
		if err := row.Scan(&m.SegmentID, &m.Text, &m.Distance); err != nil {
			return Match{}, err
		}
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("semantic index: scan rows: %w", err)
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches, nil
}

// Related returns the texts of up to topK segments similar to text,
// most similar first. It adapts [Index.Search] to the shape the rewrite
// engine consumes.
func (ix *Index) Related(ctx context.Context, transcriptID, text string, topK int) ([]string, error) {
	matches, err := ix.Search(ctx, transcriptID, text, topK)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		// The segment being edited is usually its own best match; callers
		// pass its text verbatim, so drop exact duplicates.
		if m.Text == text {
			continue
		}
		out = append(out, m.Text)
	}
	return out, nil
}

// DeleteTranscript removes all indexed segments of a transcript.
func (ix *Index) DeleteTranscript(ctx context.Context, transcriptID string) error {
	_, err := ix.pool.Exec(ctx,
		`DELETE FROM segment_embeddings WHERE transcript_id = $1`, transcriptID)
	if err != nil {
		return fmt.Errorf("semantic index: delete transcript %q: %w", transcriptID, err)
	}
	return nil
}
