package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"
)

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcripts (
    id          TEXT         PRIMARY KEY,
    name        TEXT         NOT NULL,
    revision    TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS segments (
    transcript_id  TEXT              NOT NULL REFERENCES transcripts (id) ON DELETE CASCADE,
    id             TEXT              NOT NULL,
    pos            INTEGER           NOT NULL,
    speaker        TEXT              NOT NULL DEFAULT '',
    tags           JSONB             NOT NULL DEFAULT '[]',
    start_sec      DOUBLE PRECISION  NOT NULL DEFAULT 0,
    end_sec        DOUBLE PRECISION  NOT NULL DEFAULT 0,
    text           TEXT              NOT NULL,
    words          JSONB             NOT NULL DEFAULT '[]',
    confirmed      BOOLEAN           NOT NULL DEFAULT FALSE,
    PRIMARY KEY (transcript_id, id)
);

CREATE INDEX IF NOT EXISTS idx_segments_transcript_pos
    ON segments (transcript_id, pos);
`

// Connect establishes a pgx connection pool to dsn, registers pgvector
// types on every connection, and pings the database once.
//
// The same pool serves the transcript store and the semantic index, which
// is why the vector types are registered here.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}

// PostgresStore is the PostgreSQL-backed [TranscriptStore].
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ TranscriptStore = (*PostgresStore)(nil)

// NewPostgres returns a [PostgresStore] over pool and runs the transcript
// schema migration. The migration is idempotent.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, ddlTranscripts); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Save implements [TranscriptStore]. The full segment set is rewritten in
// one transaction, so a loaded transcript always reflects exactly one save.
func (s *PostgresStore) Save(ctx context.Context, t *transcript.Transcript) error {
	if err := transcript.Normalize(t); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	revision := transcript.Revision(t)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const upsert = `
		INSERT INTO transcripts (id, name, revision, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
		    name       = EXCLUDED.name,
		    revision   = EXCLUDED.revision,
		    updated_at = now()`
	if _, err := tx.Exec(ctx, upsert, t.ID, t.Name, revision); err != nil {
		return fmt.Errorf("store: upsert transcript %q: %w", t.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM segments WHERE transcript_id = $1`, t.ID); err != nil {
		return fmt.Errorf("store: clear segments: %w", err)
	}

	const insert = `
		INSERT INTO segments
		    (transcript_id, id, pos, speaker, tags, start_sec, end_sec, text, words, confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for pos, seg := range t.Segments {
		tags, err := json.Marshal(seg.Tags)
		if err != nil {
			return fmt.Errorf("store: marshal tags: %w", err)
		}
		words, err := json.Marshal(seg.Words)
		if err != nil {
			return fmt.Errorf("store: marshal words: %w", err)
		}
		if _, err := tx.Exec(ctx, insert,
			t.ID, seg.ID, pos, seg.Speaker, tags,
			seg.Start, seg.End, seg.Text, words, seg.Confirmed,
		); err != nil {
			return fmt.Errorf("store: insert segment %q: %w", seg.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Load implements [TranscriptStore].
func (s *PostgresStore) Load(ctx context.Context, id string) (*transcript.Transcript, error) {
	t := &transcript.Transcript{ID: id}

	err := s.pool.QueryRow(ctx,
		`SELECT name FROM transcripts WHERE id = $1`, id,
	).Scan(&t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("store: load %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, speaker, tags, start_sec, end_sec, text, words, confirmed
		FROM   segments
		WHERE  transcript_id = $1
		ORDER  BY pos`, id)
	if err != nil {
		return nil, fmt.Errorf("store: load segments: %w", err)
	}

	t.Segments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (transcript.Segment, error) {
		var (
			seg   transcript.Segment
			tags  []byte
			words []byte
		)
		if err := row.Scan(&seg.ID, &seg.Speaker, &tags,
			&seg.Start, &seg.End, &seg.Text, &words, &seg.Confirmed); err != nil {
			return transcript.Segment{}, err
		}
		if err := json.Unmarshal(tags, &seg.Tags); err != nil {
			return transcript.Segment{}, err
		}
		if err := json.Unmarshal(words, &seg.Words); err != nil {
			return transcript.Segment{}, err
		}
		return seg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: scan segments: %w", err)
	}
	if t.Segments == nil {
		t.Segments = []transcript.Segment{}
	}
	return t, nil
}

// List implements [TranscriptStore].
func (s *PostgresStore) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name, t.revision, t.updated_at,
		       (SELECT count(*) FROM segments s WHERE s.transcript_id = t.id)
		FROM   transcripts t
		ORDER  BY t.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}

	metas, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Meta, error) {
		var m Meta
		err := row.Scan(&m.ID, &m.Name, &m.Revision, &m.UpdatedAt, &m.SegmentCount)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("store: scan list: %w", err)
	}
	if metas == nil {
		metas = []Meta{}
	}
	return metas, nil
}

// Delete implements [TranscriptStore]. Segments go with the transcript via
// ON DELETE CASCADE.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transcripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: delete %q: %w", id, ErrNotFound)
	}
	return nil
}

// SetConfirmed implements [TranscriptStore]. The transcript revision is
// bumped in the same transaction since the confirmed flag is part of the
// hashed content.
func (s *PostgresStore) SetConfirmed(ctx context.Context, transcriptID, segmentID string, confirmed bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE segments SET confirmed = $1
		WHERE  transcript_id = $2 AND id = $3`,
		confirmed, transcriptID, segmentID)
	if err != nil {
		return fmt.Errorf("store: set confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: set confirmed %q/%q: %w", transcriptID, segmentID, ErrNotFound)
	}

	if err := s.bumpRevision(ctx, tx, transcriptID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// bumpRevision recomputes the stored revision hash from the row data
// inside tx.
func (s *PostgresStore) bumpRevision(ctx context.Context, tx pgx.Tx, transcriptID string) error {
	t := &transcript.Transcript{ID: transcriptID}
	if err := tx.QueryRow(ctx,
		`SELECT name FROM transcripts WHERE id = $1`, transcriptID,
	).Scan(&t.Name); err != nil {
		return fmt.Errorf("store: bump revision: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, speaker, tags, start_sec, end_sec, text, words, confirmed
		FROM   segments
		WHERE  transcript_id = $1
		ORDER  BY pos`, transcriptID)
	if err != nil {
		return fmt.Errorf("store: bump revision: %w", err)
	}
	t.Segments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (transcript.Segment, error) {
		var (
			seg   transcript.Segment
			tags  []byte
			words []byte
		)
		if err := row.Scan(&seg.ID, &seg.Speaker, &tags,
			&seg.Start, &seg.End, &seg.Text, &words, &seg.Confirmed); err != nil {
			return transcript.Segment{}, err
		}
		if err := json.Unmarshal(tags, &seg.Tags); err != nil {
			return transcript.Segment{}, err
		}
		if err := json.Unmarshal(words, &seg.Words); err != nil {
			return transcript.Segment{}, err
		}
		return seg, nil
	})
	if err != nil {
		return fmt.Errorf("store: bump revision: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE transcripts SET revision = $1, updated_at = now()
		WHERE  id = $2`,
		transcript.Revision(t), transcriptID)
	if err != nil {
		return fmt.Errorf("store: bump revision: %w", err)
	}
	return nil
}
