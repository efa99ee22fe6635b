package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the dictionary_terms table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS dictionary_terms (
    id         TEXT PRIMARY KEY,
    canonical  TEXT NOT NULL,
    variants   JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_dictionary_terms_canonical ON dictionary_terms(canonical);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
// Variants are serialised as JSONB.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given
// database connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing
// queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// dictionary_terms table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("dictionary: migrate: %w", err)
	}
	return nil
}

// Put implements [Store.Put].
func (s *PostgresStore) Put(ctx context.Context, term Term) (Term, error) {
	if term.ID == "" {
		id, err := generateID()
		if err != nil {
			return Term{}, fmt.Errorf("dictionary: generate id: %w", err)
		}
		term.ID = id
	}

	variantsJSON, err := json.Marshal(emptySlice(term.Variants))
	if err != nil {
		return Term{}, fmt.Errorf("dictionary: marshal variants: %w", err)
	}

	const query = `
		INSERT INTO dictionary_terms (id, canonical, variants)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	err = s.db.QueryRow(ctx, query, term.ID, term.Canonical, variantsJSON).
		Scan(&term.CreatedAt, &term.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return Term{}, ErrDuplicateID
		}
		return Term{}, fmt.Errorf("dictionary: put: %w", err)
	}
	return term, nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (Term, error) {
	const query = `
		SELECT id, canonical, variants, created_at, updated_at
		FROM dictionary_terms
		WHERE id = $1`

	var (
		term         Term
		variantsJSON []byte
	)
	err := s.db.QueryRow(ctx, query, id).
		Scan(&term.ID, &term.Canonical, &variantsJSON, &term.CreatedAt, &term.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Term{}, ErrNotFound
		}
		return Term{}, fmt.Errorf("dictionary: get %q: %w", id, err)
	}
	if err := json.Unmarshal(variantsJSON, &term.Variants); err != nil {
		return Term{}, fmt.Errorf("dictionary: unmarshal variants: %w", err)
	}
	return term, nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context) ([]Term, error) {
	const query = `
		SELECT id, canonical, variants, created_at, updated_at
		FROM dictionary_terms
		ORDER BY canonical`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dictionary: list: %w", err)
	}

	terms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Term, error) {
		var (
			term         Term
			variantsJSON []byte
		)
		if err := row.Scan(&term.ID, &term.Canonical, &variantsJSON, &term.CreatedAt, &term.UpdatedAt); err != nil {
			return Term{}, err
		}
		if err := json.Unmarshal(variantsJSON, &term.Variants); err != nil {
			return Term{}, err
		}
		return term, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dictionary: list: %w", err)
	}
	return terms, nil
}

// Update implements [Store.Update].
func (s *PostgresStore) Update(ctx context.Context, term Term) error {
	if term.ID == "" {
		return fmt.Errorf("dictionary: update requires a term id")
	}

	variantsJSON, err := json.Marshal(emptySlice(term.Variants))
	if err != nil {
		return fmt.Errorf("dictionary: marshal variants: %w", err)
	}

	const query = `
		UPDATE dictionary_terms
		SET canonical = $2, variants = $3, updated_at = now()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, term.ID, term.Canonical, variantsJSON)
	if err != nil {
		return fmt.Errorf("dictionary: update %q: %w", term.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements [Store.Delete].
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM dictionary_terms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("dictionary: delete %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// emptySlice maps nil to an empty slice so JSONB columns never hold null.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isDuplicateKeyError checks whether a PostgreSQL error is a
// unique-violation (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
