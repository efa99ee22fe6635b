package dictionary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	// Registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
)

// sqliteSchema is the DDL for the local dictionary database.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dictionary_terms (
    id         TEXT PRIMARY KEY,
    canonical  TEXT NOT NULL,
    variants   TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dictionary_terms_canonical ON dictionary_terms(canonical);
`

// SQLiteStore is a [Store] backed by a local SQLite database file. It is
// the persistence backend for single-user FlowScribe installations.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if necessary) the SQLite database at path and
// ensures the dictionary schema exists. The returned store owns the
// connection; call [SQLiteStore.Close] when done.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("dictionary: open sqlite %q: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("dictionary: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put implements [Store.Put].
func (s *SQLiteStore) Put(ctx context.Context, term Term) (Term, error) {
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

	now := time.Now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		"insert into dictionary_terms (id, canonical, variants, created_at, updated_at) values (?, ?, ?, ?, ?)",
		term.ID, term.Canonical, string(variantsJSON), term.CreatedAt, term.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Term{}, ErrDuplicateID
		}
		return Term{}, fmt.Errorf("dictionary: put: %w", err)
	}
	return term, nil
}

// Get implements [Store.Get].
func (s *SQLiteStore) Get(ctx context.Context, id string) (Term, error) {
	var (
		term         Term
		variantsJSON string
	)
	err := s.db.QueryRowContext(ctx,
		"select id, canonical, variants, created_at, updated_at from dictionary_terms where id = ?",
		id,
	).Scan(&term.ID, &term.Canonical, &variantsJSON, &term.CreatedAt, &term.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Term{}, ErrNotFound
		}
		return Term{}, fmt.Errorf("dictionary: get %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(variantsJSON), &term.Variants); err != nil {
		return Term{}, fmt.Errorf("dictionary: unmarshal variants: %w", err)
	}
	return term, nil
}

// List implements [Store.List].
func (s *SQLiteStore) List(ctx context.Context) ([]Term, error) {
	rows, err := s.db.QueryContext(ctx,
		"select id, canonical, variants, created_at, updated_at from dictionary_terms order by canonical",
	)
	if err != nil {
		return nil, fmt.Errorf("dictionary: list: %w", err)
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		var (
			term         Term
			variantsJSON string
		)
		if err := rows.Scan(&term.ID, &term.Canonical, &variantsJSON, &term.CreatedAt, &term.UpdatedAt); err != nil {
			return nil, fmt.Errorf("dictionary: scan term: %w", err)
		}
		if err := json.Unmarshal([]byte(variantsJSON), &term.Variants); err != nil {
			return nil, fmt.Errorf("dictionary: unmarshal variants: %w", err)
		}
		terms = append(terms, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dictionary: list: %w", err)
	}
	return terms, nil
}

// Update implements [Store.Update].
func (s *SQLiteStore) Update(ctx context.Context, term Term) error {
	if term.ID == "" {
		return fmt.Errorf("dictionary: update requires a term id")
	}

	variantsJSON, err := json.Marshal(emptySlice(term.Variants))
	if err != nil {
		return fmt.Errorf("dictionary: marshal variants: %w", err)
	}

	// go-sqlite3 binds arguments positionally, so the placeholders must
	// appear in the same order as the argument list.
	res, err := s.db.ExecContext(ctx,
		"update dictionary_terms set canonical = ?, variants = ?, updated_at = ? where id = ?",
		term.Canonical, string(variantsJSON), time.Now().UTC(), term.ID,
	)
	if err != nil {
		return fmt.Errorf("dictionary: update %q: %w", term.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dictionary: update %q: %w", term.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements [Store.Delete].
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "delete from dictionary_terms where id = ?", id)
	if err != nil {
		return fmt.Errorf("dictionary: delete %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dictionary: delete %q: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
