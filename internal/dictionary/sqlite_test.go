package dictionary_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/dictionary"
)

// openTestSQLite opens a fresh database file in a per-test temp directory.
func openTestSQLite(t *testing.T) *dictionary.SQLiteStore {
	t.Helper()
	store, err := dictionary.OpenSQLite(filepath.Join(t.TempDir(), "dictionary.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestSQLiteStore_PutAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestSQLite(t)

	put, err := store.Put(ctx, dictionary.Term{
		Canonical: "Kubernetes",
		Variants:  []string{"cooper netties"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if put.ID == "" {
		t.Fatal("Put: empty term should get a generated id")
	}
	if put.CreatedAt.IsZero() || put.UpdatedAt.IsZero() {
		t.Error("Put: timestamps not set")
	}

	got, err := store.Get(ctx, put.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Canonical != "Kubernetes" || len(got.Variants) != 1 || got.Variants[0] != "cooper netties" {
		t.Errorf("Get: got %+v, want the stored term", got)
	}
}

func TestSQLiteStore_PutDuplicateID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestSQLite(t)

	if _, err := store.Put(ctx, dictionary.Term{ID: "term-1", Canonical: "Grafana"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, err := store.Put(ctx, dictionary.Term{ID: "term-1", Canonical: "Grafana again"})
	if !errors.Is(err, dictionary.ErrDuplicateID) {
		t.Fatalf("Put duplicate: want ErrDuplicateID, got %v", err)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	t.Parallel()

	_, err := openTestSQLite(t).Get(context.Background(), "nope")
	if !errors.Is(err, dictionary.ErrNotFound) {
		t.Fatalf("Get missing: want ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListOrdersByCanonical(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestSQLite(t)
	for _, canonical := range []string{"Zookeeper", "Ansible", "Mongo"} {
		if _, err := store.Put(ctx, dictionary.Term{Canonical: canonical}); err != nil {
			t.Fatalf("Put %q: %v", canonical, err)
		}
	}

	terms, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := dictionary.Canonicals(terms)
	want := []string{"Ansible", "Mongo", "Zookeeper"}
	if len(got) != len(want) {
		t.Fatalf("List returned %d terms, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List order = %v, want %v", got, want)
		}
	}
}

func TestSQLiteStore_UpdateExistingTerm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestSQLite(t)

	put, err := store.Put(ctx, dictionary.Term{Canonical: "Postgres"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	put.Canonical = "PostgreSQL"
	put.Variants = []string{"post grass"}
	if err := store.Update(ctx, put); err != nil {
		t.Fatalf("Update of existing term: %v", err)
	}

	got, err := store.Get(ctx, put.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Canonical != "PostgreSQL" {
		t.Errorf("Update did not persist canonical: got %q", got.Canonical)
	}
	if len(got.Variants) != 1 || got.Variants[0] != "post grass" {
		t.Errorf("Update did not persist variants: %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("Update did not bump updated_at: created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestSQLiteStore_UpdateAndDeleteMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestSQLite(t)

	if err := store.Update(ctx, dictionary.Term{ID: "gone", Canonical: "X"}); !errors.Is(err, dictionary.ErrNotFound) {
		t.Errorf("Update missing: want ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "gone"); !errors.Is(err, dictionary.ErrNotFound) {
		t.Errorf("Delete missing: want ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestSQLite(t)

	put, err := store.Put(ctx, dictionary.Term{Canonical: "Terraform"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, put.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, put.ID); !errors.Is(err, dictionary.ErrNotFound) {
		t.Errorf("Get after delete: want ErrNotFound, got %v", err)
	}
}
