package dictionary_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/dictionary"
)

func TestMemStore_PutAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := dictionary.NewMemStore()

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
	if got.Canonical != "Kubernetes" || len(got.Variants) != 1 {
		t.Errorf("Get: got %+v, want the stored term", got)
	}
}

func TestMemStore_PutDuplicateID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := dictionary.NewMemStore()

	if _, err := store.Put(ctx, dictionary.Term{ID: "term-1", Canonical: "Grafana"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, err := store.Put(ctx, dictionary.Term{ID: "term-1", Canonical: "Grafana again"})
	if !errors.Is(err, dictionary.ErrDuplicateID) {
		t.Fatalf("Put duplicate: want ErrDuplicateID, got %v", err)
	}
}

func TestMemStore_GetMissing(t *testing.T) {
	t.Parallel()

	_, err := dictionary.NewMemStore().Get(context.Background(), "nope")
	if !errors.Is(err, dictionary.ErrNotFound) {
		t.Fatalf("Get missing: want ErrNotFound, got %v", err)
	}
}

func TestMemStore_ListOrdersByCanonical(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := dictionary.NewMemStore()
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
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List order = %v, want %v", got, want)
		}
	}
}

func TestMemStore_UpdateAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := dictionary.NewMemStore()

	put, err := store.Put(ctx, dictionary.Term{Canonical: "Postgres"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	put.Variants = []string{"post grass"}
	if err := store.Update(ctx, put); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := store.Get(ctx, put.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Variants) != 1 || got.Variants[0] != "post grass" {
		t.Errorf("Update did not persist variants: %+v", got)
	}

	if err := store.Delete(ctx, put.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, put.ID); !errors.Is(err, dictionary.ErrNotFound) {
		t.Errorf("Get after delete: want ErrNotFound, got %v", err)
	}

	if err := store.Delete(ctx, put.ID); !errors.Is(err, dictionary.ErrNotFound) {
		t.Errorf("Delete missing: want ErrNotFound, got %v", err)
	}
	if err := store.Update(ctx, dictionary.Term{ID: "gone"}); !errors.Is(err, dictionary.ErrNotFound) {
		t.Errorf("Update missing: want ErrNotFound, got %v", err)
	}
}
