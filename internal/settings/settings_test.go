package settings

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestGetCreatesDefaultOnFirstRead(t *testing.T) {
	store := openTestStore(t)
	rec, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Version != 1 {
		t.Errorf("version = %d, want 1", rec.Version)
	}
	if rec.Config.ResponseMethod != "mask" {
		t.Errorf("response method = %q, want mask", rec.Config.ResponseMethod)
	}
}

func TestGetIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	first, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	second, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if first.Version != second.Version {
		t.Errorf("version changed across reads: %d vs %d", first.Version, second.Version)
	}
}

func TestUpdateAppliesAndBumpsVersion(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	newCfg := Config{ResponseMethod: "block", ServiceFilters: map[string]map[string]bool{"web": {"claude": true}}}
	updated, err := store.Update(ctx, newCfg, &rec.Version)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != rec.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, rec.Version+1)
	}
	if updated.Config.ResponseMethod != "block" {
		t.Errorf("response method = %q, want block", updated.Config.ResponseMethod)
	}

	reread, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("re-Get: %v", err)
	}
	if reread.Config.ResponseMethod != "block" {
		t.Errorf("persisted response method = %q, want block", reread.Config.ResponseMethod)
	}
}

func TestUpdateRejectsStaleVersion(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	stale := rec.Version
	if _, err := store.Update(ctx, Config{ResponseMethod: "allow"}, &stale); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	if _, err := store.Update(ctx, Config{ResponseMethod: "mask"}, &stale); err != ErrVersionConflict {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestUpdateWithoutExpectedVersionAlwaysApplies(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Update(ctx, Config{ResponseMethod: "allow"}, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.Update(ctx, Config{ResponseMethod: "block"}, nil); err != nil {
		t.Fatalf("second Update: %v", err)
	}

	rec, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Config.ResponseMethod != "block" {
		t.Errorf("response method = %q, want block", rec.Config.ResponseMethod)
	}
}
