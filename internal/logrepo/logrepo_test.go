package logrepo

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.db")
	repo, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	rec := Record{
		RequestID:      "req-1",
		Time:           "2026-07-30T12:00:00Z",
		Host:           "chatgpt.com",
		Hostname:       "DESKTOP-1",
		Prompt:         "call 010-1234-5678",
		Interface:      "web",
		ModifiedPrompt: "call PHONE",
		HasSensitive:   true,
		EntitiesJSON:   `[{"label":"PHONE","value":"010-1234-5678","begin":5,"end":18}]`,
		ProcessingMs:   42,
		FileBlocked:    false,
		Allow:          true,
		Action:         "mask_and_allow",
		CreatedAt:      time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC),
	}

	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(ctx, "req-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.Host != rec.Host || got.Action != rec.Action || got.ProcessingMs != rec.ProcessingMs {
		t.Errorf("round-tripped record mismatch: %+v", got)
	}
	if !got.HasSensitive || !got.Allow {
		t.Errorf("boolean fields didn't round-trip: %+v", got)
	}
}

func TestGetMissingRecordReturnsNilNotError(t *testing.T) {
	repo := openTestRepo(t)
	got, err := repo.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing record, got %+v", got)
	}
}

func TestCreateDuplicateRequestIDFails(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	rec := Record{RequestID: "dup", Time: "t", Prompt: "p", ModifiedPrompt: "p", Action: "allow", CreatedAt: time.Now()}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := repo.Create(ctx, rec); err == nil {
		t.Fatal("expected error inserting duplicate primary key")
	}
}

func TestEncodeEntities(t *testing.T) {
	got, err := EncodeEntities([]map[string]interface{}{{"label": "EMAIL", "value": "a@b.co", "begin": 0, "end": 6}})
	if err != nil {
		t.Fatalf("EncodeEntities: %v", err)
	}
	if got == "" || got == "null" {
		t.Errorf("unexpected encoding: %q", got)
	}
}
