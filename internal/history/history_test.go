package history

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRecordAndGet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	states := []string{
		`{"state":"closed","position":0}`,
		`{"state":"opening","position":20}`,
		`{"state":"open","position":100}`,
	}
	for _, s := range states {
		if err := repo.Record(ctx, "cover", "1.50.1", json.RawMessage(s)); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	entries, err := repo.Get(ctx, "cover", "1.50.1", 10)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	// Newest first.
	var newest map[string]any
	if err := json.Unmarshal(entries[0].State, &newest); err != nil {
		t.Fatal(err)
	}
	if newest["state"] != "open" {
		t.Errorf("newest state = %v, want open", newest["state"])
	}
}

func TestGetIsolatesDevices(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, "light", "1.1.1", json.RawMessage(`"ON"`)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Record(ctx, "light", "1.1.2", json.RawMessage(`"OFF"`)); err != nil {
		t.Fatal(err)
	}

	entries, err := repo.Get(ctx, "light", "1.1.1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestRecordRequiresIdentity(t *testing.T) {
	repo := openTestRepo(t)

	if err := repo.Record(context.Background(), "", "1.1.1", nil); err == nil {
		t.Error("Record() without kind expected error")
	}
	if err := repo.Record(context.Background(), "light", "", nil); err == nil {
		t.Error("Record() without address expected error")
	}
}

func TestPruneRejectsNonPositive(t *testing.T) {
	repo := openTestRepo(t)

	if _, err := repo.Prune(context.Background(), 0); err == nil {
		t.Error("Prune(0) expected error")
	}
	if _, err := repo.Prune(context.Background(), -time.Hour); err == nil {
		t.Error("Prune(negative) expected error")
	}
}

func TestGetLimitClamped(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, "temp", "1.24.1", json.RawMessage(`21`)); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := repo.Get(ctx, "temp", "1.24.1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want limit 2", len(entries))
	}
}
