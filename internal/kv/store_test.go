package kv

import (
	"os"
	"path/filepath"
	"testing"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.json")
}

func TestFileStoreGetMissingKey(t *testing.T) {
	store := NewFileStore(storePath(t))

	value, ok, err := store.Get("nope")
	if err != nil {
		t.Fatal(err)
	}
	if ok || value != "" {
		t.Fatalf("expected miss, got %q ok=%v", value, ok)
	}
}

func TestFileStoreSetThenGet(t *testing.T) {
	store := NewFileStore(storePath(t))

	if err := store.Set("downloads.tasks", `[{"id":"a"}]`); err != nil {
		t.Fatal(err)
	}
	value, ok, err := store.Get("downloads.tasks")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != `[{"id":"a"}]` {
		t.Fatalf("round trip failed: %q ok=%v", value, ok)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := storePath(t)

	first := NewFileStore(path)
	if err := first.Set("library.favorites", "[]"); err != nil {
		t.Fatal(err)
	}
	if err := first.Set("ui.theme", "dark"); err != nil {
		t.Fatal(err)
	}

	second := NewFileStore(path)
	value, ok, err := second.Get("ui.theme")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != "dark" {
		t.Fatalf("value lost on reopen: %q ok=%v", value, ok)
	}
}

func TestFileStoreRemove(t *testing.T) {
	path := storePath(t)
	store := NewFileStore(path)

	if err := store.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get("k"); ok {
		t.Fatal("key survived removal")
	}

	// Removing an absent key is a no-op.
	if err := store.Remove("k"); err != nil {
		t.Fatal(err)
	}

	reopened := NewFileStore(path)
	if _, ok, _ := reopened.Get("k"); ok {
		t.Fatal("removal not persisted")
	}
}

func TestFileStoreOverwriteKeepsLatestValue(t *testing.T) {
	store := NewFileStore(storePath(t))

	for _, value := range []string{"1", "2", "3"} {
		if err := store.Set("counter", value); err != nil {
			t.Fatal(err)
		}
	}
	value, _, err := store.Get("counter")
	if err != nil {
		t.Fatal(err)
	}
	if value != "3" {
		t.Fatalf("expected latest value, got %q", value)
	}
}

func TestFileStoreReportsCorruptFile(t *testing.T) {
	path := storePath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewFileStore(path)
	if _, _, err := store.Get("k"); err == nil {
		t.Fatal("expected parse error for corrupt store file")
	}
}
