package downloads

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kansho/kansho/internal/kv"
	"github.com/kansho/kansho/internal/providers/manga"
	"github.com/kansho/kansho/internal/storage"
)

// fakeSource serves a fixed page list per chapter, or a scripted error.
type fakeSource struct {
	id       string
	pages    map[string][]manga.Page
	pagesErr error
}

func newFakeSource(id string) *fakeSource {
	return &fakeSource{id: id, pages: map[string][]manga.Page{}}
}

func (source *fakeSource) setChapter(chapterID string, pageCount int) {
	pages := make([]manga.Page, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		pages = append(pages, manga.Page{
			ID:  fmt.Sprintf("%s/%d", chapterID, i),
			URL: fmt.Sprintf("https://img.example.com/%s/%d.jpg", chapterID, i),
		})
	}
	source.pages[chapterID] = pages
}

func (source *fakeSource) Info() manga.SourceInfo {
	return manga.SourceInfo{ID: source.id, Name: source.id, Locale: "en", ContentType: "manga"}
}

func (source *fakeSource) Search(context.Context, string, int) ([]manga.Summary, error) {
	return nil, nil
}

func (source *fakeSource) Details(context.Context, string) (manga.Details, error) {
	return manga.Details{}, nil
}

func (source *fakeSource) Chapters(context.Context, string) ([]manga.Chapter, error) {
	return nil, nil
}

func (source *fakeSource) Pages(_ context.Context, chapterID string) ([]manga.Page, error) {
	if source.pagesErr != nil {
		return nil, source.pagesErr
	}
	return source.pages[chapterID], nil
}

func (source *fakeSource) ResolvePage(_ context.Context, page manga.Page) (string, error) {
	return page.URL, nil
}

// fakeFetcher writes a fixed payload to the destination path. onFetch runs
// before each write with the zero-based call number and may fail the call.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	onFetch func(call int, url, destPath string) error
}

func (fetcher *fakeFetcher) Fetch(_ context.Context, url, destPath string) error {
	fetcher.mu.Lock()
	call := fetcher.calls
	fetcher.calls++
	hook := fetcher.onFetch
	fetcher.mu.Unlock()

	if hook != nil {
		if err := hook(call, url, destPath); err != nil {
			return err
		}
	}
	return storage.WriteBytes(destPath, []byte("image-bytes"))
}

func (fetcher *fakeFetcher) setHook(hook func(call int, url, destPath string) error) {
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	fetcher.onFetch = hook
}

func (fetcher *fakeFetcher) callCount() int {
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	return fetcher.calls
}

type harness struct {
	layout  Layout
	store   *Store
	engine  *Engine
	source  *fakeSource
	fetcher *fakeFetcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	layout := Layout{Root: t.TempDir()}
	kvStore := kv.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	store := NewStore(kvStore, layout)
	if err := store.Initialize(); err != nil {
		t.Fatalf("initialize store: %v", err)
	}

	source := newFakeSource("fake")
	fetcher := &fakeFetcher{}
	engine := NewEngine(store, layout, manga.NewRegistry(source), fetcher)

	return &harness{layout: layout, store: store, engine: engine, source: source, fetcher: fetcher}
}

func (h *harness) enqueue(t *testing.T, mangaID, chapterID string) Task {
	t.Helper()
	task := NewTask(h.source.id, mangaID, chapterID, time.Now())
	h.store.Append(task)
	return task
}

func (h *harness) mustGet(t *testing.T, id string) Task {
	t.Helper()
	task, ok := h.store.Get(id)
	if !ok {
		t.Fatalf("task %s not found", id)
	}
	return task
}

func chapterFiles(t *testing.T, layout Layout, mangaID, chapterID string) []string {
	t.Helper()
	names, err := storage.ListFiles(layout.ChapterDir(mangaID, chapterID))
	if err != nil {
		t.Fatalf("list chapter files: %v", err)
	}
	return names
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
