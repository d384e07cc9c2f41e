package downloads

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/kansho/kansho/internal/providers/manga"
	"github.com/kansho/kansho/internal/storage"
)

// Engine drains the queue one task at a time, one page at a time. A single
// guard keeps at most one task active; pause and cancel are honored at the
// checkpoint between page downloads, never mid-transfer.
type Engine struct {
	store   *Store
	layout  Layout
	sources *manga.Registry
	fetcher storage.Fetcher

	mu     sync.Mutex
	active bool
}

func NewEngine(store *Store, layout Layout, sources *manga.Registry, fetcher storage.Fetcher) *Engine {
	return &Engine{store: store, layout: layout, sources: sources, fetcher: fetcher}
}

// ProcessQueue claims PENDING tasks oldest-first until none remain. It is a
// no-op while another call is already draining; failures are recorded on the
// task and never stop the queue.
func (engine *Engine) ProcessQueue(ctx context.Context) {
	if !engine.tryAcquire() {
		return
	}
	defer engine.release()

	for ctx.Err() == nil {
		task, ok := engine.store.NextPending()
		if !ok {
			return
		}
		engine.runTask(ctx, task)
	}
}

func (engine *Engine) tryAcquire() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.active {
		return false
	}
	engine.active = true
	return true
}

func (engine *Engine) release() {
	engine.mu.Lock()
	engine.active = false
	engine.mu.Unlock()
}

func (engine *Engine) runTask(ctx context.Context, task Task) {
	engine.store.Update(task.ID, func(task *Task) {
		task.Status = StatusDownloading
		task.DownloadedPages = 0
		task.Progress = 0
		task.Error = ""
	})

	if err := engine.downloadChapter(ctx, task); err != nil {
		engine.store.Update(task.ID, func(task *Task) {
			task.Status = StatusFailed
			task.Error = err.Error()
		})
		log.Printf("downloads: task %s failed: %v", task.ID, err)
	}
}

// downloadChapter runs one claimed task to completion. A nil return means
// the task reached a terminal state itself or was paused/removed at a
// checkpoint; an error means the task must be marked FAILED.
func (engine *Engine) downloadChapter(ctx context.Context, task Task) error {
	source, ok := engine.sources.Get(task.SourceID)
	if !ok {
		return fmt.Errorf("%w: no source with id %q is configured", manga.ErrSourceUnavailable, task.SourceID)
	}

	pages, err := source.Pages(ctx, task.ChapterID)
	if err != nil {
		return fmt.Errorf("fetching page list: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("fetching page list: %w", manga.ErrChapterNoPages)
	}

	engine.store.Update(task.ID, func(task *Task) {
		task.TotalPages = len(pages)
	})

	chapterDir := engine.layout.ChapterDir(task.MangaID, task.ChapterID)
	if err := storage.EnsureDir(chapterDir); err != nil {
		return err
	}

	for index, page := range pages {
		if ctx.Err() != nil {
			return nil
		}

		// Checkpoint: pause or cancel took effect since the last page.
		status, exists := engine.store.Status(task.ID)
		if !exists || status != StatusDownloading {
			return nil
		}

		pageURL, err := source.ResolvePage(ctx, page)
		if err != nil {
			return fmt.Errorf("resolving page %d: %w", index, err)
		}

		destPath := engine.layout.PagePath(task.MangaID, task.ChapterID, index)
		if err := engine.fetcher.Fetch(ctx, pageURL, destPath); err != nil {
			return fmt.Errorf("downloading page %d: %w", index, err)
		}

		downloaded := index + 1
		completed := downloaded == len(pages)
		if _, ok := engine.store.Update(task.ID, func(task *Task) {
			task.DownloadedPages = downloaded
			if completed {
				task.Status = StatusCompleted
				task.Progress = 100
			} else {
				task.Progress = progressPercent(downloaded, task.TotalPages)
			}
		}); !ok {
			// Cancelled while this page was in flight; drop the stray file.
			_ = storage.RemoveTree(chapterDir)
			return nil
		}
	}

	return nil
}
