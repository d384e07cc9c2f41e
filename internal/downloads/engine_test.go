package downloads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestEngineDownloadsChapterToCompletion(t *testing.T) {
	h := newHarness(t)
	h.source.setChapter("ch-1", 3)
	task := h.enqueue(t, "one-piece", "ch-1")

	h.engine.ProcessQueue(context.Background())

	final := h.mustGet(t, task.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (error: %q)", final.Status, final.Error)
	}
	if final.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", final.Progress)
	}
	if final.TotalPages != 3 || final.DownloadedPages != 3 {
		t.Fatalf("expected 3/3 pages, got %d/%d", final.DownloadedPages, final.TotalPages)
	}

	files := chapterFiles(t, h.layout, "one-piece", "ch-1")
	want := []string{"page_0000.jpg", "page_0001.jpg", "page_0002.jpg"}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), files)
	}
	for i, name := range want {
		if files[i] != name {
			t.Fatalf("file %d: expected %s, got %s", i, name, files[i])
		}
	}
}

func TestEngineFailsTaskWhenSourceMissing(t *testing.T) {
	h := newHarness(t)
	task := NewTask("no-such-source", "berserk", "ch-1", time.Now())
	h.store.Append(task)

	h.engine.ProcessQueue(context.Background())

	final := h.mustGet(t, task.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", final.Status)
	}
	if final.Error == "" {
		t.Fatal("expected a failure reason")
	}
	if final.TotalPages != 0 {
		t.Fatalf("expected totalPages 0, got %d", final.TotalPages)
	}
	if h.fetcher.callCount() != 0 {
		t.Fatalf("expected no page fetches, got %d", h.fetcher.callCount())
	}
}

func TestEngineFailsTaskOnPageListError(t *testing.T) {
	h := newHarness(t)
	h.source.pagesErr = errors.New("upstream 503")
	task := h.enqueue(t, "berserk", "ch-2")

	h.engine.ProcessQueue(context.Background())

	final := h.mustGet(t, task.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", final.Status)
	}
	if final.TotalPages != 0 {
		t.Fatalf("expected totalPages 0, got %d", final.TotalPages)
	}
}

func TestEngineFailsMidChapterAndKeepsEarlierPages(t *testing.T) {
	h := newHarness(t)
	h.source.setChapter("ch-3", 5)
	h.fetcher.onFetch = func(call int, _, _ string) error {
		if call == 2 {
			return errors.New("connection reset")
		}
		return nil
	}
	task := h.enqueue(t, "vagabond", "ch-3")

	h.engine.ProcessQueue(context.Background())

	final := h.mustGet(t, task.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", final.Status)
	}
	if final.DownloadedPages != 2 {
		t.Fatalf("expected downloadedPages 2, got %d", final.DownloadedPages)
	}

	files := chapterFiles(t, h.layout, "vagabond", "ch-3")
	if len(files) != 2 {
		t.Fatalf("expected pages 0 and 1 on disk, got %v", files)
	}
}

func TestEngineDrainsQueueInFIFOOrder(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.source.setChapter(fmt.Sprintf("ch-%d", i), 1)
	}
	a := h.enqueue(t, "m", "ch-0")
	b := h.enqueue(t, "m", "ch-1")
	c := h.enqueue(t, "m", "ch-2")

	var claims []string
	terminal := map[string]bool{}
	h.store.Subscribe(func(tasks []Task) {
		for _, task := range tasks {
			switch task.Status {
			case StatusDownloading:
				if len(claims) == 0 || claims[len(claims)-1] != task.ID {
					// A later task must never be claimed before an earlier
					// one reached a terminal state.
					if len(claims) > 0 && !terminal[claims[len(claims)-1]] {
						t.Errorf("task %s claimed while %s still active", task.ID, claims[len(claims)-1])
					}
					claims = append(claims, task.ID)
				}
			case StatusCompleted, StatusFailed:
				terminal[task.ID] = true
			}
		}
	})

	h.engine.ProcessQueue(context.Background())

	want := []string{a.ID, b.ID, c.ID}
	if len(claims) != 3 {
		t.Fatalf("expected 3 claims, got %v", claims)
	}
	for i, id := range want {
		if claims[i] != id {
			t.Fatalf("claim %d: expected %s, got %s", i, id, claims[i])
		}
	}
}

func TestEngineProgressMonotonicAndCorrelatedWithStatus(t *testing.T) {
	h := newHarness(t)
	h.source.setChapter("ch-9", 7)
	task := h.enqueue(t, "monster", "ch-9")

	lastPages := 0
	h.store.Subscribe(func(tasks []Task) {
		for _, snapshot := range tasks {
			if snapshot.ID != task.ID {
				continue
			}
			if snapshot.DownloadedPages < lastPages {
				t.Errorf("downloadedPages went backwards: %d -> %d", lastPages, snapshot.DownloadedPages)
			}
			lastPages = snapshot.DownloadedPages
			if (snapshot.Progress == 100) != (snapshot.Status == StatusCompleted) {
				t.Errorf("progress %d with status %s", snapshot.Progress, snapshot.Status)
			}
		}
	})

	h.engine.ProcessQueue(context.Background())

	final := h.mustGet(t, task.ID)
	if final.Status != StatusCompleted || final.DownloadedPages != 7 {
		t.Fatalf("expected completion at 7 pages, got %s %d", final.Status, final.DownloadedPages)
	}
}

func TestEngineHonorsPauseAtNextCheckpoint(t *testing.T) {
	h := newHarness(t)
	h.source.setChapter("ch-4", 4)
	task := h.enqueue(t, "claymore", "ch-4")

	h.fetcher.onFetch = func(call int, _, _ string) error {
		if call == 1 {
			// Pause request lands while page 1 is in flight; the engine
			// must finish this page and stop at the checkpoint before
			// page 2.
			h.store.Update(task.ID, func(task *Task) {
				if CanTransition(task.Status, StatusPaused) {
					task.Status = StatusPaused
				}
			})
		}
		return nil
	}

	h.engine.ProcessQueue(context.Background())

	final := h.mustGet(t, task.ID)
	if final.Status != StatusPaused {
		t.Fatalf("expected PAUSED, got %s", final.Status)
	}
	if final.DownloadedPages != 2 {
		t.Fatalf("expected downloadedPages 2, got %d", final.DownloadedPages)
	}
	if files := chapterFiles(t, h.layout, "claymore", "ch-4"); len(files) != 2 {
		t.Fatalf("expected 2 page files, got %v", files)
	}
}

func TestEnginePauseResumeRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.source.setChapter("ch-5", 4)
	task := h.enqueue(t, "claymore", "ch-5")

	h.fetcher.onFetch = func(call int, _, _ string) error {
		if call == 1 {
			h.store.Update(task.ID, func(task *Task) {
				if CanTransition(task.Status, StatusPaused) {
					task.Status = StatusPaused
				}
			})
		}
		return nil
	}
	h.engine.ProcessQueue(context.Background())

	if paused := h.mustGet(t, task.ID); paused.Status != StatusPaused {
		t.Fatalf("expected PAUSED before resume, got %s", paused.Status)
	}

	// Resume re-fetches the page list and re-downloads from page 0,
	// overwriting the files already on disk.
	h.fetcher.onFetch = nil
	h.store.Update(task.ID, func(task *Task) {
		task.Status = StatusPending
	})
	h.engine.ProcessQueue(context.Background())

	final := h.mustGet(t, task.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED after resume, got %s", final.Status)
	}
	if final.DownloadedPages != 4 || final.TotalPages != 4 {
		t.Fatalf("expected 4/4 pages, got %d/%d", final.DownloadedPages, final.TotalPages)
	}
	if files := chapterFiles(t, h.layout, "claymore", "ch-5"); len(files) != 4 {
		t.Fatalf("expected 4 page files, got %v", files)
	}
}

func TestEngineStopsWhenTaskRemovedMidDownload(t *testing.T) {
	h := newHarness(t)
	h.source.setChapter("ch-6", 3)
	task := h.enqueue(t, "blame", "ch-6")

	h.fetcher.onFetch = func(call int, _, _ string) error {
		if call == 1 {
			h.store.Remove(task.ID)
		}
		return nil
	}

	h.engine.ProcessQueue(context.Background())

	if _, ok := h.store.Get(task.ID); ok {
		t.Fatal("expected task to stay removed")
	}
	// The page written while the cancel landed must not survive.
	if _, err := os.Stat(h.layout.ChapterDir("blame", "ch-6")); !os.IsNotExist(err) {
		t.Fatalf("expected chapter dir to be gone, stat err: %v", err)
	}
}

func TestEngineSecondProcessQueueCallIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.source.setChapter("ch-7", 2)
	h.enqueue(t, "akira", "ch-7")

	started := make(chan struct{})
	release := make(chan struct{})
	h.fetcher.onFetch = func(call int, _, _ string) error {
		if call == 0 {
			close(started)
			<-release
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		h.engine.ProcessQueue(context.Background())
		close(done)
	}()

	<-started
	// Re-entrant call while a task is active must return immediately.
	h.engine.ProcessQueue(context.Background())
	close(release)
	<-done

	if h.fetcher.callCount() != 2 {
		t.Fatalf("expected 2 page fetches, got %d", h.fetcher.callCount())
	}
}

func TestEngineContextCancellationStopsBetweenPages(t *testing.T) {
	h := newHarness(t)
	h.source.setChapter("ch-8", 5)
	task := h.enqueue(t, "dorohedoro", "ch-8")

	ctx, cancel := context.WithCancel(context.Background())
	h.fetcher.onFetch = func(call int, _, _ string) error {
		if call == 1 {
			cancel()
		}
		return nil
	}

	h.engine.ProcessQueue(ctx)

	final := h.mustGet(t, task.ID)
	if final.Status != StatusDownloading {
		t.Fatalf("expected task left DOWNLOADING for restart recovery, got %s", final.Status)
	}
	if final.DownloadedPages != 2 {
		t.Fatalf("expected downloadedPages 2, got %d", final.DownloadedPages)
	}
}
