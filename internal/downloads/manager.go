package downloads

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/kansho/kansho/internal/kv"
	"github.com/kansho/kansho/internal/providers/manga"
	"github.com/kansho/kansho/internal/storage"
)

// Manager is the queue control surface exposed to the UI. It owns the store
// and the engine; construct exactly one in the composition root and pass it
// down by reference.
type Manager struct {
	store  *Store
	engine *Engine
	layout Layout

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(kvStore kv.Store, layout Layout, sources *manga.Registry, fetcher storage.Fetcher) *Manager {
	store := NewStore(kvStore, layout)
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:  store,
		engine: NewEngine(store, layout, sources, fetcher),
		layout: layout,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Initialize prepares storage and loads the persisted queue. Call once
// before any other method.
func (manager *Manager) Initialize() error {
	return manager.store.Initialize()
}

// Close stops the engine at its next checkpoint. In-flight page transfers
// are not interrupted.
func (manager *Manager) Close() {
	manager.cancel()
}

func (manager *Manager) Subscribe(listener Listener) func() {
	return manager.store.Subscribe(listener)
}

func (manager *Manager) Tasks() []Task {
	return manager.store.Tasks()
}

// Queue enqueues a chapter download. Enqueueing a pair that is already
// pending, downloading, or paused returns the existing task unchanged.
func (manager *Manager) Queue(sourceID, mangaID, chapterID string) Task {
	if existing, ok := manager.store.FindActive(mangaID, chapterID); ok {
		return existing
	}

	task := NewTask(sourceID, mangaID, chapterID, time.Now())
	manager.store.Append(task)
	manager.kick()
	return task
}

// Pause requests a pause; it takes effect at the engine's next page
// checkpoint. Unknown ids and tasks not currently downloading are no-ops.
func (manager *Manager) Pause(taskID string) {
	if task, ok := manager.store.Get(taskID); !ok || !CanTransition(task.Status, StatusPaused) {
		return
	}
	manager.store.Update(taskID, func(task *Task) {
		if CanTransition(task.Status, StatusPaused) {
			task.Status = StatusPaused
		}
	})
}

// Resume moves a paused task back to PENDING at its original queue position
// and restarts the engine. The page list is re-fetched from scratch; already
// downloaded pages are overwritten harmlessly.
func (manager *Manager) Resume(taskID string) {
	if task, ok := manager.store.Get(taskID); !ok || !CanTransition(task.Status, StatusPending) {
		return
	}
	task, ok := manager.store.Update(taskID, func(task *Task) {
		if CanTransition(task.Status, StatusPending) {
			task.Status = StatusPending
		}
	})
	if ok && task.Status == StatusPending {
		manager.kick()
	}
}

// Cancel removes the task record and its chapter directory, regardless of
// status. Unknown ids and missing directories are not errors.
func (manager *Manager) Cancel(taskID string) {
	task, ok := manager.store.Get(taskID)
	if !ok {
		return
	}
	if err := storage.RemoveTree(manager.layout.ChapterDir(task.MangaID, task.ChapterID)); err != nil {
		log.Printf("downloads: cleanup for cancelled task %s: %v", taskID, err)
	}
	manager.store.Remove(taskID)
}

func (manager *Manager) IsChapterDownloaded(mangaID, chapterID string) bool {
	for _, task := range manager.store.Tasks() {
		if task.MangaID == mangaID && task.ChapterID == chapterID && task.Status == StatusCompleted {
			return true
		}
	}
	return false
}

// DownloadedPages lists the chapter's downloaded image files in page order.
func (manager *Manager) DownloadedPages(mangaID, chapterID string) ([]string, error) {
	chapterDir := manager.layout.ChapterDir(mangaID, chapterID)
	names, err := storage.ListFiles(chapterDir)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		if !isImageFile(name) {
			continue
		}
		paths = append(paths, filepath.Join(chapterDir, name))
	}
	return paths, nil
}

// Usage is the on-disk footprint of the managed directories, in bytes.
type Usage struct {
	Downloads int64
	Cache     int64
}

func (manager *Manager) StorageUsage() (Usage, error) {
	downloads, err := storage.TreeSize(manager.layout.DownloadsDir())
	if err != nil {
		return Usage{}, err
	}
	cache, err := storage.TreeSize(manager.layout.CacheDir())
	if err != nil {
		return Usage{}, err
	}
	return Usage{Downloads: downloads, Cache: cache}, nil
}

func (manager *Manager) ClearCache() error {
	if err := storage.RemoveTree(manager.layout.CacheDir()); err != nil {
		return err
	}
	return storage.EnsureDir(manager.layout.CacheDir())
}

// ClearAllDownloads wipes the downloads root and empties the queue.
func (manager *Manager) ClearAllDownloads() error {
	if err := storage.RemoveTree(manager.layout.DownloadsDir()); err != nil {
		return err
	}
	if err := storage.EnsureDir(manager.layout.DownloadsDir()); err != nil {
		return err
	}
	manager.store.Clear()
	return nil
}

// ExportBackup writes payload as timestamped JSON into the backups directory
// and returns the file path.
func (manager *Manager) ExportBackup(payload any) (string, error) {
	path := manager.layout.BackupPath(time.Now().UnixMilli())
	if err := storage.WriteJSON(path, payload); err != nil {
		return "", err
	}
	return path, nil
}

func (manager *Manager) ImportBackup(path string, out any) error {
	return storage.ReadJSON(path, out)
}

func (manager *Manager) kick() {
	go manager.engine.ProcessQueue(manager.ctx)
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}
