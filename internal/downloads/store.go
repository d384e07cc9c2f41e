package downloads

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kansho/kansho/internal/kv"
	"github.com/kansho/kansho/internal/storage"
)

const tasksKey = "downloads.tasks"

// Listener receives a defensive snapshot of the full task list after every
// mutation. Listeners run synchronously in registration order and must not
// call back into the store.
type Listener func(tasks []Task)

// Store owns the authoritative, ordered task list. Every mutation serializes
// the whole list to the key-value store and then notifies subscribers; the
// list is never reordered in place, only appended to or shrunk by removal.
type Store struct {
	mu       sync.Mutex
	kv       kv.Store
	layout   Layout
	tasks    []Task
	subs     map[string]Listener
	subOrder []string
	now      func() time.Time
}

func NewStore(kvStore kv.Store, layout Layout) *Store {
	return &Store{
		kv:     kvStore,
		layout: layout,
		subs:   make(map[string]Listener),
		now:    time.Now,
	}
}

// Initialize ensures the storage roots exist and loads any previously
// persisted queue. A missing or unreadable blob leaves the queue empty;
// downloads are not critical enough to fail startup over.
func (store *Store) Initialize() error {
	for _, dir := range []string{store.layout.DownloadsDir(), store.layout.CacheDir(), store.layout.BackupsDir()} {
		if err := storage.EnsureDir(dir); err != nil {
			return err
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	raw, ok, err := store.kv.Get(tasksKey)
	if err != nil {
		log.Printf("downloads: unable to read persisted queue: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	var tasks []Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		log.Printf("downloads: unable to parse persisted queue: %v", err)
		return nil
	}

	// A task caught mid-download by a crash goes back to the front of the
	// queue; it will re-fetch its page list on the next claim.
	for i := range tasks {
		if tasks[i].Status == StatusDownloading {
			tasks[i].Status = StatusPending
		}
	}
	store.tasks = tasks
	return nil
}

// Subscribe registers a listener and returns a function that removes it.
func (store *Store) Subscribe(listener Listener) func() {
	store.mu.Lock()
	defer store.mu.Unlock()

	id := uuid.NewString()
	store.subs[id] = listener
	store.subOrder = append(store.subOrder, id)

	return func() {
		store.mu.Lock()
		defer store.mu.Unlock()
		delete(store.subs, id)
		for i, subID := range store.subOrder {
			if subID == id {
				store.subOrder = append(store.subOrder[:i], store.subOrder[i+1:]...)
				break
			}
		}
	}
}

// Tasks returns a snapshot of the queue in insertion order.
func (store *Store) Tasks() []Task {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.snapshotLocked()
}

func (store *Store) Get(id string) (Task, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, task := range store.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return Task{}, false
}

// Status reports the current persisted status of a task; the engine reads
// this between page downloads as its pause/cancel checkpoint.
func (store *Store) Status(id string) (Status, bool) {
	task, ok := store.Get(id)
	return task.Status, ok
}

// FindActive returns the non-terminal task for a (manga, chapter) pair, if
// one exists. At most one can exist at a time.
func (store *Store) FindActive(mangaID, chapterID string) (Task, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, task := range store.tasks {
		if task.MangaID == mangaID && task.ChapterID == chapterID && task.Active() {
			return task, true
		}
	}
	return Task{}, false
}

// NextPending returns the oldest PENDING task in insertion order.
func (store *Store) NextPending() (Task, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, task := range store.tasks {
		if task.Status == StatusPending {
			return task, true
		}
	}
	return Task{}, false
}

func (store *Store) Append(task Task) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.tasks = append(store.tasks, task)
	store.persistLocked()
}

// Update applies mutate to the task with the given id, refreshes UpdatedAt,
// persists, and notifies. It reports whether the task existed.
func (store *Store) Update(id string, mutate func(task *Task)) (Task, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for i := range store.tasks {
		if store.tasks[i].ID != id {
			continue
		}
		mutate(&store.tasks[i])
		store.tasks[i].UpdatedAt = store.now().UnixMilli()
		updated := store.tasks[i]
		store.persistLocked()
		return updated, true
	}
	return Task{}, false
}

func (store *Store) Remove(id string) (Task, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for i := range store.tasks {
		if store.tasks[i].ID != id {
			continue
		}
		removed := store.tasks[i]
		store.tasks = append(store.tasks[:i], store.tasks[i+1:]...)
		store.persistLocked()
		return removed, true
	}
	return Task{}, false
}

func (store *Store) Clear() {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.tasks = nil
	store.persistLocked()
}

func (store *Store) snapshotLocked() []Task {
	snapshot := make([]Task, len(store.tasks))
	copy(snapshot, store.tasks)
	return snapshot
}

func (store *Store) persistLocked() {
	data, err := json.Marshal(store.tasks)
	if err != nil {
		log.Printf("downloads: unable to serialize queue: %v", err)
	} else if err := store.kv.Set(tasksKey, string(data)); err != nil {
		log.Printf("downloads: unable to persist queue: %v", err)
	}

	snapshot := store.snapshotLocked()
	for _, id := range store.subOrder {
		if listener, ok := store.subs[id]; ok {
			listener(snapshot)
		}
	}
}
