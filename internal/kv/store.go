// Package kv provides the key-value persistence used for app state that is
// cheap to lose: the download queue, reading history, UI preferences.
package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/kansho/kansho/internal/storage"
)

type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// FileStore keeps all keys in a single JSON file, rewritten atomically on
// every Set/Remove.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	loaded bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, values: make(map[string]string)}
}

func (store *FileStore) Get(key string) (string, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.load(); err != nil {
		return "", false, err
	}
	value, ok := store.values[key]
	return value, ok, nil
}

func (store *FileStore) Set(key, value string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.load(); err != nil {
		return err
	}
	store.values[key] = value
	return store.flush()
}

func (store *FileStore) Remove(key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.load(); err != nil {
		return err
	}
	if _, ok := store.values[key]; !ok {
		return nil
	}
	delete(store.values, key)
	return store.flush()
}

func (store *FileStore) load() error {
	if store.loaded {
		return nil
	}

	data, err := os.ReadFile(store.path)
	if err != nil {
		if os.IsNotExist(err) {
			store.loaded = true
			return nil
		}
		return fmt.Errorf("read store %s: %w", store.path, err)
	}
	if err := json.Unmarshal(data, &store.values); err != nil {
		return fmt.Errorf("parse store %s: %w", store.path, err)
	}
	store.loaded = true
	return nil
}

func (store *FileStore) flush() error {
	return storage.WriteJSON(store.path, store.values)
}
