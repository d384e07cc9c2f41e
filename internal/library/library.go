// Package library holds the user's favorites and reading history, persisted
// through the key-value store, and the payload shape used for backups.
package library

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kansho/kansho/internal/kv"
)

const (
	favoritesKey = "library.favorites"
	historyKey   = "library.history"

	historyLimit = 200
)

type Favorite struct {
	SourceID string `json:"sourceId"`
	MangaID  string `json:"mangaId"`
	Title    string `json:"title"`
	CoverURL string `json:"coverUrl,omitempty"`
	AddedAt  int64  `json:"addedAt"`
}

type HistoryEntry struct {
	SourceID     string `json:"sourceId"`
	MangaID      string `json:"mangaId"`
	ChapterID    string `json:"chapterId"`
	MangaTitle   string `json:"mangaTitle"`
	ChapterLabel string `json:"chapterLabel"`
	ReadAt       int64  `json:"readAt"`
}

// Payload is the JSON document written by backup export and read back by
// import.
type Payload struct {
	Version    int            `json:"version"`
	ExportedAt int64          `json:"exportedAt"`
	Favorites  []Favorite     `json:"favorites"`
	History    []HistoryEntry `json:"history"`
}

type Service struct {
	mu sync.Mutex
	kv kv.Store
}

func NewService(kvStore kv.Store) *Service {
	return &Service{kv: kvStore}
}

func (service *Service) Favorites() []Favorite {
	service.mu.Lock()
	defer service.mu.Unlock()

	var favorites []Favorite
	service.read(favoritesKey, &favorites)
	return favorites
}

func (service *Service) IsFavorite(sourceID, mangaID string) bool {
	for _, favorite := range service.Favorites() {
		if favorite.SourceID == sourceID && favorite.MangaID == mangaID {
			return true
		}
	}
	return false
}

// AddFavorite is idempotent on (sourceID, mangaID).
func (service *Service) AddFavorite(favorite Favorite) {
	service.mu.Lock()
	defer service.mu.Unlock()

	var favorites []Favorite
	service.read(favoritesKey, &favorites)
	for _, existing := range favorites {
		if existing.SourceID == favorite.SourceID && existing.MangaID == favorite.MangaID {
			return
		}
	}
	if favorite.AddedAt == 0 {
		favorite.AddedAt = time.Now().UnixMilli()
	}
	service.write(favoritesKey, append(favorites, favorite))
}

func (service *Service) RemoveFavorite(sourceID, mangaID string) {
	service.mu.Lock()
	defer service.mu.Unlock()

	var favorites []Favorite
	service.read(favoritesKey, &favorites)
	kept := favorites[:0]
	for _, favorite := range favorites {
		if favorite.SourceID == sourceID && favorite.MangaID == mangaID {
			continue
		}
		kept = append(kept, favorite)
	}
	service.write(favoritesKey, kept)
}

func (service *Service) History() []HistoryEntry {
	service.mu.Lock()
	defer service.mu.Unlock()

	var history []HistoryEntry
	service.read(historyKey, &history)
	return history
}

// RecordRead prepends an entry, dropping any older entry for the same
// chapter and trimming the log to its cap.
func (service *Service) RecordRead(entry HistoryEntry) {
	service.mu.Lock()
	defer service.mu.Unlock()

	if entry.ReadAt == 0 {
		entry.ReadAt = time.Now().UnixMilli()
	}

	var history []HistoryEntry
	service.read(historyKey, &history)

	updated := []HistoryEntry{entry}
	for _, existing := range history {
		if existing.SourceID == entry.SourceID && existing.MangaID == entry.MangaID && existing.ChapterID == entry.ChapterID {
			continue
		}
		updated = append(updated, existing)
	}
	if len(updated) > historyLimit {
		updated = updated[:historyLimit]
	}
	service.write(historyKey, updated)
}

// Snapshot assembles the backup payload for export.
func (service *Service) Snapshot() Payload {
	return Payload{
		Version:    1,
		ExportedAt: time.Now().UnixMilli(),
		Favorites:  service.Favorites(),
		History:    service.History(),
	}
}

// Restore replaces favorites and history with the imported payload.
func (service *Service) Restore(payload Payload) {
	service.mu.Lock()
	defer service.mu.Unlock()
	service.write(favoritesKey, payload.Favorites)
	service.write(historyKey, payload.History)
}

func (service *Service) read(key string, out any) {
	raw, ok, err := service.kv.Get(key)
	if err != nil {
		log.Printf("library: unable to read %s: %v", key, err)
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Printf("library: unable to parse %s: %v", key, err)
	}
}

func (service *Service) write(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("library: unable to serialize %s: %v", key, err)
		return
	}
	if err := service.kv.Set(key, string(data)); err != nil {
		log.Printf("library: unable to persist %s: %v", key, err)
	}
}

// FormatLastRead renders a history timestamp the way the reading-history
// screen shows it.
func FormatLastRead(readAt int64, now time.Time) string {
	read := time.UnixMilli(readAt)
	elapsed := now.Sub(read)

	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		minutes := int(elapsed.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case elapsed < 24*time.Hour:
		hours := int(elapsed.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case elapsed < 48*time.Hour:
		return "yesterday"
	default:
		return read.Format("Jan 2, 2006")
	}
}
