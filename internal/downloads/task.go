package downloads

import (
	"fmt"
	"time"
)

type Status string

// Cancellation is deletion: a cancelled task is removed from the queue
// outright, so no CANCELLED status exists.
const (
	StatusPending     Status = "PENDING"
	StatusDownloading Status = "DOWNLOADING"
	StatusCompleted   Status = "COMPLETED"
	StatusFailed      Status = "FAILED"
	StatusPaused      Status = "PAUSED"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusDownloading: true,
	},
	StatusDownloading: {
		StatusCompleted: true,
		StatusFailed:    true,
		StatusPaused:    true,
	},
	StatusPaused: {
		StatusPending: true,
	},
	StatusCompleted: {},
	StatusFailed:    {},
}

func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Task is the persisted unit of work: download every page of one chapter.
type Task struct {
	ID              string `json:"id"`
	SourceID        string `json:"sourceId"`
	MangaID         string `json:"mangaId"`
	ChapterID       string `json:"chapterId"`
	Status          Status `json:"status"`
	Progress        int    `json:"progress"`
	TotalPages      int    `json:"totalPages"`
	DownloadedPages int    `json:"downloadedPages"`
	Error           string `json:"error,omitempty"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

// Active reports whether the task still occupies its (manga, chapter) slot
// in the queue; a second enqueue for the same pair is a no-op while true.
func (task Task) Active() bool {
	switch task.Status {
	case StatusPending, StatusDownloading, StatusPaused:
		return true
	}
	return false
}

func NewTask(sourceID, mangaID, chapterID string, now time.Time) Task {
	createdAt := now.UnixMilli()
	return Task{
		ID:        fmt.Sprintf("%s:%s:%d", mangaID, chapterID, createdAt),
		SourceID:  sourceID,
		MangaID:   mangaID,
		ChapterID: chapterID,
		Status:    StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// progressPercent rounds downloaded/total to a percentage, clamped below 100
// so only completed tasks ever report 100.
func progressPercent(downloaded, total int) int {
	if total <= 0 {
		return 0
	}
	percent := (downloaded*100 + total/2) / total
	if percent >= 100 && downloaded < total {
		percent = 99
	}
	return percent
}
