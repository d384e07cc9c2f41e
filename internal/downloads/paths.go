package downloads

import (
	"fmt"
	"path/filepath"
)

// Layout maps queue entities to deterministic locations under a single data
// root. Page files are zero-padded so a lexicographic directory listing
// matches page order.
type Layout struct {
	Root string
}

func (layout Layout) DownloadsDir() string {
	return filepath.Join(layout.Root, "downloads")
}

func (layout Layout) CacheDir() string {
	return filepath.Join(layout.Root, "cache")
}

func (layout Layout) BackupsDir() string {
	return filepath.Join(layout.Root, "backups")
}

func (layout Layout) ChapterDir(mangaID, chapterID string) string {
	return filepath.Join(layout.DownloadsDir(), mangaID, chapterID)
}

func (layout Layout) PagePath(mangaID, chapterID string, index int) string {
	return filepath.Join(layout.ChapterDir(mangaID, chapterID), PageFileName(index))
}

func (layout Layout) SourceCacheDir(sourceID, chapterID string) string {
	return filepath.Join(layout.CacheDir(), sourceID, chapterID)
}

func (layout Layout) BackupPath(timestamp int64) string {
	return filepath.Join(layout.BackupsDir(), fmt.Sprintf("library_%d.json", timestamp))
}

func PageFileName(index int) string {
	return fmt.Sprintf("page_%04d.jpg", index)
}
