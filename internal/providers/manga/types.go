package manga

import (
	"errors"
	"fmt"
	"time"
)

type SourceInfo struct {
	ID          string
	Name        string
	Locale      string
	ContentType string
}

type Summary struct {
	ID       string
	Title    string
	CoverURL string
}

type Details struct {
	Summary
	Description string
	Authors     []string
	State       string
	Tags        []string
	Rating      float64
}

type Chapter struct {
	ID         string
	Name       string
	Number     string
	Volume     string
	Scanlator  string
	UploadedAt time.Time

	// NumericNumber is the parsed form of Number, used only for sorting.
	NumericNumber float64
}

// Page is a single page reference within a chapter. URL is set when the
// source already knows the final location; Ref otherwise carries whatever
// the source needs to resolve one later.
type Page struct {
	ID  string
	URL string
	Ref string
}

var (
	ErrChapterMetadataMissing = errors.New("chapter metadata missing")
	ErrChapterNoPages         = errors.New("chapter has no pages")
	ErrSourceUnavailable      = errors.New("source unavailable")
)

func FormatChapterLabel(chapter Chapter) string {
	label := "Chapter"
	if chapter.Number != "" {
		label = fmt.Sprintf("Chapter %s", chapter.Number)
	}
	if chapter.Name != "" {
		label = fmt.Sprintf("%s - %s", label, chapter.Name)
	}
	if chapter.Volume != "" {
		label = fmt.Sprintf("Volume %s, %s", chapter.Volume, label)
	}
	return label
}
