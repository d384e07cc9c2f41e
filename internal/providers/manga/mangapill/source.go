package mangapill

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kansho/kansho/internal/providers/manga"
)

const defaultBaseURL = "https://mangapill.com"

// Source scrapes mangapill.com, which serves plain server-rendered HTML.
type Source struct {
	httpClient *http.Client
	baseURL    string
}

func New(httpClient *http.Client, baseURL string) *Source {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Source{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (source *Source) Info() manga.SourceInfo {
	return manga.SourceInfo{ID: "mangapill", Name: "Mangapill", Locale: "en", ContentType: "manga"}
}

func (source *Source) Search(ctx context.Context, query string, page int) ([]manga.Summary, error) {
	if page < 1 {
		page = 1
	}
	endpoint := fmt.Sprintf("%s/search?q=%s&page=%d", source.baseURL, url.QueryEscape(query), page)

	doc, err := source.fetchDocument(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var results []manga.Summary
	doc.Find("div.manga-card").Each(func(_ int, selection *goquery.Selection) {
		link := selection.Find("a").First()
		href := link.AttrOr("href", "")
		id := strings.TrimPrefix(href, "/manga/")
		title := strings.TrimSpace(selection.Find("div.manga-title").Text())
		if id == "" || title == "" {
			return
		}
		results = append(results, manga.Summary{
			ID:       id,
			Title:    title,
			CoverURL: selection.Find("img").AttrOr("data-src", ""),
		})
	})

	return results, nil
}

func (source *Source) Details(ctx context.Context, mangaID string) (manga.Details, error) {
	doc, err := source.fetchDocument(ctx, fmt.Sprintf("%s/manga/%s", source.baseURL, mangaID))
	if err != nil {
		return manga.Details{}, err
	}

	details := manga.Details{
		Summary: manga.Summary{
			ID:       mangaID,
			Title:    strings.TrimSpace(doc.Find("h1.manga-title").Text()),
			CoverURL: doc.Find("div.manga-cover img").AttrOr("data-src", ""),
		},
		Description: strings.TrimSpace(doc.Find("p.manga-summary").Text()),
		State:       strings.TrimSpace(doc.Find("div.manga-status").Text()),
	}
	if author := strings.TrimSpace(doc.Find("div.manga-author").Text()); author != "" {
		details.Authors = []string{author}
	}
	doc.Find("a.genre-pill").Each(func(_ int, selection *goquery.Selection) {
		if tag := strings.TrimSpace(selection.Text()); tag != "" {
			details.Tags = append(details.Tags, tag)
		}
	})

	return details, nil
}

func (source *Source) Chapters(ctx context.Context, mangaID string) ([]manga.Chapter, error) {
	doc, err := source.fetchDocument(ctx, fmt.Sprintf("%s/manga/%s", source.baseURL, mangaID))
	if err != nil {
		return nil, err
	}

	var chapters []manga.Chapter
	doc.Find("div#chapters a").Each(func(_ int, selection *goquery.Selection) {
		href := selection.AttrOr("href", "")
		id := strings.TrimPrefix(href, "/chapters/")
		if id == "" {
			return
		}
		name := strings.TrimSpace(selection.Text())
		chapters = append(chapters, manga.Chapter{
			ID:     id,
			Name:   name,
			Number: strings.TrimPrefix(name, "Chapter "),
		})
	})

	// The site lists newest first; the reader wants oldest first.
	for i, j := 0, len(chapters)-1; i < j; i, j = i+1, j-1 {
		chapters[i], chapters[j] = chapters[j], chapters[i]
	}

	return chapters, nil
}

func (source *Source) Pages(ctx context.Context, chapterID string) ([]manga.Page, error) {
	doc, err := source.fetchDocument(ctx, fmt.Sprintf("%s/chapters/%s", source.baseURL, chapterID))
	if err != nil {
		return nil, err
	}

	var pages []manga.Page
	doc.Find("chapter-page img").Each(func(i int, selection *goquery.Selection) {
		src := selection.AttrOr("data-src", "")
		if src == "" {
			src = selection.AttrOr("src", "")
		}
		if src == "" {
			return
		}
		pages = append(pages, manga.Page{ID: fmt.Sprintf("%s/%d", chapterID, i), URL: src})
	})

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: chapter %s", manga.ErrChapterNoPages, chapterID)
	}
	return pages, nil
}

func (source *Source) ResolvePage(_ context.Context, page manga.Page) (string, error) {
	if page.URL == "" {
		return "", fmt.Errorf("page %s has no URL", page.ID)
	}
	return page.URL, nil
}

func (source *Source) fetchDocument(ctx context.Context, endpoint string) (*goquery.Document, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	request.Header.Set("User-Agent", "kansho/0.1")

	response, err := source.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed: %s", response.Status)
	}

	doc, err := goquery.NewDocumentFromReader(response.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to parse response: %w", err)
	}
	return doc, nil
}
