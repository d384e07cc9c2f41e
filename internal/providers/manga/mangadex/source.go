package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kansho/kansho/internal/providers/manga"
)

const (
	defaultBaseURL = "https://api.mangadex.org"
	coverBaseURL   = "https://uploads.mangadex.org"
	userAgent      = "kansho/0.1"

	searchLimit  = 20
	chapterLimit = 100
	maxAttempts  = 3
)

type Source struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type Option func(*Source)

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(baseURL string) Option {
	return func(source *Source) {
		source.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func New(httpClient *http.Client, apiKey string, opts ...Option) *Source {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	source := &Source{httpClient: httpClient, baseURL: defaultBaseURL, apiKey: strings.TrimSpace(apiKey)}
	for _, opt := range opts {
		opt(source)
	}
	return source
}

func (source *Source) Info() manga.SourceInfo {
	return manga.SourceInfo{ID: "mangadex", Name: "MangaDex", Locale: "en", ContentType: "manga"}
}

func (source *Source) Search(ctx context.Context, query string, page int) ([]manga.Summary, error) {
	searchURL, err := url.Parse(source.baseURL + "/manga")
	if err != nil {
		return nil, fmt.Errorf("error parsing search URL: %w", err)
	}

	if page < 0 {
		page = 0
	}
	q := searchURL.Query()
	q.Set("title", query)
	q.Set("limit", strconv.Itoa(searchLimit))
	q.Set("offset", strconv.Itoa(page*searchLimit))
	q.Add("includes[]", "cover_art")
	searchURL.RawQuery = q.Encode()

	var result mangaListResponse
	if err := source.getJSON(ctx, searchURL.String(), &result); err != nil {
		return nil, fmt.Errorf("error searching manga: %w", err)
	}

	summaries := make([]manga.Summary, 0, len(result.Data))
	for _, entry := range result.Data {
		title := pickTitle(entry.Attributes.Title)
		if title == "" {
			continue
		}
		coverURL := buildCoverURL(entry.ID, pickCoverFileName(entry.Relationships))
		summaries = append(summaries, manga.Summary{ID: entry.ID, Title: title, CoverURL: coverURL})
	}

	return summaries, nil
}

func (source *Source) Details(ctx context.Context, mangaID string) (manga.Details, error) {
	endpoint := fmt.Sprintf("%s/manga/%s?includes[]=cover_art&includes[]=author", source.baseURL, mangaID)

	var result mangaDetailsResponse
	if err := source.getJSON(ctx, endpoint, &result); err != nil {
		return manga.Details{}, fmt.Errorf("error fetching manga details: %w", err)
	}

	entry := result.Data
	details := manga.Details{
		Summary: manga.Summary{
			ID:       entry.ID,
			Title:    pickTitle(entry.Attributes.Title),
			CoverURL: buildCoverURL(entry.ID, pickCoverFileName(entry.Relationships)),
		},
		Description: pickTitle(entry.Attributes.Description),
		State:       entry.Attributes.Status,
	}
	for _, relation := range entry.Relationships {
		if relation.Type == "author" && relation.Attributes.Name != "" {
			details.Authors = append(details.Authors, relation.Attributes.Name)
		}
	}
	for _, tag := range entry.Attributes.Tags {
		if name := pickTitle(tag.Attributes.Name); name != "" {
			details.Tags = append(details.Tags, name)
		}
	}

	return details, nil
}

func (source *Source) Chapters(ctx context.Context, mangaID string) ([]manga.Chapter, error) {
	var allChapters []manga.Chapter
	seen := make(map[string]bool)
	offset := 0

	for {
		endpoint := fmt.Sprintf(
			"%s/chapter?limit=%d&offset=%d&manga=%s&contentRating[]=safe&contentRating[]=suggestive&order[volume]=asc&order[chapter]=asc&translatedLanguage[]=en",
			source.baseURL, chapterLimit, offset, mangaID,
		)

		var feed chapterFeedResponse
		if err := source.getJSON(ctx, endpoint, &feed); err != nil {
			return nil, fmt.Errorf("error fetching chapters: %w", err)
		}

		for _, entry := range feed.Data {
			if seen[entry.ID] {
				continue
			}
			if entry.Attributes.ExternalURL != "" || entry.Attributes.Pages == 0 {
				continue
			}
			seen[entry.ID] = true

			numeric, _ := strconv.ParseFloat(entry.Attributes.Chapter, 64)
			uploadedAt, _ := time.Parse(time.RFC3339, entry.Attributes.PublishAt)
			allChapters = append(allChapters, manga.Chapter{
				ID:            entry.ID,
				Name:          entry.Attributes.Title,
				Number:        entry.Attributes.Chapter,
				Volume:        entry.Attributes.Volume,
				UploadedAt:    uploadedAt,
				NumericNumber: numeric,
			})
		}

		if len(feed.Data) < chapterLimit {
			break
		}
		offset += chapterLimit
	}

	sort.Slice(allChapters, func(i, j int) bool {
		if allChapters[i].NumericNumber == allChapters[j].NumericNumber {
			return allChapters[i].Volume < allChapters[j].Volume
		}
		return allChapters[i].NumericNumber < allChapters[j].NumericNumber
	})

	return allChapters, nil
}

// Pages asks the at-home server for the chapter's image listing. Each page
// carries a final URL, so ResolvePage is a pass-through for this source.
func (source *Source) Pages(ctx context.Context, chapterID string) ([]manga.Page, error) {
	details, err := source.fetchChapterDetails(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	fileNames := details.Chapter.Data
	pathSegment := "data"
	if len(fileNames) == 0 && len(details.Chapter.DataSaver) > 0 {
		fileNames = details.Chapter.DataSaver
		pathSegment = "data-saver"
	}
	if len(fileNames) == 0 {
		return nil, fmt.Errorf("%w: no pages returned for chapter %s", manga.ErrChapterNoPages, chapterID)
	}

	pages := make([]manga.Page, 0, len(fileNames))
	for _, fileName := range fileNames {
		pages = append(pages, manga.Page{
			ID:  fileName,
			URL: fmt.Sprintf("%s/%s/%s/%s", details.BaseURL, pathSegment, details.Chapter.Hash, fileName),
		})
	}

	return pages, nil
}

func (source *Source) ResolvePage(_ context.Context, page manga.Page) (string, error) {
	if page.URL == "" {
		return "", fmt.Errorf("page %s has no URL", page.ID)
	}
	return page.URL, nil
}

func (source *Source) fetchChapterDetails(ctx context.Context, chapterID string) (*chapterDetails, error) {
	endpoint := fmt.Sprintf("%s/at-home/server/%s", source.baseURL, chapterID)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			waitWithBackoff(ctx, attempt-1)
		}

		request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("error building chapter request: %w", err)
		}
		source.addHeaders(request)

		response, err := source.httpClient.Do(request)
		if err != nil {
			lastErr = fmt.Errorf("error fetching chapter details: %w", err)
			continue
		}

		body, err := io.ReadAll(response.Body)
		response.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("error reading chapter details response: %w", err)
			continue
		}

		if response.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("chapter details request failed: %s", strings.TrimSpace(string(body)))
			if !shouldRetry(response.StatusCode) {
				return nil, lastErr
			}
			continue
		}

		var details chapterDetails
		if err := json.Unmarshal(body, &details); err != nil {
			lastErr = fmt.Errorf("error parsing chapter details: %w", err)
			continue
		}
		if details.Result != "ok" {
			lastErr = fmt.Errorf("chapter details request returned %q", details.Result)
			continue
		}
		if details.BaseURL == "" || details.Chapter.Hash == "" {
			lastErr = fmt.Errorf("%w: chapter details missing baseUrl/hash for %s", manga.ErrChapterMetadataMissing, chapterID)
			continue
		}

		return &details, nil
	}

	return nil, lastErr
}

func (source *Source) getJSON(ctx context.Context, endpoint string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("error building request: %w", err)
	}
	source.addHeaders(request)

	response, err := source.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %s", response.Status)
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

func (source *Source) addHeaders(request *http.Request) {
	request.Header.Set("User-Agent", userAgent)
	if source.apiKey == "" {
		return
	}
	request.Header.Set("Authorization", "Bearer "+source.apiKey)
	request.Header.Set("X-Api-Key", source.apiKey)
}

type relationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		FileName string `json:"fileName"`
		Name     string `json:"name"`
	} `json:"attributes"`
}

type mangaEntry struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string `json:"title"`
		Description map[string]string `json:"description"`
		Status      string            `json:"status"`
		Tags        []struct {
			Attributes struct {
				Name map[string]string `json:"name"`
			} `json:"attributes"`
		} `json:"tags"`
	} `json:"attributes"`
	Relationships []relationship `json:"relationships"`
}

type mangaListResponse struct {
	Data []mangaEntry `json:"data"`
}

type mangaDetailsResponse struct {
	Data mangaEntry `json:"data"`
}

type chapterFeedResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Volume      string `json:"volume"`
			Chapter     string `json:"chapter"`
			Title       string `json:"title"`
			Pages       int    `json:"pages"`
			PublishAt   string `json:"publishAt"`
			ExternalURL string `json:"externalUrl"`
		} `json:"attributes"`
	} `json:"data"`
}

type chapterDetails struct {
	Result  string `json:"result"`
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

func buildCoverURL(mangaID, fileName string) string {
	if mangaID == "" || fileName == "" {
		return ""
	}
	return fmt.Sprintf("%s/covers/%s/%s.256.jpg", coverBaseURL, mangaID, fileName)
}

func pickCoverFileName(relationships []relationship) string {
	for _, relation := range relationships {
		if relation.Type != "cover_art" {
			continue
		}
		if relation.Attributes.FileName != "" {
			return relation.Attributes.FileName
		}
	}
	return ""
}

func pickTitle(titles map[string]string) string {
	if titles == nil {
		return ""
	}
	if value, ok := titles["en"]; ok {
		return value
	}
	for _, value := range titles {
		return value
	}
	return ""
}

func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}

func waitWithBackoff(ctx context.Context, attempt int) {
	wait := time.Duration(attempt*attempt) * 250 * time.Millisecond
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < wait {
			return
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
