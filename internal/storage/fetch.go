package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher pulls the bytes behind a URL into a local file, failing on any
// network or storage error.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}

type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
}

func NewHTTPFetcher(httpClient *http.Client, userAgent string) *HTTPFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPFetcher{httpClient: httpClient, userAgent: userAgent}
}

func (fetcher *HTTPFetcher) Fetch(ctx context.Context, url, destPath string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error building download request: %w", err)
	}
	if fetcher.userAgent != "" {
		request.Header.Set("User-Agent", fetcher.userAgent)
	}

	response, err := fetcher.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("error downloading %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s failed: %s", url, response.Status)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", url, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("downloaded file %s is empty", url)
	}

	return WriteBytes(destPath, data)
}
