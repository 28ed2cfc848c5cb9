package content

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// FetchError indicates that an item's content could not be retrieved or
// extracted. It is non-fatal to the run; the driver logs it and moves on.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Extractor fetches article pages and reduces them to readable markdown text.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
	stripper   *bluemonday.Policy
}

func NewExtractor(httpClient *http.Client, userAgent string) *Extractor {
	return &Extractor{
		httpClient: httpClient,
		userAgent:  userAgent,
		stripper:   bluemonday.StrictPolicy(),
	}
}

// FetchArticle retrieves url and returns its main content as markdown.
func (e *Extractor) FetchArticle(ctx context.Context, url string) (string, error) {
	data, err := e.fetch(ctx, url)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	text, err := e.Run(url, data)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	return text, nil
}

// Run extracts the readable content from raw HTML and converts it to markdown.
func (e *Extractor) Run(pageURL string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	markdown, err := htmltomarkdown.ConvertString(article.Content)
	if err != nil {
		return "", fmt.Errorf("failed to convert content to markdown: %w", err)
	}

	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", fmt.Errorf("extracted content is empty after conversion")
	}

	slog.Debug("Content extracted successfully",
		"url", pageURL,
		"title", article.Title,
		"content_length", len(markdown))

	return markdown, nil
}

// StripMarkup removes all HTML markup from s, returning plain text. Used for
// Apple Notes bodies, which arrive as HTML fragments.
func (e *Extractor) StripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(e.stripper.Sanitize(s)))
}

func (e *Extractor) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
