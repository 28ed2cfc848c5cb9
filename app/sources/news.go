package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// NewsCollector discovers recent articles from configured RSS/Atom feeds.
type NewsCollector struct {
	httpClient *http.Client
	userAgent  string
	parser     *gofeed.Parser
}

func NewNewsCollector(httpClient *http.Client, userAgent string) *NewsCollector {
	return &NewsCollector{
		httpClient: httpClient,
		userAgent:  userAgent,
		parser:     gofeed.NewParser(),
	}
}

// DiscoverFeed returns articles published on the feed within the last since
// duration. Entries without a link are dropped; entries without a parseable
// publish date are kept (the cutoff cannot be applied to them).
func (c *NewsCollector) DiscoverFeed(ctx context.Context, feedURL string, since time.Duration) ([]ArticleItem, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	feed, err := c.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	cutoff := time.Now().UTC().Add(-since)
	items := make([]ArticleItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		if item.PublishedParsed != nil && item.PublishedParsed.Before(cutoff) {
			continue
		}

		article := ArticleItem{
			URL:       item.Link,
			Title:     item.Title,
			Site:      feed.Title,
			Published: item.PublishedParsed,
		}
		if article.Title == "" {
			article.Title = article.URL
		}

		items = append(items, article)
	}

	return items, nil
}
