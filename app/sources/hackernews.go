package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const hackerNewsAPI = "https://hacker-news.firebaseio.com/v0"

// detail fetches run concurrently but bounded, so a single discovery pass
// does not open a hundred sockets at once.
const hnDetailConcurrency = 10

// HNCollector fetches high-scoring stories from the Hacker News Firebase API.
type HNCollector struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
}

func NewHNCollector(httpClient *http.Client, userAgent string) *HNCollector {
	return &HNCollector{
		httpClient: httpClient,
		userAgent:  userAgent,
		baseURL:    hackerNewsAPI,
	}
}

type hnItem struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Score int    `json:"score"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
}

// FetchTopStories returns stories from the front page ranking that have
// score >= minScore and were posted within the last since duration. At most
// maxStories ids are examined.
func (c *HNCollector) FetchTopStories(ctx context.Context, minScore, maxStories int, since time.Duration) ([]HNStory, error) {
	var storyIDs []int
	if err := c.getJSON(ctx, c.baseURL+"/topstories.json", &storyIDs); err != nil {
		return nil, fmt.Errorf("failed to fetch top stories: %w", err)
	}

	if len(storyIDs) > maxStories {
		storyIDs = storyIDs[:maxStories]
	}

	cutoff := time.Now().UTC().Add(-since)

	results := make([]*HNStory, len(storyIDs))
	sem := make(chan struct{}, hnDetailConcurrency)
	var wg sync.WaitGroup

	for i, id := range storyIDs {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			story, err := c.fetchStoryDetail(ctx, id, minScore, cutoff)
			if err != nil {
				slog.Debug("Failed to fetch story detail", "id", id, "error", err)
				return
			}
			results[i] = story
		}(i, id)
	}
	wg.Wait()

	stories := make([]HNStory, 0, len(results))
	for _, story := range results {
		if story != nil {
			stories = append(stories, *story)
		}
	}

	slog.Debug("Hacker News discovery completed",
		"checked", len(storyIDs),
		"matched", len(stories),
		"min_score", minScore)

	return stories, nil
}

// fetchStoryDetail returns nil, nil when the story does not meet the criteria.
func (c *HNCollector) fetchStoryDetail(ctx context.Context, id, minScore int, cutoff time.Time) (*HNStory, error) {
	var item hnItem
	if err := c.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), &item); err != nil {
		return nil, err
	}

	// Ask HN / Show HN posts without an external link are skipped.
	if item.Type != "story" || item.URL == "" {
		return nil, nil
	}

	storyTime := time.Unix(item.Time, 0).UTC()
	if storyTime.Before(cutoff) || item.Score < minScore {
		return nil, nil
	}

	title := item.Title
	if title == "" {
		title = "Untitled"
	}
	by := item.By
	if by == "" {
		by = "unknown"
	}

	return &HNStory{
		ID:    id,
		Title: title,
		URL:   item.URL,
		Score: item.Score,
		By:    by,
		Time:  storyTime,
		HNURL: fmt.Sprintf("https://news.ycombinator.com/item?id=%d", id),
	}, nil
}

func (c *HNCollector) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
