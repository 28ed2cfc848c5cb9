package sources

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/jammor/nexus/app/content"
)

const youtubeChannelFeed = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"
const youtubeTimedText = "https://video.google.com/timedtext?lang=%s&v=%s"

// ErrTranscriptBlocked indicates the transcript endpoint is rate limiting or
// blocking this client. Continuing would burn the remaining items against a
// closed door, so the whole run stops.
var ErrTranscriptBlocked = fmt.Errorf("transcript API blocked")

// YouTubeCollector discovers recent videos from channel RSS feeds and fetches
// transcripts and watch-page metadata.
type YouTubeCollector struct {
	httpClient *http.Client
	userAgent  string
	parser     *gofeed.Parser
}

func NewYouTubeCollector(httpClient *http.Client, userAgent string) *YouTubeCollector {
	return &YouTubeCollector{
		httpClient: httpClient,
		userAgent:  userAgent,
		parser:     gofeed.NewParser(),
	}
}

// DiscoverChannel returns videos published on the channel within the last
// since duration.
func (c *YouTubeCollector) DiscoverChannel(ctx context.Context, channelID string, since time.Duration) ([]VideoItem, error) {
	return c.DiscoverFeed(ctx, fmt.Sprintf(youtubeChannelFeed, channelID), since)
}

// DiscoverFeed parses any YouTube RSS feed URL (channel, playlist, or
// subscription export) and returns recent videos.
func (c *YouTubeCollector) DiscoverFeed(ctx context.Context, feedURL string, since time.Duration) ([]VideoItem, error) {
	data, err := c.get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := c.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	cutoff := time.Now().UTC().Add(-since)
	items := make([]VideoItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		if item.PublishedParsed != nil && item.PublishedParsed.Before(cutoff) {
			continue
		}

		video := VideoItem{
			URL:       item.Link,
			Title:     item.Title,
			Published: item.PublishedParsed,
			Channel:   channelName(feed, item),
		}

		if u, err := url.Parse(item.Link); err == nil {
			video.VideoID = content.YouTubeVideoID(u)
		}
		if video.Title == "" {
			video.Title = video.URL
		}
		if video.VideoID != "" {
			video.Thumbnail = fmt.Sprintf("https://i.ytimg.com/vi/%s/maxresdefault.jpg", video.VideoID)
		}

		items = append(items, video)
	}

	return items, nil
}

// FetchTranscript retrieves the caption track for the video, trying each
// language in order. Returns ErrTranscriptBlocked (wrapped) on HTTP 429.
func (c *YouTubeCollector) FetchTranscript(ctx context.Context, videoID string, languages []string) (string, error) {
	if len(languages) == 0 {
		languages = []string{"en"}
	}

	var lastErr error
	for _, lang := range languages {
		text, err := c.fetchTimedText(ctx, videoID, lang)
		if err != nil {
			lastErr = err
			continue
		}
		if text != "" {
			return text, nil
		}
		lastErr = fmt.Errorf("no transcript available for language %s", lang)
	}

	return "", fmt.Errorf("failed to fetch transcript for %s: %w", videoID, lastErr)
}

// WatchMetadata scrapes title, channel, thumbnail and publish date from a
// video's watch page. Used for single-URL ingestion where there is no feed
// entry to draw metadata from.
func (c *YouTubeCollector) WatchMetadata(ctx context.Context, videoURL string) (VideoItem, error) {
	video := VideoItem{URL: videoURL, Title: "YouTube Video"}

	if u, err := url.Parse(videoURL); err == nil {
		video.VideoID = content.YouTubeVideoID(u)
	}
	if video.VideoID != "" {
		video.Thumbnail = fmt.Sprintf("https://i.ytimg.com/vi/%s/maxresdefault.jpg", video.VideoID)
	}

	data, err := c.get(ctx, videoURL)
	if err != nil {
		return video, fmt.Errorf("failed to fetch watch page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return video, fmt.Errorf("failed to parse watch page: %w", err)
	}

	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && title != "" {
		video.Title = title
	}
	if thumb, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && thumb != "" {
		video.Thumbnail = thumb
	}
	if channel, ok := doc.Find(`span[itemprop="author"] link[itemprop="name"]`).Attr("content"); ok {
		video.Channel = channel
	}
	if published, ok := doc.Find(`meta[itemprop="datePublished"]`).Attr("content"); ok {
		if ts, err := time.Parse(time.RFC3339, published); err == nil {
			utc := ts.UTC()
			video.Published = &utc
		}
	}

	return video, nil
}

type timedTextTrack struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

func (c *YouTubeCollector) fetchTimedText(ctx context.Context, videoID, lang string) (string, error) {
	return c.fetchTimedTextFrom(ctx, fmt.Sprintf(youtubeTimedText, lang, videoID))
}

func (c *YouTubeCollector) fetchTimedTextFrom(ctx context.Context, trackURL string) (string, error) {
	data, err := c.get(ctx, trackURL)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}

	var track timedTextTrack
	if err := xml.Unmarshal(data, &track); err != nil {
		return "", fmt.Errorf("failed to parse timed text: %w", err)
	}

	parts := make([]string, 0, len(track.Texts))
	for _, t := range track.Texts {
		if text := strings.TrimSpace(html.UnescapeString(t.Value)); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n"), nil
}

func (c *YouTubeCollector) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("HTTP 429: %w", ErrTranscriptBlocked)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func channelName(feed *gofeed.Feed, item *gofeed.Item) string {
	if len(feed.Authors) > 0 && feed.Authors[0] != nil && feed.Authors[0].Name != "" {
		return feed.Authors[0].Name
	}
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	return feed.Title
}
