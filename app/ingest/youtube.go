package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jammor/nexus/app/content"
	"github.com/jammor/nexus/app/database"
	"github.com/jammor/nexus/app/sources"
)

// YouTubeCollector is the slice of the collector the pipeline needs.
type YouTubeCollector interface {
	DiscoverChannel(ctx context.Context, channelID string, since time.Duration) ([]sources.VideoItem, error)
	DiscoverFeed(ctx context.Context, feedURL string, since time.Duration) ([]sources.VideoItem, error)
	FetchTranscript(ctx context.Context, videoID string, languages []string) (string, error)
	WatchMetadata(ctx context.Context, videoURL string) (sources.VideoItem, error)
}

// RunYouTube discovers recent videos from the configured subscription feed
// and channels and processes them concurrently. A transcript API block
// aborts the run: every remaining fetch would fail the same way.
func (p *Pipeline) RunYouTube(ctx context.Context, collector YouTubeCollector, config sources.YouTubeConfig, since time.Duration, workers int) error {
	var items []sources.VideoItem

	if config.SubscriptionFeed != "" {
		discovered, err := collector.DiscoverFeed(ctx, config.SubscriptionFeed, since)
		if err != nil {
			p.log("youtube", config.SubscriptionFeed, "discover", "error", err.Error())
			p.Stats.Errors.Add(1)
			slog.Error("Failed to discover subscription feed", "error", err)
		} else {
			items = append(items, discovered...)
		}
	}

	for _, channelID := range config.Channels {
		discovered, err := collector.DiscoverChannel(ctx, channelID, since)
		if err != nil {
			p.log("youtube", channelID, "discover", "error", err.Error())
			p.Stats.Errors.Add(1)
			slog.Error("Failed to discover channel", "channel", channelID, "error", err)
			continue
		}
		items = append(items, discovered...)
	}

	items = dedupeVideos(items)
	p.Stats.Discovered.Add(int64(len(items)))
	slog.Info("YouTube discovery completed", "videos", len(items))

	tasks := make([]Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, func(ctx context.Context) error {
			return p.processVideo(ctx, collector, item, config.Languages)
		})
	}
	return RunPool(ctx, workers, tasks)
}

// RunYouTubeURL ingests a single video by URL, scraping the watch page for
// the metadata a feed entry would normally provide.
func (p *Pipeline) RunYouTubeURL(ctx context.Context, collector YouTubeCollector, videoURL string, languages []string) error {
	item, err := collector.WatchMetadata(ctx, videoURL)
	if err != nil {
		// metadata is best effort; the item still carries URL and video ID
		slog.Warn("Failed to scrape watch page metadata", "url", videoURL, "error", err)
	}
	if item.VideoID == "" {
		return fmt.Errorf("not a recognizable YouTube URL: %s", videoURL)
	}

	p.Stats.Discovered.Add(1)
	return p.processVideo(ctx, collector, item, languages)
}

func (p *Pipeline) processVideo(ctx context.Context, collector YouTubeCollector, item sources.VideoItem, languages []string) error {
	url := content.CanonicalURL(item.URL)

	transcript, err := collector.FetchTranscript(ctx, item.VideoID, languages)
	if err != nil {
		p.log("youtube", url, "fetch", "error", err.Error())
		p.Stats.Errors.Add(1)
		if errors.Is(err, sources.ErrTranscriptBlocked) {
			return err
		}
		slog.Warn("Failed to fetch transcript", "url", url, "error", err)
		return nil
	}
	p.log("youtube", url, "fetch", "ok", "")

	hash := content.Hash(item.Title, transcript)
	if p.dedupeSkip("youtube", url, item.Title, hash) {
		return nil
	}
	if p.DryRun {
		p.skipDryRun("youtube", url, item.Title)
		return nil
	}

	summary, status := p.summarize(ctx, "youtube", url, item.Title, transcript)

	p.finish("youtube", url, item.Title, hash, func() (string, error) {
		return p.Writer.UpsertVideo(ctx, database.Video{
			URL:         url,
			Title:       item.Title,
			Channel:     item.Channel,
			PublishedAt: item.Published,
			Thumbnail:   item.Thumbnail,
			Transcript:  transcript,
			Summary:     summary,
			ContentHash: hash,
			Status:      status,
		})
	})
	return nil
}

// dedupeVideos drops repeat URLs when a video appears in both the
// subscription feed and an explicit channel.
func dedupeVideos(items []sources.VideoItem) []sources.VideoItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		url := content.CanonicalURL(item.URL)
		if seen[url] {
			continue
		}
		seen[url] = true
		out = append(out, item)
	}
	return out
}
