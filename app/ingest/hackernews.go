package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jammor/nexus/app/content"
	"github.com/jammor/nexus/app/database"
	"github.com/jammor/nexus/app/sources"
)

// HNCollector is the slice of the collector the pipeline needs.
type HNCollector interface {
	FetchTopStories(ctx context.Context, minScore, maxStories int, since time.Duration) ([]sources.HNStory, error)
}

// RunHackerNews ingests high-scoring front page stories as articles. The
// stored site names the score at discovery time and the summary links back
// to the discussion thread.
func (p *Pipeline) RunHackerNews(ctx context.Context, collector HNCollector, fetcher ArticleFetcher, config sources.HackerNewsConfig, since time.Duration, workers int) error {
	stories, err := collector.FetchTopStories(ctx, config.MinScore, config.MaxStories, since)
	if err != nil {
		p.log("hackernews", "", "discover", "error", err.Error())
		p.Stats.Errors.Add(1)
		return fmt.Errorf("failed to discover stories: %w", err)
	}

	p.Stats.Discovered.Add(int64(len(stories)))
	slog.Info("Hacker News discovery completed", "stories", len(stories))

	tasks := make([]Task, 0, len(stories))
	for _, story := range stories {
		tasks = append(tasks, func(ctx context.Context) error {
			p.processStory(ctx, fetcher, story)
			return nil
		})
	}
	return RunPool(ctx, workers, tasks)
}

func (p *Pipeline) processStory(ctx context.Context, fetcher ArticleFetcher, story sources.HNStory) {
	url := content.CanonicalURL(story.URL)

	text, err := fetcher.FetchArticle(ctx, story.URL)
	if err != nil {
		p.log("hackernews", url, "fetch", "error", err.Error())
		p.Stats.Errors.Add(1)
		slog.Warn("Failed to fetch story", "url", url, "error", err)
		return
	}
	p.log("hackernews", url, "fetch", "ok", "")

	hash := content.Hash(story.Title, text)
	if p.dedupeSkip("hackernews", url, story.Title, hash) {
		return
	}
	if p.DryRun {
		p.skipDryRun("hackernews", url, story.Title)
		return
	}

	summary, status := p.summarize(ctx, "hackernews", url, story.Title, text)
	summary = discussionHeader(story.HNURL, summary)

	published := story.Time
	p.finish("hackernews", url, story.Title, hash, func() (string, error) {
		return p.Writer.UpsertArticle(ctx, database.Article{
			URL:         url,
			Title:       story.Title,
			Site:        fmt.Sprintf("Hacker News (%d points)", story.Score),
			PublishedAt: &published,
			Content:     text,
			Summary:     summary,
			ContentHash: hash,
			Status:      status,
		})
	})
}

// discussionHeader prepends the HN discussion link so it survives even when
// summarization failed and the summary is otherwise empty.
func discussionHeader(hnURL, summary string) string {
	if summary == "" {
		return "Discussion: " + hnURL
	}
	return "Discussion: " + hnURL + "\n\n" + summary
}
