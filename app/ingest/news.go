package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/jammor/nexus/app/content"
	"github.com/jammor/nexus/app/database"
	"github.com/jammor/nexus/app/sources"
)

// NewsCollector is the slice of the collector the pipeline needs.
type NewsCollector interface {
	DiscoverFeed(ctx context.Context, feedURL string, since time.Duration) ([]sources.ArticleItem, error)
}

// ArticleFetcher extracts readable text for an article URL.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, pageURL string) (string, error)
}

// RunNews discovers recent articles from the configured RSS feeds and
// processes them concurrently. A feed that fails to parse is logged and
// skipped; the other feeds still run.
func (p *Pipeline) RunNews(ctx context.Context, collector NewsCollector, fetcher ArticleFetcher, feeds []string, since time.Duration, workers int) error {
	var items []sources.ArticleItem

	for _, feedURL := range feeds {
		discovered, err := collector.DiscoverFeed(ctx, feedURL, since)
		if err != nil {
			p.log("news", feedURL, "discover", "error", err.Error())
			p.Stats.Errors.Add(1)
			slog.Error("Failed to discover feed", "feed", feedURL, "error", err)
			continue
		}
		items = append(items, discovered...)
	}

	p.Stats.Discovered.Add(int64(len(items)))
	slog.Info("News discovery completed", "articles", len(items), "feeds", len(feeds))

	tasks := make([]Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, func(ctx context.Context) error {
			p.processArticle(ctx, fetcher, item)
			return nil
		})
	}
	return RunPool(ctx, workers, tasks)
}

func (p *Pipeline) processArticle(ctx context.Context, fetcher ArticleFetcher, item sources.ArticleItem) {
	url := content.CanonicalURL(item.URL)

	text, err := fetcher.FetchArticle(ctx, item.URL)
	if err != nil {
		p.log("news", url, "fetch", "error", err.Error())
		p.Stats.Errors.Add(1)
		slog.Warn("Failed to fetch article", "url", url, "error", err)
		return
	}
	p.log("news", url, "fetch", "ok", "")

	hash := content.Hash(item.Title, text)
	if p.dedupeSkip("news", url, item.Title, hash) {
		return
	}
	if p.DryRun {
		p.skipDryRun("news", url, item.Title)
		return
	}

	summary, status := p.summarize(ctx, "news", url, item.Title, text)

	p.finish("news", url, item.Title, hash, func() (string, error) {
		return p.Writer.UpsertArticle(ctx, database.Article{
			URL:         url,
			Title:       item.Title,
			Site:        item.Site,
			PublishedAt: item.Published,
			Content:     text,
			Summary:     summary,
			ContentHash: hash,
			Status:      status,
		})
	})
}
