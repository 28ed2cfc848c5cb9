package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jammor/nexus/app/api"
	"github.com/jammor/nexus/app/cfg"
	"github.com/jammor/nexus/app/content"
	"github.com/jammor/nexus/app/database"
	"github.com/jammor/nexus/app/ingest"
	"github.com/jammor/nexus/app/notion"
	"github.com/jammor/nexus/app/sources"
	"github.com/jammor/nexus/app/summarizer"
)

const usage = `Commands:
  ingest-youtube       Ingest recent videos from the configured channels
  ingest-youtube-url   Ingest a single video by URL
  ingest-news          Ingest recent articles from the configured RSS feeds
  ingest-hackernews    Ingest high-scoring Hacker News stories
  ingest-notes         Ingest Apple Notes from the configured folder (macOS)
  ingest-reminders     Ingest Apple Reminders from the configured list (macOS)
  notion-bootstrap     Create the Notion content database (requires --notion-parent)
  migrate              Copy the Notion database into the local store (requires --notion-db)
  serve                Run the read-only HTTP API over the local store
  version              Print the version`

func main() {
	config, args, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if config == nil {
		return // help was shown
	}

	setupLogger(config.Debug)

	if len(args) == 0 {
		fmt.Println(usage)
		os.Exit(1)
	}

	if err := run(config, args); err != nil {
		slog.Error("Command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(config *cfg.Cfg, args []string) error {
	command, operands := args[0], args[1:]

	switch command {
	case "version":
		fmt.Println(cfg.GetVersion())
		return nil
	case "serve":
		return runServe(config)
	case "notion-bootstrap":
		return runNotionBootstrap(config)
	case "migrate":
		return runMigrate(config)
	case "ingest-youtube", "ingest-youtube-url", "ingest-news",
		"ingest-hackernews", "ingest-notes", "ingest-reminders":
		return runIngest(config, command, operands)
	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// app bundles everything an ingest command needs, so command handlers stay
// short.
type app struct {
	config     *cfg.Cfg
	sources    *sources.Config
	pipeline   *ingest.Pipeline
	httpClient *http.Client
	extractor  *content.Extractor
	since      time.Duration
	closers    []func() error
}

func (a *app) Close() {
	for _, close := range a.closers {
		if err := close(); err != nil {
			slog.Warn("Failed to close resource", "error", err)
		}
	}
}

func newApp(config *cfg.Cfg) (*app, error) {
	srcConfig, err := sources.LoadConfig(config.FeedsFile)
	if err != nil {
		return nil, err
	}
	if config.MinScore > 0 {
		srcConfig.HackerNews.MinScore = config.MinScore
	}

	a := &app{
		config:     config,
		sources:    srcConfig,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		since:      time.Duration(config.SinceHours) * time.Hour,
	}
	a.extractor = content.NewExtractor(a.httpClient, config.UserAgent)

	dedupeDB, err := database.Open(filepath.Join(config.DataDir, "seen_hashes.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open dedupe database: %w", err)
	}
	a.closers = append(a.closers, dedupeDB.Close)

	dedupe, err := database.NewDedupeRepository(dedupeDB)
	if err != nil {
		return nil, err
	}

	writer, logs, err := a.openBackend()
	if err != nil {
		return nil, err
	}

	sum := summarizer.New(config.OpenAIAPIKey, srcConfig.Summarize)

	pipeline := ingest.NewPipeline(writer, dedupe, logs, sum)
	pipeline.DryRun = config.DryRun
	pipeline.Console = config.Console
	a.pipeline = pipeline

	return a, nil
}

// openBackend returns the writer and audit log for the configured backend.
// The audit trail is local for both backends: runs against Notion keep their
// ingestion_logs in the local database next to the dedupe store, where the
// serve command can read them.
func (a *app) openBackend() (ingest.Writer, ingest.LogWriter, error) {
	switch a.config.Backend {
	case "notion":
		if a.config.NotionToken == "" {
			return nil, nil, fmt.Errorf("backend=notion requires --notion-token")
		}
		if a.config.NotionDatabaseID == "" {
			return nil, nil, fmt.Errorf("backend=notion requires --notion-db")
		}
		db, err := a.openLocalDB()
		if err != nil {
			return nil, nil, err
		}
		client := notion.NewClient(a.config.NotionToken)
		return notion.NewWriter(client, a.config.NotionDatabaseID), database.NewLogRepository(db), nil

	default:
		db, err := a.openLocalDB()
		if err != nil {
			return nil, nil, err
		}
		repo := database.NewContentRepository(db)
		return database.NewLocalWriter(repo), database.NewLogRepository(db), nil
	}
}

func (a *app) openLocalDB() (*database.DB, error) {
	db, err := database.Open(filepath.Join(a.config.DataDir, "content.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open content database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return nil, err
	}
	slog.Debug("Migrations applied", "version", version, "dirty", dirty)
	return db, nil
}

func runIngest(config *cfg.Cfg, command string, operands []string) error {
	a, err := newApp(config)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers := config.WorkerCount
	started := time.Now()

	switch command {
	case "ingest-youtube":
		yt := sources.NewYouTubeCollector(a.httpClient, config.UserAgent)
		err = a.pipeline.RunYouTube(ctx, yt, a.sources.YouTube, a.since, workers)

	case "ingest-youtube-url":
		if len(operands) != 1 {
			return fmt.Errorf("usage: nexus ingest-youtube-url <video-url>")
		}
		yt := sources.NewYouTubeCollector(a.httpClient, config.UserAgent)
		err = a.pipeline.RunYouTubeURL(ctx, yt, operands[0], a.sources.YouTube.Languages)

	case "ingest-news":
		news := sources.NewNewsCollector(a.httpClient, config.UserAgent)
		err = a.pipeline.RunNews(ctx, news, a.extractor, a.sources.News.Feeds, a.since, workers)

	case "ingest-hackernews":
		hn := sources.NewHNCollector(a.httpClient, config.UserAgent)
		err = a.pipeline.RunHackerNews(ctx, hn, a.extractor, a.sources.HackerNews, a.since, workers)

	case "ingest-notes":
		err = a.pipeline.RunNotes(ctx, sources.NewAppleCollector(), a.extractor, a.sources.Apple.NotesFolder, workers)

	case "ingest-reminders":
		err = a.pipeline.RunReminders(ctx, sources.NewAppleCollector(), a.sources.Apple.RemindersList, workers)
	}

	slog.Info("Ingestion finished",
		"command", command,
		"duration", time.Since(started).Round(time.Millisecond).String(),
		"stats", a.pipeline.Stats.String())

	return err
}

func runNotionBootstrap(config *cfg.Cfg) error {
	if config.NotionToken == "" {
		return fmt.Errorf("notion-bootstrap requires --notion-token")
	}
	if config.NotionParentPage == "" {
		return fmt.Errorf("notion-bootstrap requires --notion-parent")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := notion.NewClient(config.NotionToken)
	id, err := notion.Bootstrap(ctx, client, config.NotionParentPage, "Nexus Content")
	if err != nil {
		return err
	}

	fmt.Printf("Created Notion database %s\n", id)
	fmt.Println("Set NOTION_DATABASE_ID to this value to use backend=notion")
	return nil
}

// runMigrate copies every page of the Notion database into the local store,
// so a deployment can move off backend=notion without losing its history.
func runMigrate(config *cfg.Cfg) error {
	if config.NotionToken == "" {
		return fmt.Errorf("migrate requires --notion-token")
	}
	if config.NotionDatabaseID == "" {
		return fmt.Errorf("migrate requires --notion-db")
	}

	a := &app{config: config}
	defer a.Close()

	db, err := a.openLocalDB()
	if err != nil {
		return err
	}
	writer := database.NewLocalWriter(database.NewContentRepository(db))

	dedupeDB, err := database.Open(filepath.Join(config.DataDir, "seen_hashes.db"))
	if err != nil {
		return fmt.Errorf("failed to open dedupe database: %w", err)
	}
	a.closers = append(a.closers, dedupeDB.Close)
	dedupe, err := database.NewDedupeRepository(dedupeDB)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := notion.NewWriter(notion.NewClient(config.NotionToken), config.NotionDatabaseID)
	pages, err := reader.ListPages(ctx)
	if err != nil {
		return err
	}
	slog.Info("Fetched Notion pages", "pages", len(pages))

	migrated, skipped, err := migratePages(ctx, writer, dedupe, pages)
	if err != nil {
		return err
	}
	fmt.Printf("Migrated %d pages (%d skipped)\n", migrated, skipped)
	return nil
}

// migratePages upserts Notion pages into the local store and seeds the
// dedupe store with their hashes so following ingest runs see them as
// already processed. Pages without a link or with an unknown kind are
// skipped; a store failure aborts the migration.
func migratePages(ctx context.Context, writer ingest.Writer, dedupe ingest.DedupeStore, pages []notion.Page) (int, int, error) {
	migrated, skipped := 0, 0

	for _, page := range pages {
		if page.Link == "" {
			skipped++
			continue
		}

		status := page.Status
		if status != database.StatusFetched && status != database.StatusSummarized {
			status = database.StatusFetched
			if page.Summary != "" {
				status = database.StatusSummarized
			}
		}

		var err error
		switch page.Kind {
		case "video":
			_, err = writer.UpsertVideo(ctx, database.Video{
				URL:         page.Link,
				Title:       page.Title,
				Channel:     page.Source,
				PublishedAt: page.Published,
				Summary:     page.Summary,
				ContentHash: page.ContentHash,
				Status:      status,
			})
		case "article":
			_, err = writer.UpsertArticle(ctx, database.Article{
				URL:         page.Link,
				Title:       page.Title,
				Site:        page.Source,
				PublishedAt: page.Published,
				Summary:     page.Summary,
				ContentHash: page.ContentHash,
				Status:      status,
			})
		case "note":
			_, err = writer.UpsertNote(ctx, database.Note{
				URL:         page.Link,
				Title:       page.Title,
				Folder:      page.Source,
				Summary:     page.Summary,
				ContentHash: page.ContentHash,
				Status:      status,
			})
		case "reminder":
			_, err = writer.UpsertReminder(ctx, database.Reminder{
				URL:         page.Link,
				Title:       page.Title,
				ListName:    page.Source,
				DueAt:       page.Due,
				ContentHash: page.ContentHash,
			})
		default:
			slog.Warn("Skipping page with unknown kind", "link", page.Link, "kind", page.Kind)
			skipped++
			continue
		}
		if err != nil {
			return migrated, skipped, fmt.Errorf("failed to migrate %s: %w", page.Link, err)
		}

		if page.ContentHash != "" {
			if err := dedupe.Record(page.Link, page.ContentHash); err != nil {
				return migrated, skipped, fmt.Errorf("failed to record hash for %s: %w", page.Link, err)
			}
		}
		migrated++
	}

	return migrated, skipped, nil
}

func runServe(config *cfg.Cfg) error {
	db, err := database.Open(filepath.Join(config.DataDir, "content.db"))
	if err != nil {
		return fmt.Errorf("failed to open content database: %w", err)
	}
	defer db.Close()

	if _, _, err := database.RunMigrations(db); err != nil {
		return err
	}

	handler := api.NewHandler(database.NewContentRepository(db), database.NewLogRepository(db))
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}
