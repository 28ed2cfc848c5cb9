package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jammor/nexus/app/database"
	"github.com/jammor/nexus/app/sources"
	"github.com/jammor/nexus/app/summarizer"
)

// fixtures

type fakeYouTube struct {
	videos      []sources.VideoItem
	transcript  string
	fetchErr    error
	fetchCalls  atomic.Int64
	watchResult sources.VideoItem
}

func (f *fakeYouTube) DiscoverChannel(ctx context.Context, channelID string, since time.Duration) ([]sources.VideoItem, error) {
	return f.videos, nil
}

func (f *fakeYouTube) DiscoverFeed(ctx context.Context, feedURL string, since time.Duration) ([]sources.VideoItem, error) {
	return f.videos, nil
}

func (f *fakeYouTube) FetchTranscript(ctx context.Context, videoID string, languages []string) (string, error) {
	f.fetchCalls.Add(1)
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return f.transcript, nil
}

func (f *fakeYouTube) WatchMetadata(ctx context.Context, videoURL string) (sources.VideoItem, error) {
	return f.watchResult, nil
}

type fakeNews struct {
	articles []sources.ArticleItem
}

func (f *fakeNews) DiscoverFeed(ctx context.Context, feedURL string, since time.Duration) ([]sources.ArticleItem, error) {
	return f.articles, nil
}

type fakeFetcher struct {
	text string
	err  error
}

func (f *fakeFetcher) FetchArticle(ctx context.Context, pageURL string) (string, error) {
	return f.text, f.err
}

type fakeHN struct {
	stories []sources.HNStory
}

func (f *fakeHN) FetchTopStories(ctx context.Context, minScore, maxStories int, since time.Duration) ([]sources.HNStory, error) {
	return f.stories, nil
}

type fakeApple struct {
	notes     []sources.NoteItem
	reminders []sources.ReminderItem
}

func (f *fakeApple) FetchNotes(ctx context.Context, folder string) ([]sources.NoteItem, error) {
	return f.notes, nil
}

func (f *fakeApple) FetchReminders(ctx context.Context, list string) ([]sources.ReminderItem, error) {
	return f.reminders, nil
}

type passStripper struct{}

func (passStripper) StripMarkup(s string) string { return s }

type fakeSummarizer struct {
	calls atomic.Int64
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, title, text string) (*summarizer.Summary, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &summarizer.Summary{TLDR: "summary of " + title, Raw: "TL;DR: summary of " + title}, nil
}

type failingWriter struct {
	Writer
	err error
}

func (w *failingWriter) UpsertVideo(ctx context.Context, v database.Video) (string, error) {
	return "", w.err
}

type failingDedupe struct {
	err error
}

func (d *failingDedupe) Lookup(url string) (string, bool, error) { return "", false, d.err }
func (d *failingDedupe) Record(url, contentHash string) error    { return d.err }

type testEnv struct {
	pipeline *Pipeline
	repo     *database.ContentRepository
	dedupe   *database.DedupeRepository
	logs     *database.LogRepository
	sum      *fakeSummarizer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	dedupeDB, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open dedupe database: %v", err)
	}
	t.Cleanup(func() { dedupeDB.Close() })
	dedupe, err := database.NewDedupeRepository(dedupeDB)
	if err != nil {
		t.Fatalf("Failed to create dedupe repository: %v", err)
	}

	repo := database.NewContentRepository(db)
	logs := database.NewLogRepository(db)
	sum := &fakeSummarizer{}

	return &testEnv{
		pipeline: NewPipeline(database.NewLocalWriter(repo), dedupe, logs, sum),
		repo:     repo,
		dedupe:   dedupe,
		logs:     logs,
		sum:      sum,
	}
}

func testVideoItem() sources.VideoItem {
	return sources.VideoItem{
		URL:     "https://www.youtube.com/watch?v=abc123def45",
		Title:   "A Talk",
		Channel: "A Channel",
		VideoID: "abc123def45",
	}
}

// tests

func TestYouTubeIngestIdempotent(t *testing.T) {
	env := newTestEnv(t)
	yt := &fakeYouTube{videos: []sources.VideoItem{testVideoItem()}, transcript: "hello transcript"}
	config := sources.YouTubeConfig{Channels: []string{"UC1"}}

	if err := env.pipeline.RunYouTube(context.Background(), yt, config, time.Hour, 2); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := env.pipeline.Stats.Created.Load(); got != 1 {
		t.Errorf("Expected 1 created, got %d", got)
	}

	if err := env.pipeline.RunYouTube(context.Background(), yt, config, time.Hour, 2); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := env.pipeline.Stats.Skipped.Load(); got != 1 {
		t.Errorf("Expected 1 skipped on the second run, got %d", got)
	}
	if got := env.pipeline.Stats.Created.Load(); got != 1 {
		t.Errorf("Expected no additional creates, got %d", got)
	}
	if got := env.sum.calls.Load(); got != 1 {
		t.Errorf("Expected 1 summarization call, got %d", got)
	}

	video, err := env.repo.GetVideo("https://www.youtube.com/watch?v=abc123def45")
	if err != nil {
		t.Fatalf("Failed to read stored video: %v", err)
	}
	if video == nil {
		t.Fatal("Expected stored video")
	}
	if video.Status != database.StatusSummarized {
		t.Errorf("Expected status summarized, got %q", video.Status)
	}
}

func TestYouTubeChangeDetection(t *testing.T) {
	env := newTestEnv(t)
	yt := &fakeYouTube{videos: []sources.VideoItem{testVideoItem()}, transcript: "first version"}
	config := sources.YouTubeConfig{Channels: []string{"UC1"}}

	if err := env.pipeline.RunYouTube(context.Background(), yt, config, time.Hour, 1); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	yt.transcript = "second version"
	if err := env.pipeline.RunYouTube(context.Background(), yt, config, time.Hour, 1); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if got := env.pipeline.Stats.Updated.Load(); got != 1 {
		t.Errorf("Expected 1 updated, got %d", got)
	}

	video, err := env.repo.GetVideo("https://www.youtube.com/watch?v=abc123def45")
	if err != nil || video == nil {
		t.Fatalf("Failed to read stored video: %v", err)
	}
	if video.Transcript != "second version" {
		t.Errorf("Expected updated transcript, got %q", video.Transcript)
	}
}

func TestYouTubeTranscriptBlockedAbortsRun(t *testing.T) {
	env := newTestEnv(t)
	yt := &fakeYouTube{
		videos: []sources.VideoItem{
			testVideoItem(),
			{URL: "https://www.youtube.com/watch?v=def456ghi78", Title: "Another", VideoID: "def456ghi78"},
		},
		fetchErr: fmt.Errorf("HTTP 429: %w", sources.ErrTranscriptBlocked),
	}

	err := env.pipeline.RunYouTube(context.Background(), yt, sources.YouTubeConfig{Channels: []string{"UC1"}}, time.Hour, 1)
	if !errors.Is(err, sources.ErrTranscriptBlocked) {
		t.Fatalf("Expected ErrTranscriptBlocked, got: %v", err)
	}

	// the second task must not have run after the fatal error
	if got := yt.fetchCalls.Load(); got != 1 {
		t.Errorf("Expected run to stop after 1 fetch, got %d", got)
	}
}

func TestYouTubeSummarizeFailureStoresRaw(t *testing.T) {
	env := newTestEnv(t)
	env.sum.err = &summarizer.Error{Err: errors.New("model unavailable")}
	yt := &fakeYouTube{videos: []sources.VideoItem{testVideoItem()}, transcript: "hello transcript"}

	if err := env.pipeline.RunYouTube(context.Background(), yt, sources.YouTubeConfig{Channels: []string{"UC1"}}, time.Hour, 1); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	video, err := env.repo.GetVideo("https://www.youtube.com/watch?v=abc123def45")
	if err != nil || video == nil {
		t.Fatalf("Failed to read stored video: %v", err)
	}
	if video.Status != database.StatusFetched {
		t.Errorf("Expected status fetched, got %q", video.Status)
	}
	if video.Summary != "" {
		t.Errorf("Expected empty summary, got %q", video.Summary)
	}
	if video.Transcript != "hello transcript" {
		t.Errorf("Expected raw transcript stored, got %q", video.Transcript)
	}
}

func TestYouTubeDedupeStoreFailureSkipsItem(t *testing.T) {
	env := newTestEnv(t)
	env.pipeline.Dedupe = &failingDedupe{err: errors.New("database is locked")}
	yt := &fakeYouTube{videos: []sources.VideoItem{testVideoItem()}, transcript: "hello transcript"}

	if err := env.pipeline.RunYouTube(context.Background(), yt, sources.YouTubeConfig{Channels: []string{"UC1"}}, time.Hour, 1); err != nil {
		t.Fatalf("Expected soft failure, got: %v", err)
	}

	if got := env.pipeline.Stats.Errors.Load(); got != 1 {
		t.Errorf("Expected 1 error, got %d", got)
	}
	if got := env.sum.calls.Load(); got != 0 {
		t.Errorf("Expected no summarization for the skipped item, got %d calls", got)
	}

	video, err := env.repo.GetVideo("https://www.youtube.com/watch?v=abc123def45")
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}
	if video != nil {
		t.Error("Expected no write while the dedupe store is failing")
	}

	entries, err := env.logs.Recent(10)
	if err != nil {
		t.Fatalf("Failed to read logs: %v", err)
	}
	var logged bool
	for _, e := range entries {
		if e.Action == "fetch" && e.Result == "error" {
			logged = true
		}
		if e.Action == "write" {
			t.Errorf("Unexpected write log entry: %+v", e)
		}
	}
	if !logged {
		t.Error("Expected an error log entry for the dedupe failure")
	}
}

func TestTwoWorkersCreateDistinctItems(t *testing.T) {
	env := newTestEnv(t)
	yt := &fakeYouTube{
		videos: []sources.VideoItem{
			testVideoItem(),
			{URL: "https://www.youtube.com/watch?v=def456ghi78", Title: "Another Talk", Channel: "A Channel", VideoID: "def456ghi78"},
		},
		transcript: "hello transcript",
	}

	if err := env.pipeline.RunYouTube(context.Background(), yt, sources.YouTubeConfig{Channels: []string{"UC1"}}, time.Hour, 2); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if got := env.pipeline.Stats.Created.Load(); got != 2 {
		t.Errorf("Expected 2 created, got %d", got)
	}
	for _, url := range []string{
		"https://www.youtube.com/watch?v=abc123def45",
		"https://www.youtube.com/watch?v=def456ghi78",
	} {
		video, err := env.repo.GetVideo(url)
		if err != nil || video == nil {
			t.Fatalf("Expected stored video for %s, got %v, %v", url, video, err)
		}
	}

	n, err := env.dedupe.Count()
	if err != nil {
		t.Fatalf("Failed to count dedupe records: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 dedupe records, got %d", n)
	}
}

func TestYouTubeWriteFailureDoesNotRecordHash(t *testing.T) {
	env := newTestEnv(t)
	realWriter := env.pipeline.Writer
	env.pipeline.Writer = &failingWriter{Writer: realWriter, err: errors.New("backend down")}

	yt := &fakeYouTube{videos: []sources.VideoItem{testVideoItem()}, transcript: "hello transcript"}
	config := sources.YouTubeConfig{Channels: []string{"UC1"}}

	if err := env.pipeline.RunYouTube(context.Background(), yt, config, time.Hour, 1); err != nil {
		t.Fatalf("Expected soft failure, got: %v", err)
	}
	if got := env.pipeline.Stats.Errors.Load(); got != 1 {
		t.Errorf("Expected 1 error, got %d", got)
	}

	// with the backend healthy again the item is fully reprocessed
	env.pipeline.Writer = realWriter
	if err := env.pipeline.RunYouTube(context.Background(), yt, config, time.Hour, 1); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := env.pipeline.Stats.Created.Load(); got != 1 {
		t.Errorf("Expected the retry to create the video, got %d", got)
	}
}

func TestYouTubeDryRun(t *testing.T) {
	env := newTestEnv(t)
	env.pipeline.DryRun = true
	yt := &fakeYouTube{videos: []sources.VideoItem{testVideoItem()}, transcript: "hello transcript"}

	if err := env.pipeline.RunYouTube(context.Background(), yt, sources.YouTubeConfig{Channels: []string{"UC1"}}, time.Hour, 1); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	video, err := env.repo.GetVideo("https://www.youtube.com/watch?v=abc123def45")
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}
	if video != nil {
		t.Error("Expected no write in dry-run mode")
	}
	if got := env.sum.calls.Load(); got != 0 {
		t.Errorf("Expected no summarization in dry-run mode, got %d calls", got)
	}

	// a later real run must not be poisoned by dry-run dedupe state
	env.pipeline.DryRun = false
	if err := env.pipeline.RunYouTube(context.Background(), yt, sources.YouTubeConfig{Channels: []string{"UC1"}}, time.Hour, 1); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := env.pipeline.Stats.Created.Load(); got != 1 {
		t.Errorf("Expected the real run to create the video, got %d", got)
	}
}

func TestNewsIngest(t *testing.T) {
	env := newTestEnv(t)
	news := &fakeNews{articles: []sources.ArticleItem{
		{URL: "https://example.com/post?utm_source=rss", Title: "A Post", Site: "Example"},
	}}
	fetcher := &fakeFetcher{text: "full article text"}

	if err := env.pipeline.RunNews(context.Background(), news, fetcher, []string{"https://example.com/feed"}, time.Hour, 2); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// tracking params are stripped before the article is keyed
	article, err := env.repo.GetArticle("https://example.com/post")
	if err != nil || article == nil {
		t.Fatalf("Expected stored article under canonical URL, got %v, %v", article, err)
	}
	if article.Content != "full article text" {
		t.Errorf("Unexpected content: %q", article.Content)
	}
	if article.Status != database.StatusSummarized {
		t.Errorf("Expected status summarized, got %q", article.Status)
	}
}

func TestNewsFetchFailureSkipsItem(t *testing.T) {
	env := newTestEnv(t)
	news := &fakeNews{articles: []sources.ArticleItem{
		{URL: "https://example.com/post", Title: "A Post", Site: "Example"},
	}}
	fetcher := &fakeFetcher{err: errors.New("connection refused")}

	if err := env.pipeline.RunNews(context.Background(), news, fetcher, []string{"https://example.com/feed"}, time.Hour, 1); err != nil {
		t.Fatalf("Expected soft failure, got: %v", err)
	}
	if got := env.pipeline.Stats.Errors.Load(); got != 1 {
		t.Errorf("Expected 1 error, got %d", got)
	}

	article, err := env.repo.GetArticle("https://example.com/post")
	if err != nil {
		t.Fatalf("Failed to read store: %v", err)
	}
	if article != nil {
		t.Error("Expected no article stored after fetch failure")
	}
}

func TestHackerNewsDiscussionLink(t *testing.T) {
	env := newTestEnv(t)
	hn := &fakeHN{stories: []sources.HNStory{{
		ID:    42,
		Title: "A Story",
		URL:   "https://example.com/story",
		Score: 250,
		By:    "alice",
		Time:  time.Now().UTC(),
		HNURL: "https://news.ycombinator.com/item?id=42",
	}}}
	fetcher := &fakeFetcher{text: "story text"}

	if err := env.pipeline.RunHackerNews(context.Background(), hn, fetcher, sources.HackerNewsConfig{MinScore: 100, MaxStories: 10}, time.Hour, 1); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	article, err := env.repo.GetArticle("https://example.com/story")
	if err != nil || article == nil {
		t.Fatalf("Expected stored article, got %v, %v", article, err)
	}
	if article.Site != "Hacker News (250 points)" {
		t.Errorf("Unexpected site: %q", article.Site)
	}
	if article.Summary == "" || article.Summary[:len("Discussion: ")] != "Discussion: " {
		t.Errorf("Expected discussion link prefix, got %q", article.Summary)
	}
}

func TestNotesIngest(t *testing.T) {
	env := newTestEnv(t)
	apple := &fakeApple{notes: []sources.NoteItem{
		{NoteID: "x-coredata://ABC/Note/p1", Title: "Shopping", Body: "milk and eggs", Folder: "Nexus"},
	}}

	if err := env.pipeline.RunNotes(context.Background(), apple, passStripper{}, "Nexus", 1); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	note, err := env.repo.GetNote("notes://x-coredata://ABC/Note/p1")
	if err != nil || note == nil {
		t.Fatalf("Expected stored note, got %v, %v", note, err)
	}
	if note.Body != "milk and eggs" {
		t.Errorf("Unexpected body: %q", note.Body)
	}
}

func TestRemindersNeverSummarized(t *testing.T) {
	env := newTestEnv(t)
	apple := &fakeApple{reminders: []sources.ReminderItem{
		{ReminderID: "r1", Title: "Call dentist", ListName: "Nexus", Due: "tomorrow"},
	}}

	if err := env.pipeline.RunReminders(context.Background(), apple, "Nexus", 1); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if got := env.sum.calls.Load(); got != 0 {
		t.Errorf("Expected no summarization calls for reminders, got %d", got)
	}

	reminder, err := env.repo.GetReminder("reminders://r1")
	if err != nil || reminder == nil {
		t.Fatalf("Expected stored reminder, got %v, %v", reminder, err)
	}
}

func TestRunPoolStopsOnFatalError(t *testing.T) {
	var executed atomic.Int64
	boom := errors.New("boom")

	tasks := make([]Task, 20)
	for i := range tasks {
		first := i == 0
		tasks[i] = func(ctx context.Context) error {
			executed.Add(1)
			if first {
				return boom
			}
			return nil
		}
	}

	err := RunPool(context.Background(), 1, tasks)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected fatal error, got: %v", err)
	}
	if got := executed.Load(); got >= 20 {
		t.Errorf("Expected the pool to stop early, got %d executions", got)
	}
}

func TestRunPoolRunsAllTasks(t *testing.T) {
	var executed atomic.Int64

	tasks := make([]Task, 50)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			executed.Add(1)
			return nil
		}
	}

	if err := RunPool(context.Background(), 8, tasks); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := executed.Load(); got != 50 {
		t.Errorf("Expected 50 executions, got %d", got)
	}
}
