package ingest

import (
	"context"

	"github.com/jammor/nexus/app/database"
	"github.com/jammor/nexus/app/summarizer"
)

// Writer stores content items in a backend. Implemented by the local SQLite
// store and the Notion writer. Each method returns one of the database
// Result* constants.
type Writer interface {
	UpsertVideo(ctx context.Context, v database.Video) (string, error)
	UpsertArticle(ctx context.Context, a database.Article) (string, error)
	UpsertNote(ctx context.Context, n database.Note) (string, error)
	UpsertReminder(ctx context.Context, r database.Reminder) (string, error)
}

// DedupeStore remembers the content hash last processed for a URL.
type DedupeStore interface {
	Lookup(url string) (string, bool, error)
	Record(url, contentHash string) error
}

// LogWriter appends to the ingestion audit trail.
type LogWriter interface {
	Append(entry database.LogEntry) error
}

// TextSummarizer produces a structured summary for a piece of content.
type TextSummarizer interface {
	Summarize(ctx context.Context, title, text string) (*summarizer.Summary, error)
}
