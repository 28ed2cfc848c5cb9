package database

import (
	"time"
)

// Upsert outcomes. "unchanged" means the stored content hash matched and no
// write happened.
const (
	ResultCreated   = "created"
	ResultUpdated   = "updated"
	ResultUnchanged = "unchanged"
)

// Status values for summarizable records. A record is "fetched" until a
// summary has been produced for it.
const (
	StatusFetched    = "fetched"
	StatusSummarized = "summarized"
)

type Video struct {
	ID          int64
	URL         string
	Title       string
	Channel     string
	PublishedAt *time.Time
	Thumbnail   string
	Transcript  string
	Summary     string
	ContentHash string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Article struct {
	ID          int64
	URL         string
	Title       string
	Site        string
	PublishedAt *time.Time
	Content     string
	Summary     string
	ContentHash string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Note struct {
	ID          int64
	URL         string // synthetic notes:// identifier
	Title       string
	Folder      string
	Body        string
	Summary     string
	ContentHash string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Reminder struct {
	ID          int64
	URL         string // synthetic reminders:// identifier
	Title       string
	ListName    string
	DueAt       string // opaque locale-formatted date from Reminders.app
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type LogEntry struct {
	ID      int64
	TS      time.Time
	Source  string
	URL     string
	Action  string // discover, fetch, summarize, write
	Result  string // ok, skip, error
	Message string
}

// SearchHit is one full-text search result across the content tables.
type SearchHit struct {
	Kind    string // video, article, note
	URL     string
	Title   string
	Snippet string
}

type Stats struct {
	Videos     int `json:"videos"`
	Articles   int `json:"articles"`
	Notes      int `json:"notes"`
	Reminders  int `json:"reminders"`
	Summarized int `json:"summarized"`
	LogEntries int `json:"log_entries"`
}
