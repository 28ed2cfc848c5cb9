package sources

import (
	"time"
)

// Discovery result types. Discovery produces lightweight metadata only;
// content fetching happens later in the ingestion pipeline.

type VideoItem struct {
	URL       string
	Title     string
	Channel   string
	VideoID   string
	Thumbnail string
	Published *time.Time
}

type ArticleItem struct {
	URL       string
	Title     string
	Site      string
	Published *time.Time
}

type HNStory struct {
	ID    int
	Title string
	URL   string
	Score int
	By    string
	Time  time.Time
	HNURL string // link to the HN discussion
}

type NoteItem struct {
	NoteID string
	Title  string
	Body   string // HTML fragment as exported by Notes
	Folder string
}

type ReminderItem struct {
	ReminderID string
	Title      string
	ListName   string
	Due        string // raw date string as reported by Reminders, "" if unset
}

// Configuration types (feeds.yml)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	News       NewsConfig       `yaml:"news"`
	HackerNews HackerNewsConfig `yaml:"hackernews"`
	Apple      AppleConfig      `yaml:"apple"`
	Summarize  SummarizeConfig  `yaml:"summarize"`
}

type YouTubeConfig struct {
	SubscriptionFeed string   `yaml:"subscription_feed"`
	Channels         []string `yaml:"channels"`
	Languages        []string `yaml:"languages"`
}

type NewsConfig struct {
	Feeds []string `yaml:"feeds"`
}

type HackerNewsConfig struct {
	MinScore   int `yaml:"min_score"`
	MaxStories int `yaml:"max_stories"`
}

type AppleConfig struct {
	NotesFolder   string `yaml:"notes_folder"`
	RemindersList string `yaml:"reminders_list"`
}

type SummarizeConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	ChunkSize   int     `yaml:"chunk_size"`
	Timeout     int     `yaml:"timeout"` // seconds
}
