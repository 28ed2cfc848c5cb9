package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	Backend   string `long:"backend" env:"NEXUS_BACKEND" default:"sqlite" choice:"sqlite" choice:"notion" description:"Content backend"`
	DataDir   string `long:"data-dir" env:"NEXUS_DATA_DIR" default:"./db" description:"Directory holding the content and dedupe databases"`
	FeedsFile string `long:"feeds" env:"NEXUS_FEEDS" default:"./config/feeds.yml" description:"Path to the sources configuration file"`

	// Ingestion configuration
	WorkerCount int  `long:"workers" env:"NEXUS_WORKERS" default:"10" description:"Number of concurrent ingestion workers"`
	SinceHours  int  `long:"since" env:"NEXUS_SINCE" default:"24" description:"How many hours to look back when discovering items"`
	MinScore    int  `long:"min-score" env:"NEXUS_MIN_SCORE" default:"100" description:"Minimum Hacker News score threshold"`
	DryRun      bool `long:"dry-run" description:"Discover and fetch only; do not write to any backend"`
	Console     bool `long:"console" description:"Print a one-line summary per processed item"`

	// Backend credentials
	NotionToken      string `long:"notion-token" env:"NOTION_TOKEN" description:"Notion integration token (required for backend=notion)"`
	NotionDatabaseID string `long:"notion-db" env:"NOTION_DATABASE_ID" description:"Notion database ID for content pages"`
	NotionParentPage string `long:"notion-parent" env:"NOTION_PARENT_PAGE_ID" description:"Parent page ID for the notion-bootstrap command"`
	OpenAIAPIKey     string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"API key for the summarization endpoint"`

	// HTTP API configuration
	Port string `long:"port" env:"PORT" default:"8080" description:"HTTP server port for the serve command"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Nexus/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses flags and environment variables. The returned args slice holds
// the remaining positional arguments (the subcommand and its operands). A nil
// Cfg with nil error means help was requested.
func Load() (*Cfg, []string, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.Usage = "[OPTIONS] COMMAND"

	args, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil, nil
			}
		}
		return nil, nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Backend:          raw.Backend,
		DataDir:          raw.DataDir,
		FeedsFile:        raw.FeedsFile,
		WorkerCount:      raw.WorkerCount,
		SinceHours:       raw.SinceHours,
		MinScore:         raw.MinScore,
		DryRun:           raw.DryRun,
		Console:          raw.Console,
		NotionToken:      raw.NotionToken,
		NotionDatabaseID: raw.NotionDatabaseID,
		NotionParentPage: raw.NotionParentPage,
		OpenAIAPIKey:     raw.OpenAIAPIKey,
		Port:             raw.Port,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, args, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
