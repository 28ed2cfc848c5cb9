package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads and validates the sources configuration file. A missing
// file yields a default configuration so commands that need no sources
// (serve, notion-bootstrap) still run.
func LoadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			setDefaults(&config)
			return &config, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &config, nil
}

func setDefaults(config *Config) {
	if len(config.YouTube.Languages) == 0 {
		config.YouTube.Languages = []string{"en", "en-US"}
	}
	if config.HackerNews.MinScore == 0 {
		config.HackerNews.MinScore = 100
	}
	if config.HackerNews.MaxStories == 0 {
		config.HackerNews.MaxStories = 100
	}
	if config.Apple.NotesFolder == "" {
		config.Apple.NotesFolder = "Nexus"
	}
	if config.Apple.RemindersList == "" {
		config.Apple.RemindersList = "Nexus"
	}
	if config.Summarize.Endpoint == "" {
		config.Summarize.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if config.Summarize.Model == "" {
		config.Summarize.Model = "gpt-4o-mini"
	}
	if config.Summarize.MaxTokens == 0 {
		config.Summarize.MaxTokens = 1000
	}
	if config.Summarize.Temperature == 0 {
		config.Summarize.Temperature = 0.3
	}
	if config.Summarize.ChunkSize == 0 {
		config.Summarize.ChunkSize = 8000
	}
	if config.Summarize.Timeout == 0 {
		config.Summarize.Timeout = 60
	}
}

func validateConfig(config *Config) error {
	if config.HackerNews.MinScore < 0 {
		return fmt.Errorf("hackernews min_score must be non-negative")
	}
	if config.HackerNews.MaxStories < 0 {
		return fmt.Errorf("hackernews max_stories must be non-negative")
	}
	if config.Summarize.ChunkSize < 0 {
		return fmt.Errorf("summarize chunk_size must be non-negative")
	}
	for _, url := range config.News.Feeds {
		if url == "" {
			return fmt.Errorf("news feeds must not contain empty URLs")
		}
	}
	for _, id := range config.YouTube.Channels {
		if id == "" {
			return fmt.Errorf("youtube channels must not contain empty IDs")
		}
	}
	return nil
}
