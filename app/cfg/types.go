package cfg

type Cfg struct {
	// Storage configuration
	Backend   string
	DataDir   string
	FeedsFile string

	// Ingestion configuration
	WorkerCount int
	SinceHours  int
	MinScore    int
	DryRun      bool
	Console     bool

	// Backend credentials
	NotionToken      string
	NotionDatabaseID string
	NotionParentPage string
	OpenAIAPIKey     string

	// HTTP API configuration
	Port string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
