package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Association store backends
const (
	StoreMetadata = "metadata"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Event dispatch modes
const (
	DispatchInline   = "inline"
	DispatchTemporal = "temporal"
)

// Config holds the service-wide settings read from the environment
type Config struct {
	ListenAddr     string
	WebhookSecret  string
	GitHubToken    string
	GitHubBaseURL  string
	JiraUser       string
	JiraPassword   string
	RepoConfigPath string
	LogLevel       string

	AssociationStore  string
	AssociationDB     string
	MetadataNamespace string

	DispatchMode      string
	TemporalAddress   string
	TemporalNamespace string
	TaskQueue         string
}

// Load reads the configuration from the environment. Variables from envFile,
// when present, are loaded first without overriding the real environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":3000"),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),
		GitHubToken:       getEnv("GITHUB_TOKEN", ""),
		GitHubBaseURL:     getEnv("GITHUB_BASE_URL", ""),
		JiraUser:          getEnv("JIRA_USER", ""),
		JiraPassword:      getEnv("JIRA_PASS", ""),
		RepoConfigPath:    getEnv("REPO_CONFIG_PATH", ".github/jira.yml"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AssociationStore:  getEnv("ASSOCIATION_STORE", StoreMetadata),
		AssociationDB:     getEnv("ASSOCIATION_DB", "gitbot.db"),
		MetadataNamespace: getEnv("METADATA_NAMESPACE", "jira-workflow-gitbot"),
		DispatchMode:      getEnv("DISPATCH_MODE", DispatchInline),
		TemporalAddress:   getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace: getEnv("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:         getEnv("TASK_QUEUE", "pr-sync-queue"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AssociationStore {
	case StoreMetadata, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown association store %q", c.AssociationStore)
	}
	switch c.DispatchMode {
	case DispatchInline, DispatchTemporal:
	default:
		return fmt.Errorf("unknown dispatch mode %q", c.DispatchMode)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
