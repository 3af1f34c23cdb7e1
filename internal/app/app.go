// Package app wires the service's collaborators from configuration.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/internal/config"
	ghclient "github.com/murrayju/jira-workflow-gitbot/internal/github"
	"github.com/murrayju/jira-workflow-gitbot/internal/jira"
	"github.com/murrayju/jira-workflow-gitbot/internal/reconcile"
	"github.com/murrayju/jira-workflow-gitbot/internal/store"
)

// App holds the collaborators shared by the server and the worker
type App struct {
	Config *config.Config
	GitHub *ghclient.Client
	Store  store.Store
	Engine *reconcile.Engine

	closers []func() error
}

// NewLogger creates the process logger. The debug level switches to the
// development configuration.
func NewLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return cfg.Build()
}

// New builds the GitHub client, association store and reconciliation engine
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	gh, err := ghclient.NewClient(cfg.GitHubToken, cfg.GitHubBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	a := &App{Config: cfg, GitHub: gh}

	a.Store, err = a.newStore()
	if err != nil {
		return nil, err
	}

	configs := ghclient.NewConfigLoader(gh, cfg.RepoConfigPath)
	a.Engine = reconcile.NewEngine(configs, a.Store, gh, TrackerFactory(cfg, logger), cfg.JiraUser, logger)

	logger.Info("application initialized",
		zap.String("association_store", cfg.AssociationStore),
		zap.String("dispatch_mode", cfg.DispatchMode),
	)
	return a, nil
}

func (a *App) newStore() (store.Store, error) {
	switch a.Config.AssociationStore {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreSQLite:
		s, err := store.NewSQLiteStore(a.Config.AssociationDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open association database: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return store.NewMetadataStore(a.GitHub, a.Config.MetadataNamespace), nil
	}
}

// TrackerFactory builds Jira clients for a repository's configuration using
// the service account credentials
func TrackerFactory(cfg *config.Config, logger *zap.Logger) reconcile.TrackerFactory {
	return func(jiraCfg config.Jira) (reconcile.Tracker, error) {
		client, err := jira.NewClient(jiraCfg.BaseURL(), jiraCfg.APIVersion, cfg.JiraUser, cfg.JiraPassword, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Close releases resources held by the application
func (a *App) Close() error {
	var firstErr error
	for _, closer := range a.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
