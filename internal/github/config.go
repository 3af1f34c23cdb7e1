package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/internal/config"
	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// ConfigLoader reads the per-repository configuration file from the
// repository's default branch
type ConfigLoader struct {
	client *Client
	path   string
}

// NewConfigLoader creates a loader for the file at path
func NewConfigLoader(client *Client, path string) *ConfigLoader {
	return &ConfigLoader{
		client: client,
		path:   path,
	}
}

// RepoConfig loads and parses the repository configuration. A missing file
// yields an unconfigured zero value rather than an error.
func (l *ConfigLoader) RepoConfig(ctx context.Context, repo types.Repository) (config.Repo, error) {
	file, _, _, err := l.client.apiClient.Repositories.GetContents(ctx, repo.Owner, repo.Name, l.path, nil)
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			l.client.logger.Debug("repository config not found",
				zap.String("repository", repo.FullName()),
				zap.String("path", l.path),
			)
			return config.ParseRepo(nil)
		}
		return config.Repo{}, fmt.Errorf("failed to fetch %s from %s: %w", l.path, repo.FullName(), err)
	}
	if file == nil {
		return config.Repo{}, fmt.Errorf("%s in %s is a directory", l.path, repo.FullName())
	}

	content, err := file.GetContent()
	if err != nil {
		return config.Repo{}, fmt.Errorf("failed to decode %s from %s: %w", l.path, repo.FullName(), err)
	}
	return config.ParseRepo([]byte(content))
}
