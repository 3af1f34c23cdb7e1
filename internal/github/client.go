package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// Client wraps the GitHub API calls used to reconcile pull requests
type Client struct {
	apiClient *github.Client
	logger    *zap.Logger
}

// NewClient creates a new GitHub client. baseURL selects a GitHub Enterprise
// API endpoint and may be empty for github.com.
func NewClient(accessToken, baseURL string, logger *zap.Logger) (*Client, error) {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: accessToken},
	)
	tc := oauth2.NewClient(ctx, ts)

	apiClient := github.NewClient(tc)
	if baseURL != "" {
		var err error
		apiClient, err = apiClient.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure enterprise url: %w", err)
		}
	}

	return newClient(apiClient, logger), nil
}

func newClient(apiClient *github.Client, logger *zap.Logger) *Client {
	return &Client{
		apiClient: apiClient,
		logger:    logger,
	}
}

// CreateComment posts a comment on a pull request
func (c *Client) CreateComment(ctx context.Context, ref types.PullRequestRef, body string) error {
	_, _, err := c.apiClient.Issues.CreateComment(ctx, ref.Repository.Owner, ref.Repository.Name, ref.Number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to create comment on %s: %w", ref, err)
	}
	return nil
}

// AddAssignees adds assignees to a pull request
func (c *Client) AddAssignees(ctx context.Context, ref types.PullRequestRef, logins []string) error {
	_, _, err := c.apiClient.Issues.AddAssignees(ctx, ref.Repository.Owner, ref.Repository.Name, ref.Number, logins)
	if err != nil {
		return fmt.Errorf("failed to add assignees to %s: %w", ref, err)
	}

	c.logger.Info("added assignees",
		zap.String("pull_request", ref.String()),
		zap.Strings("assignees", logins),
	)
	return nil
}

// RequestReviewers requests reviews from the given logins
func (c *Client) RequestReviewers(ctx context.Context, ref types.PullRequestRef, logins []string) error {
	_, _, err := c.apiClient.PullRequests.RequestReviewers(ctx, ref.Repository.Owner, ref.Repository.Name, ref.Number, github.ReviewersRequest{
		Reviewers: logins,
	})
	if err != nil {
		return fmt.Errorf("failed to request reviewers on %s: %w", ref, err)
	}

	c.logger.Info("requested reviewers",
		zap.String("pull_request", ref.String()),
		zap.Strings("reviewers", logins),
	)
	return nil
}

// RequestedReviewers returns the logins currently requested to review
func (c *Client) RequestedReviewers(ctx context.Context, ref types.PullRequestRef) ([]string, error) {
	reviewers, _, err := c.apiClient.PullRequests.ListReviewers(ctx, ref.Repository.Owner, ref.Repository.Name, ref.Number, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviewers of %s: %w", ref, err)
	}
	return logins(reviewers.Users), nil
}

// GetPullRequest retrieves the current state of a pull request
func (c *Client) GetPullRequest(ctx context.Context, ref types.PullRequestRef) (types.PullRequest, error) {
	pr, _, err := c.apiClient.PullRequests.Get(ctx, ref.Repository.Owner, ref.Repository.Name, ref.Number)
	if err != nil {
		return types.PullRequest{}, fmt.Errorf("failed to get pull request %s: %w", ref, err)
	}
	return PullRequestFromAPI(pr), nil
}

// IssueBody returns the raw body of the issue backing a pull request
func (c *Client) IssueBody(ctx context.Context, ref types.PullRequestRef) (string, error) {
	issue, _, err := c.apiClient.Issues.Get(ctx, ref.Repository.Owner, ref.Repository.Name, ref.Number)
	if err != nil {
		return "", fmt.Errorf("failed to get issue %s: %w", ref, err)
	}
	return issue.GetBody(), nil
}

// SetIssueBody replaces the body of the issue backing a pull request
func (c *Client) SetIssueBody(ctx context.Context, ref types.PullRequestRef, body string) error {
	_, _, err := c.apiClient.Issues.Edit(ctx, ref.Repository.Owner, ref.Repository.Name, ref.Number, &github.IssueRequest{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to edit issue %s: %w", ref, err)
	}
	return nil
}
