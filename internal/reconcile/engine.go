// Package reconcile keeps a pull request and its linked Jira issue in
// agreement. Each lifecycle event is diffed against the stored association and
// converged through idempotent calls on both sides. Failures are contained per
// sync action and surfaced as pull request comments where a human has to act.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	gojira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/internal/config"
	"github.com/murrayju/jira-workflow-gitbot/internal/jira"
	"github.com/murrayju/jira-workflow-gitbot/internal/store"
	"github.com/murrayju/jira-workflow-gitbot/internal/title"
	"github.com/murrayju/jira-workflow-gitbot/internal/usermap"
	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// ErrAmbiguousUser is returned when a login cannot be matched to exactly one
// Jira user
var ErrAmbiguousUser = errors.New("ambiguous jira user")

// Hosting is the subset of the GitHub client the engine drives
type Hosting interface {
	CreateComment(ctx context.Context, ref types.PullRequestRef, body string) error
	AddAssignees(ctx context.Context, ref types.PullRequestRef, logins []string) error
	RequestReviewers(ctx context.Context, ref types.PullRequestRef, logins []string) error
	RequestedReviewers(ctx context.Context, ref types.PullRequestRef) ([]string, error)
}

// Tracker is the subset of the Jira client the engine drives
type Tracker interface {
	GetIssue(ctx context.Context, issueKey, reviewerField string) (*jira.IssueDetail, error)
	RemoteLinks(ctx context.Context, issueKey string) ([]gojira.RemoteLink, error)
	CreateRemoteLink(ctx context.Context, issueKey, targetURL, title string) error
	DeleteRemoteLink(ctx context.Context, self string) error
	AddComment(ctx context.Context, issueKey, body string) error
	UpdateComment(ctx context.Context, issueKey, commentID, body string) error
	GetUser(ctx context.Context, username string) (*gojira.User, error)
	SearchUsers(ctx context.Context, query string) ([]gojira.User, error)
	SetAssignee(ctx context.Context, issueKey string, user gojira.User) error
	SetUserField(ctx context.Context, issueKey, field string, usernames []string) error
}

// TrackerFactory builds a tracker client for a repository's Jira settings
type TrackerFactory func(cfg config.Jira) (Tracker, error)

// ConfigSource provides per-repository configuration
type ConfigSource interface {
	RepoConfig(ctx context.Context, repo types.Repository) (config.Repo, error)
}

// Engine reconciles pull request events
type Engine struct {
	configs  ConfigSource
	store    store.Store
	hosting  Hosting
	trackers TrackerFactory
	username string
	logger   *zap.Logger
}

// NewEngine creates an engine. username is the Jira service account the
// tracker clients authenticate as; its comments are the ones kept in sync.
func NewEngine(configs ConfigSource, associations store.Store, hosting Hosting, trackers TrackerFactory, username string, logger *zap.Logger) *Engine {
	return &Engine{
		configs:  configs,
		store:    associations,
		hosting:  hosting,
		trackers: trackers,
		username: username,
		logger:   logger,
	}
}

// Handle processes one pull request event. Only a failure to load the
// repository configuration or build its tracker client is returned; every
// other failure is logged and contained.
func (e *Engine) Handle(ctx context.Context, ev types.PullRequestEvent) error {
	logger := e.logger.With(
		zap.String("repo", ev.Repository.FullName()),
		zap.Int("pr_number", ev.PullRequest.Number),
		zap.String("action", string(ev.Action)),
		zap.String("delivery_id", ev.DeliveryID),
	)

	cfg, err := e.configs.RepoConfig(ctx, ev.Repository)
	if err != nil {
		return fmt.Errorf("failed to load config for %s: %w", ev.Repository.FullName(), err)
	}
	if !cfg.Configured() {
		logger.Debug("jira not configured for repository")
		return nil
	}

	tracker, err := e.trackers(cfg.Jira)
	if err != nil {
		return fmt.Errorf("failed to create jira client for %s: %w", ev.Repository.FullName(), err)
	}

	r := &run{
		engine:  e,
		ev:      ev,
		ref:     ev.Ref(),
		cfg:     cfg.Jira,
		tracker: tracker,
		mapper:  usermap.New(cfg.Jira.UsernameMap),
		logger:  logger,
	}

	switch ev.Action {
	case types.ActionOpened, types.ActionReopened, types.ActionResync:
		r.reconcile(ctx)
	case types.ActionEdited:
		if !ev.TitleChanged && !ev.BodyChanged {
			logger.Debug("edit did not change title or body")
			return nil
		}
		r.reconcile(ctx)
	case types.ActionAssigned:
		r.assigned(ctx)
	case types.ActionReviewRequested, types.ActionReviewRequestRemoved:
		r.reviewersChanged(ctx)
	default:
		logger.Debug("ignoring unsupported action")
	}
	return nil
}

// run carries the collaborators resolved for a single event
type run struct {
	engine  *Engine
	ev      types.PullRequestEvent
	ref     types.PullRequestRef
	cfg     config.Jira
	tracker Tracker
	mapper  *usermap.Mapper
	logger  *zap.Logger
}

func (r *run) pr() types.PullRequest {
	return r.ev.PullRequest
}

// comment posts a pull request comment, logging failures
func (r *run) comment(ctx context.Context, body string) {
	if err := r.engine.hosting.CreateComment(ctx, r.ref, body); err != nil {
		r.logger.Warn("failed to post pull request comment", zap.Error(err))
	}
}

// issueKey returns the stored association, falling back to the title when the
// pull request has never been reconciled
func (r *run) issueKey(ctx context.Context) string {
	key, ok, err := r.engine.store.Get(ctx, r.ref)
	if err != nil {
		r.logger.Warn("failed to read association", zap.Error(err))
	}
	if ok {
		return key
	}
	return title.Parse(r.pr().Title, r.cfg.ProjectKey).IssueKey
}
