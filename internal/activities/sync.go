package activities

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// Reconciler processes a pull request event
type Reconciler interface {
	Handle(ctx context.Context, ev types.PullRequestEvent) error
}

// SyncActivities runs reconciliation inside a Temporal worker
type SyncActivities struct {
	reconciler Reconciler
	logger     *zap.Logger
}

// NewSyncActivities creates a new sync activities handler
func NewSyncActivities(reconciler Reconciler, logger *zap.Logger) *SyncActivities {
	return &SyncActivities{
		reconciler: reconciler,
		logger:     logger,
	}
}

// Reconcile brings the pull request and its Jira issue into agreement
func (a *SyncActivities) Reconcile(ctx context.Context, ev types.PullRequestEvent) (SyncResult, error) {
	info := activity.GetInfo(ctx)
	a.logger.Info("reconciling pull request",
		zap.String("workflow_id", info.WorkflowExecution.ID),
		zap.String("repo", ev.Repository.FullName()),
		zap.Int("pr_number", ev.PullRequest.Number),
		zap.String("action", string(ev.Action)),
	)

	if err := a.reconciler.Handle(ctx, ev); err != nil {
		a.logger.Error("failed to reconcile pull request", zap.Error(err))
		return SyncResult{Handled: false, Message: err.Error()}, err
	}

	return SyncResult{Handled: true, Message: "reconciled " + ev.Ref().String()}, nil
}
