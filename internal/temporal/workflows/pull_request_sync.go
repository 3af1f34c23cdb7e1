package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/murrayju/jira-workflow-gitbot/internal/activities"
)

// PullRequestSyncWorkflow reconciles one pull request event. The activity runs
// at most once; failures are reported through comments, not retries.
func PullRequestSyncWorkflow(ctx workflow.Context, input SyncInput) (activities.SyncResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting pull request sync workflow",
		"repo", input.Event.Repository.FullName(),
		"pr_number", input.Event.PullRequest.Number,
		"action", string(input.Event.Action),
	)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var a *activities.SyncActivities
	var result activities.SyncResult
	if err := workflow.ExecuteActivity(ctx, a.Reconcile, input.Event).Get(ctx, &result); err != nil {
		logger.Error("pull request sync failed", "error", err)
		return result, err
	}

	logger.Info("pull request sync workflow completed", "message", result.Message)
	return result, nil
}
