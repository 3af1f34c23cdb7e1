package temporal

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/internal/temporal/workflows"
	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// Client wraps Temporal client functionality
type Client struct {
	temporalClient client.Client
	logger         *zap.Logger
	taskQueue      string
}

// NewClient creates a new Temporal client
func NewClient(address, namespace, taskQueue string, logger *zap.Logger) (*Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  address,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}

	return newClient(c, taskQueue, logger), nil
}

func newClient(c client.Client, taskQueue string, logger *zap.Logger) *Client {
	return &Client{
		temporalClient: c,
		logger:         logger,
		taskQueue:      taskQueue,
	}
}

// WorkflowID returns the workflow ID used for an event. One workflow runs per
// delivery; Dispatch rejects the ID once used, so a redelivery never starts a
// second execution even after the first one closed.
func WorkflowID(ev types.PullRequestEvent) string {
	return fmt.Sprintf("pr-sync-%s-%s", ev.Ref().Key(), ev.DeliveryID)
}

// Dispatch starts a pull request sync workflow for the event
func (c *Client) Dispatch(ctx context.Context, ev types.PullRequestEvent) error {
	workflowOptions := client.StartWorkflowOptions{
		ID:                    WorkflowID(ev),
		TaskQueue:             c.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	we, err := c.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.PullRequestSyncWorkflow, workflows.SyncInput{Event: ev})
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		c.logger.Info("duplicate delivery ignored",
			zap.String("workflow_id", workflowOptions.ID),
			zap.String("pull_request", ev.Ref().String()),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to start workflow: %w", err)
	}

	c.logger.Info("started workflow",
		zap.String("workflow_id", we.GetID()),
		zap.String("run_id", we.GetRunID()),
		zap.String("pull_request", ev.Ref().String()),
	)
	return nil
}

// Close closes the Temporal client
func (c *Client) Close() {
	c.temporalClient.Close()
}
