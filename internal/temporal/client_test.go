package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.uber.org/zap/zaptest"

	"github.com/murrayju/jira-workflow-gitbot/internal/temporal/workflows"
	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

func testEvent() types.PullRequestEvent {
	return types.PullRequestEvent{
		DeliveryID:  "abc",
		Action:      types.ActionOpened,
		Repository:  types.Repository{Owner: "octo", Name: "repo"},
		PullRequest: types.PullRequest{Number: 7},
	}
}

func TestWorkflowID(t *testing.T) {
	assert.Equal(t, "pr-sync-octo-repo-7-abc", WorkflowID(testEvent()))
}

func TestDispatch(t *testing.T) {
	ev := testEvent()
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("pr-sync-octo-repo-7-abc")
	run.On("GetRunID").Return("run-1")

	tc := &mocks.Client{}
	tc.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
			return opts.ID == "pr-sync-octo-repo-7-abc" &&
				opts.TaskQueue == "pr-sync-queue" &&
				opts.WorkflowIDReusePolicy == enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE
		}),
		mock.Anything,
		workflows.SyncInput{Event: ev},
	).Return(run, nil)

	c := newClient(tc, "pr-sync-queue", zaptest.NewLogger(t))
	require.NoError(t, c.Dispatch(context.Background(), ev))
	tc.AssertExpectations(t)
}

func TestDispatch_Error(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("unavailable"))

	c := newClient(tc, "pr-sync-queue", zaptest.NewLogger(t))
	assert.Error(t, c.Dispatch(context.Background(), testEvent()))
}

func TestDispatch_Redelivery(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &serviceerror.WorkflowExecutionAlreadyStarted{Message: "workflow execution already started"})

	c := newClient(tc, "pr-sync-queue", zaptest.NewLogger(t))
	assert.NoError(t, c.Dispatch(context.Background(), testEvent()))
	tc.AssertExpectations(t)
}
