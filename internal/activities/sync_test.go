package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap/zaptest"

	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

type stubReconciler struct {
	got []types.PullRequestEvent
	err error
}

func (s *stubReconciler) Handle(_ context.Context, ev types.PullRequestEvent) error {
	s.got = append(s.got, ev)
	return s.err
}

func TestReconcile(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	stub := &stubReconciler{}
	a := NewSyncActivities(stub, zaptest.NewLogger(t))
	env.RegisterActivity(a)

	ev := types.PullRequestEvent{
		Action:      types.ActionEdited,
		Repository:  types.Repository{Owner: "octo", Name: "repo"},
		PullRequest: types.PullRequest{Number: 3},
	}
	val, err := env.ExecuteActivity(a.Reconcile, ev)
	require.NoError(t, err)

	var result SyncResult
	require.NoError(t, val.Get(&result))
	assert.True(t, result.Handled)
	require.Len(t, stub.got, 1)
	assert.Equal(t, ev, stub.got[0])
}

func TestReconcile_Error(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	a := NewSyncActivities(&stubReconciler{err: errors.New("boom")}, zaptest.NewLogger(t))
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.Reconcile, types.PullRequestEvent{})
	assert.Error(t, err)
}
