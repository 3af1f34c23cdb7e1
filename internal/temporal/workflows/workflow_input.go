package workflows

import (
	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// SyncInput is the input for the pull request sync workflow
type SyncInput struct {
	Event types.PullRequestEvent
}
