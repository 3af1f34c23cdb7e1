package types

// Action is a pull request lifecycle action the bot reacts to
type Action string

const (
	ActionOpened               Action = "opened"
	ActionReopened             Action = "reopened"
	ActionEdited               Action = "edited"
	ActionAssigned             Action = "assigned"
	ActionReviewRequested      Action = "review_requested"
	ActionReviewRequestRemoved Action = "review_request_removed"
	// ActionResync is raised by the REST API, never by GitHub.
	ActionResync Action = "resync"
)

// Supported reports whether the action is one the reconciliation engine handles
func (a Action) Supported() bool {
	switch a {
	case ActionOpened, ActionReopened, ActionEdited, ActionAssigned,
		ActionReviewRequested, ActionReviewRequestRemoved, ActionResync:
		return true
	}
	return false
}

// PullRequestEvent is a translated pull request webhook delivery
type PullRequestEvent struct {
	DeliveryID   string      `json:"delivery_id"`
	Action       Action      `json:"action"`
	Repository   Repository  `json:"repository"`
	PullRequest  PullRequest `json:"pull_request"`
	TitleChanged bool        `json:"title_changed"`
	BodyChanged  bool        `json:"body_changed"`
	// Assignee is the login that was just assigned on assigned events
	Assignee string `json:"assignee,omitempty"`
}

// Ref returns the reference of the pull request the event is about
func (e PullRequestEvent) Ref() PullRequestRef {
	return PullRequestRef{Repository: e.Repository, Number: e.PullRequest.Number}
}
