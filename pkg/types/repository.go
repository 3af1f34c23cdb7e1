package types

import (
	"fmt"
	"strconv"
)

// Repository identifies a GitHub repository
type Repository struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// FullName returns the owner/name form of the repository
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// PullRequestRef identifies a single pull request within a repository
type PullRequestRef struct {
	Repository Repository `json:"repository"`
	Number     int        `json:"number"`
}

// String returns the owner/name#number form of the reference
func (r PullRequestRef) String() string {
	return fmt.Sprintf("%s#%d", r.Repository.FullName(), r.Number)
}

// Key returns a stable identifier usable as a storage or workflow key
func (r PullRequestRef) Key() string {
	return r.Repository.Owner + "-" + r.Repository.Name + "-" + strconv.Itoa(r.Number)
}

// PullRequest contains the observed state of a pull request
type PullRequest struct {
	Number             int      `json:"number"`
	Title              string   `json:"title"`
	Body               string   `json:"body"`
	HTMLURL            string   `json:"html_url"`
	Author             string   `json:"author"`
	Assignees          []string `json:"assignees,omitempty"`
	RequestedReviewers []string `json:"requested_reviewers,omitempty"`
}

// Assignee returns the first assignee login, or empty when unassigned
func (p PullRequest) Assignee() string {
	if len(p.Assignees) == 0 {
		return ""
	}
	return p.Assignees[0]
}
