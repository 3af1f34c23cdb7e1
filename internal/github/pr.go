package github

import (
	"github.com/google/go-github/v57/github"

	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// PullRequestFromAPI converts a GitHub pull request into its observed state
func PullRequestFromAPI(pr *github.PullRequest) types.PullRequest {
	return types.PullRequest{
		Number:             pr.GetNumber(),
		Title:              pr.GetTitle(),
		Body:               pr.GetBody(),
		HTMLURL:            pr.GetHTMLURL(),
		Author:             pr.GetUser().GetLogin(),
		Assignees:          logins(pr.Assignees),
		RequestedReviewers: logins(pr.RequestedReviewers),
	}
}

// RepositoryFromAPI converts a GitHub repository into its identifier
func RepositoryFromAPI(repo *github.Repository) types.Repository {
	return types.Repository{
		Owner: repo.GetOwner().GetLogin(),
		Name:  repo.GetName(),
	}
}

func logins(users []*github.User) []string {
	if len(users) == 0 {
		return nil
	}
	out := make([]string, 0, len(users))
	for _, u := range users {
		if login := u.GetLogin(); login != "" {
			out = append(out, login)
		}
	}
	return out
}
