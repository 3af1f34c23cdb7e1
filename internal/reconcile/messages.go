package reconcile

import "fmt"

// syncCommentPrefix marks the tracker comment that mirrors the PR description
const syncCommentPrefix = "Linked to GitHub PR"

func linkedMessage(key, browseURL string) string {
	return fmt.Sprintf("Linked to Jira issue [%s](%s)", key, browseURL)
}

func notFoundMessage(key string) string {
	return fmt.Sprintf("Jira issue %s could not be found.", key)
}

func missingKeyMessage(projectKey string) string {
	return fmt.Sprintf("No Jira issue key found in the PR title. Please prefix the title with `%s-0:` (replacing 0 with the issue number) to link one.", projectKey)
}

func linkFailedMessage(key, browseURL string) string {
	return fmt.Sprintf("Failed to link this PR to [%s](%s). Please add the link manually.", key, browseURL)
}

func descriptionFailedMessage(key, browseURL string) string {
	return fmt.Sprintf("Failed to sync the PR description to [%s](%s). Please update it manually.", key, browseURL)
}

func assignedMessage(key, browseURL, displayName string) string {
	return fmt.Sprintf("Assigned [%s](%s) to %s.", key, browseURL, displayName)
}

func ambiguousAssigneeMessage(login, key, browseURL string) string {
	return fmt.Sprintf("Could not match `%s` to a single Jira user. Please update the assignee of [%s](%s) manually.", login, key, browseURL)
}

func assigneeFailedMessage(key, browseURL string) string {
	return fmt.Sprintf("Failed to update the assignee of [%s](%s). Please update it manually.", key, browseURL)
}

func syncCommentHeader(number int, description, url string) string {
	return fmt.Sprintf("%s [#%d - %s|%s]\n----\n", syncCommentPrefix, number, description, url)
}
