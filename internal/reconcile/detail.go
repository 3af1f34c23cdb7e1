package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gojira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/internal/jira"
	"github.com/murrayju/jira-workflow-gitbot/internal/markup"
	"github.com/murrayju/jira-workflow-gitbot/internal/title"
)

// syncDetail mirrors the description, assignee and reviewers. Each action is
// independent of the others' failures.
func (r *run) syncDetail(ctx context.Context, detail *jira.IssueDetail, parsed title.Result) {
	r.syncComment(ctx, detail, parsed)
	r.syncAssignee(ctx, detail)
	if r.cfg.Fields.Reviewers != "" {
		r.syncReviewers(ctx, detail)
	}
}

// syncComment upserts the service account's description comment
func (r *run) syncComment(ctx context.Context, detail *jira.IssueDetail, parsed title.Result) {
	pr := r.pr()
	body := syncCommentHeader(pr.Number, parsed.Description, pr.HTMLURL) +
		markup.ToWikiMarkup(stripHTMLComments(pr.Body))

	existing := r.findSyncComment(detail.Comments)
	var err error
	switch {
	case existing == nil:
		err = r.tracker.AddComment(ctx, detail.Key, body)
	case existing.Body == body:
		r.logger.Debug("description comment up to date", zap.String("issue_key", detail.Key))
		return
	default:
		err = r.tracker.UpdateComment(ctx, detail.Key, existing.ID, body)
	}
	if err != nil {
		r.logger.Error("failed to sync description comment", zap.String("issue_key", detail.Key), zap.Error(err))
		r.comment(ctx, descriptionFailedMessage(detail.Key, r.cfg.BrowseURL(detail.Key)))
	}
}

func (r *run) findSyncComment(comments []gojira.Comment) *gojira.Comment {
	account := r.engine.username
	if account == "" {
		return nil
	}
	for i := range comments {
		c := &comments[i]
		if !authoredBy(c.Author, account) {
			continue
		}
		if strings.HasPrefix(c.Body, syncCommentPrefix) {
			return c
		}
	}
	return nil
}

// authoredBy reports whether account names the user. Server deployments
// authenticate with a username or key; Cloud with an email address or
// account ID.
func authoredBy(user gojira.User, account string) bool {
	switch account {
	case user.Name, user.Key, user.EmailAddress, user.AccountID:
		return true
	}
	return false
}

// stripHTMLComments drops lines opening an HTML comment, which carry PR
// templates and hidden metadata
func stripHTMLComments(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "<!--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// syncAssignee fills whichever side is missing an assignee
func (r *run) syncAssignee(ctx context.Context, detail *jira.IssueDetail) {
	prAssignee := r.pr().Assignee()
	switch {
	case prAssignee == "" && detail.Assignee != nil:
		jiraUser := jira.Identity(*detail.Assignee)
		login, ok := r.mapper.ToGitHub(jiraUser)
		if !ok {
			r.logger.Debug("issue assignee has no github mapping", zap.String("jira_user", jiraUser))
			return
		}
		if err := r.engine.hosting.AddAssignees(ctx, r.ref, []string{login}); err != nil {
			r.logger.Error("failed to assign pull request", zap.String("login", login), zap.Error(err))
		}
	case prAssignee != "" && detail.Assignee == nil:
		r.assign(ctx, detail.Key, prAssignee)
	}
}

// assigned handles an assignment on the pull request
func (r *run) assigned(ctx context.Context) {
	login := r.ev.Assignee
	if login == "" {
		login = r.pr().Assignee()
	}
	key := r.issueKey(ctx)
	if key == "" || login == "" {
		r.logger.Debug("no linked issue or assignee", zap.String("issue_key", key), zap.String("login", login))
		return
	}
	r.assign(ctx, key, login)
}

// assign pushes a GitHub login to the issue assignee
func (r *run) assign(ctx context.Context, issueKey, login string) {
	browseURL := r.cfg.BrowseURL(issueKey)

	user, err := r.resolveUser(ctx, login)
	if errors.Is(err, ErrAmbiguousUser) {
		r.logger.Warn("could not resolve assignee", zap.String("login", login), zap.Error(err))
		r.comment(ctx, ambiguousAssigneeMessage(login, issueKey, browseURL))
		return
	}
	if err != nil {
		r.logger.Error("failed to look up assignee", zap.String("login", login), zap.Error(err))
		r.comment(ctx, assigneeFailedMessage(issueKey, browseURL))
		return
	}

	if err := r.tracker.SetAssignee(ctx, issueKey, user); err != nil {
		r.logger.Error("failed to set issue assignee", zap.String("issue_key", issueKey), zap.Error(err))
		r.comment(ctx, assigneeFailedMessage(issueKey, browseURL))
		return
	}

	name := user.DisplayName
	if name == "" {
		name = jira.Identity(user)
	}
	r.comment(ctx, assignedMessage(issueKey, browseURL, name))
}

// resolveUser finds the Jira user for a login by exact username, then by
// search. A search must yield exactly one user.
func (r *run) resolveUser(ctx context.Context, login string) (gojira.User, error) {
	username := r.mapper.ToJira(login)

	user, err := r.tracker.GetUser(ctx, username)
	if err == nil {
		return *user, nil
	}
	if !jira.IsNotFound(err) {
		return gojira.User{}, err
	}

	users, err := r.tracker.SearchUsers(ctx, username)
	if err != nil {
		return gojira.User{}, err
	}
	if len(users) != 1 {
		return gojira.User{}, fmt.Errorf("%w: %d matches for %s", ErrAmbiguousUser, len(users), username)
	}
	return users[0], nil
}

// syncReviewers merges reviewers across both sides without removing any
func (r *run) syncReviewers(ctx context.Context, detail *jira.IssueDetail) {
	pr := r.pr()

	requested := make(map[string]bool, len(pr.RequestedReviewers))
	for _, login := range pr.RequestedReviewers {
		requested[login] = true
	}
	var toAddToPr []string
	for _, u := range detail.Reviewers {
		login, ok := r.mapper.ToGitHub(jira.Identity(u))
		if !ok || login == pr.Author || requested[login] {
			continue
		}
		requested[login] = true
		toAddToPr = append(toAddToPr, login)
	}

	present := make(map[string]bool, len(detail.Reviewers))
	names := make([]string, 0, len(detail.Reviewers))
	for _, u := range detail.Reviewers {
		name := jira.Identity(u)
		if !present[name] {
			present[name] = true
			names = append(names, name)
		}
	}
	var toAddToJira []string
	for _, login := range pr.RequestedReviewers {
		name, ok := r.mapper.Lookup(login)
		if !ok || present[name] {
			continue
		}
		present[name] = true
		toAddToJira = append(toAddToJira, name)
	}

	if len(toAddToPr) > 0 {
		if err := r.engine.hosting.RequestReviewers(ctx, r.ref, toAddToPr); err != nil {
			r.logger.Error("failed to request reviewers", zap.Strings("reviewers", toAddToPr), zap.Error(err))
		}
	}
	if len(toAddToJira) > 0 {
		field := r.cfg.Fields.Reviewers
		if err := r.tracker.SetUserField(ctx, detail.Key, field, append(names, toAddToJira...)); err != nil {
			r.logger.Error("failed to update reviewer field", zap.String("issue_key", detail.Key), zap.Error(err))
		}
	}
}

// reviewersChanged replaces the reviewer field with the mapped set of
// currently requested reviewers
func (r *run) reviewersChanged(ctx context.Context) {
	field := r.cfg.Fields.Reviewers
	if field == "" {
		return
	}
	key := r.issueKey(ctx)
	if key == "" {
		r.logger.Debug("no linked issue for reviewer change")
		return
	}

	logins, err := r.engine.hosting.RequestedReviewers(ctx, r.ref)
	if err != nil {
		r.logger.Warn("failed to read requested reviewers", zap.Error(err))
		return
	}

	seen := make(map[string]bool, len(logins))
	names := make([]string, 0, len(logins))
	for _, login := range logins {
		name, ok := r.mapper.Lookup(login)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	if err := r.tracker.SetUserField(ctx, key, field, names); err != nil {
		r.logger.Error("failed to replace reviewer field", zap.String("issue_key", key), zap.Error(err))
	}
}
