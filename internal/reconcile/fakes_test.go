package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	gojira "github.com/andygrunwald/go-jira"

	"github.com/murrayju/jira-workflow-gitbot/internal/config"
	"github.com/murrayju/jira-workflow-gitbot/internal/jira"
	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

type fakeConfigs struct {
	repo config.Repo
	err  error
}

func (f *fakeConfigs) RepoConfig(context.Context, types.Repository) (config.Repo, error) {
	return f.repo, f.err
}

type fakeHosting struct {
	mu         sync.Mutex
	comments   []string
	assignees  [][]string
	reviewers  [][]string
	requested  []string
	failReview bool
}

func (f *fakeHosting) CreateComment(_ context.Context, _ types.PullRequestRef, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, body)
	return nil
}

func (f *fakeHosting) AddAssignees(_ context.Context, _ types.PullRequestRef, logins []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignees = append(f.assignees, logins)
	return nil
}

func (f *fakeHosting) RequestReviewers(_ context.Context, _ types.PullRequestRef, logins []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReview {
		return fmt.Errorf("request reviewers failed")
	}
	f.reviewers = append(f.reviewers, logins)
	return nil
}

func (f *fakeHosting) RequestedReviewers(context.Context, types.PullRequestRef) ([]string, error) {
	return f.requested, nil
}

func (f *fakeHosting) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.comments) + len(f.assignees) + len(f.reviewers)
}

type fieldUpdate struct {
	key   string
	field string
	names []string
}

// fakeTracker is an in-memory Jira keyed by issue key
type fakeTracker struct {
	mu sync.Mutex

	issues map[string]*jira.IssueDetail
	links  map[string][]gojira.RemoteLink
	users  map[string]gojira.User
	search []gojira.User

	getErr      error
	commentErr  error
	assigneeErr error

	created      []string
	deleted      []string
	added        []string
	updated      []string
	assigned     []string
	fieldUpdates []fieldUpdate
	nextID       int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		issues: make(map[string]*jira.IssueDetail),
		links:  make(map[string][]gojira.RemoteLink),
		users:  make(map[string]gojira.User),
	}
}

func notFound(route string) error {
	return &jira.RequestError{Method: http.MethodGet, Route: route, StatusCode: http.StatusNotFound}
}

func (f *fakeTracker) GetIssue(_ context.Context, key, _ string) (*jira.IssueDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	issue, ok := f.issues[key]
	if !ok {
		return nil, notFound("issue/" + key)
	}
	copied := *issue
	copied.Comments = append([]gojira.Comment(nil), issue.Comments...)
	copied.Reviewers = append([]gojira.User(nil), issue.Reviewers...)
	return &copied, nil
}

func (f *fakeTracker) RemoteLinks(_ context.Context, key string) ([]gojira.RemoteLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gojira.RemoteLink(nil), f.links[key]...), nil
}

func (f *fakeTracker) CreateRemoteLink(_ context.Context, key, url, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.links[key] = append(f.links[key], gojira.RemoteLink{
		ID:     f.nextID,
		Self:   fmt.Sprintf("https://jira.example.com/rest/api/2/issue/%s/remotelink/%d", key, f.nextID),
		Object: &gojira.RemoteLinkObject{URL: url, Title: title},
	})
	f.created = append(f.created, key+" "+title)
	return nil
}

func (f *fakeTracker) DeleteRemoteLink(_ context.Context, self string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, self)
	for key, links := range f.links {
		kept := links[:0]
		for _, link := range links {
			if link.Self != self {
				kept = append(kept, link)
			}
		}
		f.links[key] = kept
	}
	return nil
}

func (f *fakeTracker) AddComment(_ context.Context, key, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return f.commentErr
	}
	f.nextID++
	if issue, ok := f.issues[key]; ok {
		issue.Comments = append(issue.Comments, gojira.Comment{
			ID:     fmt.Sprint(f.nextID),
			Body:   body,
			Author: gojira.User{Name: "bot"},
		})
	}
	f.added = append(f.added, body)
	return nil
}

func (f *fakeTracker) UpdateComment(_ context.Context, key, id, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return f.commentErr
	}
	if issue, ok := f.issues[key]; ok {
		for i := range issue.Comments {
			if issue.Comments[i].ID == id {
				issue.Comments[i].Body = body
			}
		}
	}
	f.updated = append(f.updated, id)
	return nil
}

func (f *fakeTracker) GetUser(_ context.Context, username string) (*gojira.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[username]
	if !ok {
		return nil, notFound("user")
	}
	return &user, nil
}

func (f *fakeTracker) SearchUsers(context.Context, string) ([]gojira.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.search, nil
}

func (f *fakeTracker) SetAssignee(_ context.Context, key string, user gojira.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assigneeErr != nil {
		return f.assigneeErr
	}
	if issue, ok := f.issues[key]; ok {
		u := user
		issue.Assignee = &u
	}
	f.assigned = append(f.assigned, key+" "+jira.Identity(user))
	return nil
}

func (f *fakeTracker) SetUserField(_ context.Context, key, field string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fieldUpdates = append(f.fieldUpdates, fieldUpdate{key: key, field: field, names: names})
	if issue, ok := f.issues[key]; ok {
		issue.Reviewers = issue.Reviewers[:0]
		for _, name := range names {
			issue.Reviewers = append(issue.Reviewers, gojira.User{Name: name})
		}
	}
	return nil
}

func (f *fakeTracker) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created) + len(f.deleted) + len(f.added) + len(f.updated) + len(f.assigned) + len(f.fieldUpdates)
}
