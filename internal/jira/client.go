package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	jira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"
)

// maxErrorBody caps how much of a failed response body is kept in errors
const maxErrorBody = 4096

// Client wraps Jira API client functionality
type Client struct {
	client     *jira.Client
	logger     *zap.Logger
	apiVersion string
}

// NewClient creates a new Jira client authenticated as the given service account
func NewClient(baseURL, apiVersion, username, password string, logger *zap.Logger) (*Client, error) {
	tp := jira.BasicAuthTransport{
		Username: username,
		Password: password,
	}

	client, err := jira.NewClient(tp.Client(), baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return &Client{
		client:     client,
		logger:     logger,
		apiVersion: apiVersion,
	}, nil
}

// RequestError is returned for any non-2xx Jira response
type RequestError struct {
	Method     string
	Route      string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("jira %s %s failed with status %d: %s", e.Method, e.Route, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a Jira 404 response
func IsNotFound(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound
}

// Fetch performs a JSON request against the Jira REST API. Relative routes are
// resolved under rest/api/{version}/, absolute URLs are used as is. When v is
// non-nil the response is decoded into it; 204 responses leave v untouched.
func (c *Client) Fetch(ctx context.Context, method, route string, body, v interface{}) error {
	target := route
	if !isAbsolute(route) {
		target = "rest/api/" + c.apiVersion + "/" + strings.TrimPrefix(route, "/")
	}

	req, err := c.client.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build jira request %s %s: %w", method, route, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp == nil || resp.Response == nil {
			return fmt.Errorf("failed to call jira %s %s: %w", method, route, err)
		}
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RequestError{
			Method:     method,
			Route:      route,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(text)),
		}
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode jira response for %s %s: %w", method, route, err)
	}
	return nil
}

func isAbsolute(route string) bool {
	u, err := url.Parse(route)
	return err == nil && u.IsAbs()
}

// IssueDetail is a snapshot of the issue fields the bot reconciles
type IssueDetail struct {
	Key       string
	Assignee  *jira.User
	Reviewers []jira.User
	Comments  []jira.Comment
}

// GetIssue retrieves the assignee, comments and, when reviewerField is set,
// the reviewers custom field of an issue
func (c *Client) GetIssue(ctx context.Context, issueKey, reviewerField string) (*IssueDetail, error) {
	fields := []string{"assignee", "comment"}
	if reviewerField != "" {
		fields = append(fields, reviewerField)
	}
	query := url.Values{"fields": {strings.Join(fields, ",")}}
	route := "issue/" + url.PathEscape(issueKey) + "?" + query.Encode()

	var issue jira.Issue
	if err := c.Fetch(ctx, http.MethodGet, route, nil, &issue); err != nil {
		return nil, err
	}

	detail := &IssueDetail{Key: issue.Key}
	if detail.Key == "" {
		detail.Key = issueKey
	}
	if issue.Fields == nil {
		return detail, nil
	}

	detail.Assignee = issue.Fields.Assignee
	if issue.Fields.Comments != nil {
		for _, comment := range issue.Fields.Comments.Comments {
			if comment != nil {
				detail.Comments = append(detail.Comments, *comment)
			}
		}
	}
	if reviewerField != "" {
		reviewers, err := decodeUsers(issue.Fields.Unknowns[reviewerField])
		if err != nil {
			c.logger.Warn("failed to decode reviewer field",
				zap.String("issue_key", issueKey),
				zap.String("field", reviewerField),
				zap.Error(err),
			)
		}
		detail.Reviewers = reviewers
	}

	return detail, nil
}

// decodeUsers converts a user picker field value (single, multi or plain
// usernames) into users
func decodeUsers(value interface{}) ([]jira.User, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var many []jira.User
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one jira.User
	if err := json.Unmarshal(raw, &one); err == nil {
		return []jira.User{one}, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		users := make([]jira.User, 0, len(names))
		for _, name := range names {
			users = append(users, jira.User{Name: name})
		}
		return users, nil
	}
	return nil, fmt.Errorf("unsupported user field value %s", string(raw))
}

// RemoteLinks lists the remote links of an issue
func (c *Client) RemoteLinks(ctx context.Context, issueKey string) ([]jira.RemoteLink, error) {
	var links []jira.RemoteLink
	if err := c.Fetch(ctx, http.MethodGet, "issue/"+url.PathEscape(issueKey)+"/remotelink", nil, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// CreateRemoteLink adds a remote link pointing at targetURL to an issue
func (c *Client) CreateRemoteLink(ctx context.Context, issueKey, targetURL, title string) error {
	link := &jira.RemoteLink{
		Object: &jira.RemoteLinkObject{
			URL:   targetURL,
			Title: title,
		},
	}
	if err := c.Fetch(ctx, http.MethodPost, "issue/"+url.PathEscape(issueKey)+"/remotelink", link, nil); err != nil {
		return err
	}

	c.logger.Info("created remote link",
		zap.String("issue_key", issueKey),
		zap.String("url", targetURL),
	)
	return nil
}

// DeleteRemoteLink deletes a remote link by its self URL
func (c *Client) DeleteRemoteLink(ctx context.Context, self string) error {
	return c.Fetch(ctx, http.MethodDelete, self, nil, nil)
}

type commentRequest struct {
	Body string `json:"body"`
}

// AddComment adds a comment to an issue
func (c *Client) AddComment(ctx context.Context, issueKey, body string) error {
	comment := commentRequest{Body: body}
	return c.Fetch(ctx, http.MethodPost, "issue/"+url.PathEscape(issueKey)+"/comment", comment, nil)
}

// UpdateComment replaces the body of an existing comment
func (c *Client) UpdateComment(ctx context.Context, issueKey, commentID, body string) error {
	comment := commentRequest{Body: body}
	route := "issue/" + url.PathEscape(issueKey) + "/comment/" + url.PathEscape(commentID)
	return c.Fetch(ctx, http.MethodPut, route, comment, nil)
}

// GetUser looks up a user by exact username
func (c *Client) GetUser(ctx context.Context, username string) (*jira.User, error) {
	var user jira.User
	query := url.Values{"username": {username}}
	if err := c.Fetch(ctx, http.MethodGet, "user?"+query.Encode(), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers finds users matching a free-text query
func (c *Client) SearchUsers(ctx context.Context, q string) ([]jira.User, error) {
	var users []jira.User
	query := url.Values{"username": {q}, "query": {q}}
	if err := c.Fetch(ctx, http.MethodGet, "user/search?"+query.Encode(), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

type assigneeRequest struct {
	Name      string `json:"name,omitempty"`
	AccountID string `json:"accountId,omitempty"`
}

// SetAssignee assigns an issue to a user
func (c *Client) SetAssignee(ctx context.Context, issueKey string, user jira.User) error {
	body := assigneeRequest{Name: user.Name, AccountID: user.AccountID}
	if err := c.Fetch(ctx, http.MethodPut, "issue/"+url.PathEscape(issueKey)+"/assignee", body, nil); err != nil {
		return err
	}

	c.logger.Info("updated assignee",
		zap.String("issue_key", issueKey),
		zap.String("assignee", Identity(user)),
	)
	return nil
}

type userRef struct {
	Name string `json:"name"`
}

// SetUserField replaces the value of a multi user picker field
func (c *Client) SetUserField(ctx context.Context, issueKey, field string, usernames []string) error {
	refs := make([]userRef, 0, len(usernames))
	for _, name := range usernames {
		refs = append(refs, userRef{Name: name})
	}
	body := map[string]interface{}{
		"fields": map[string]interface{}{field: refs},
	}
	return c.Fetch(ctx, http.MethodPut, "issue/"+url.PathEscape(issueKey), body, nil)
}

// Identity returns the username that identifies a Jira user
func Identity(user jira.User) string {
	switch {
	case user.Name != "":
		return user.Name
	case user.Key != "":
		return user.Key
	default:
		return user.AccountID
	}
}
