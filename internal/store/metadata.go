package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// IssueBodies reads and writes the body of the issue backing a pull request
type IssueBodies interface {
	IssueBody(ctx context.Context, ref types.PullRequestRef) (string, error)
	SetIssueBody(ctx context.Context, ref types.PullRequestRef, body string) error
}

const metadataKey = "issueKey"

var metadataPattern = regexp.MustCompile(`(?s)\n\n<!-- probot = (.*) -->`)

// MetadataStore keeps associations inside a hidden HTML comment at the end of
// the pull request body, so no database is needed. Values are namespaced so
// other bots sharing the same block are left alone.
type MetadataStore struct {
	bodies    IssueBodies
	namespace string
}

// NewMetadataStore creates a store writing under the given namespace
func NewMetadataStore(bodies IssueBodies, namespace string) *MetadataStore {
	return &MetadataStore{bodies: bodies, namespace: namespace}
}

// Get returns the association of a pull request
func (s *MetadataStore) Get(ctx context.Context, ref types.PullRequestRef) (string, bool, error) {
	body, err := s.bodies.IssueBody(ctx, ref)
	if err != nil {
		return "", false, err
	}

	data, _, err := decodeMetadata(body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read metadata of %s: %w", ref, err)
	}
	key, ok := s.values(data)[metadataKey].(string)
	if !ok {
		return "", false, nil
	}
	return key, true, nil
}

// Set records the association of a pull request
func (s *MetadataStore) Set(ctx context.Context, ref types.PullRequestRef, issueKey string) error {
	body, err := s.bodies.IssueBody(ctx, ref)
	if err != nil {
		return err
	}

	data, text, err := decodeMetadata(body)
	if err != nil {
		return fmt.Errorf("failed to read metadata of %s: %w", ref, err)
	}
	values := s.values(data)
	if current, ok := values[metadataKey]; ok && current == issueKey {
		return nil
	}
	values[metadataKey] = issueKey

	own, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	data[s.namespace] = own
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return s.bodies.SetIssueBody(ctx, ref, text+"\n\n<!-- probot = "+string(encoded)+" -->")
}

// values decodes this store's namespace. Anything other than an object is
// treated as empty and replaced on the next write.
func (s *MetadataStore) values(data map[string]json.RawMessage) map[string]interface{} {
	values := make(map[string]interface{})
	raw, ok := data[s.namespace]
	if !ok {
		return values
	}
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return make(map[string]interface{})
	}
	return values
}

// decodeMetadata splits a body into its metadata block and the visible text.
// Namespaces are kept raw so entries of other bots round-trip whatever their
// shape.
func decodeMetadata(body string) (map[string]json.RawMessage, string, error) {
	data := make(map[string]json.RawMessage)
	body = strings.ReplaceAll(body, "\r\n", "\n")

	loc := metadataPattern.FindStringSubmatchIndex(body)
	if loc == nil {
		return data, body, nil
	}
	if err := json.Unmarshal([]byte(body[loc[2]:loc[3]]), &data); err != nil {
		return nil, "", err
	}
	if data == nil {
		data = make(map[string]json.RawMessage)
	}
	return data, body[:loc[0]] + body[loc[1]:], nil
}
