package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/murrayju/jira-workflow-gitbot/internal/usermap"
)

// Defaults applied to per-repository Jira settings
const (
	DefaultProtocol   = "https"
	DefaultAPIVersion = "latest"
)

// Repo is the per-repository configuration file
type Repo struct {
	Jira Jira `yaml:"jira"`
}

// Jira describes the Jira instance and project a repository is linked to
type Jira struct {
	Host        string      `yaml:"host"`
	Protocol    string      `yaml:"protocol"`
	APIVersion  string      `yaml:"apiVersion"`
	ProjectKey  string      `yaml:"projectKey"`
	Fields      JiraFields  `yaml:"fields"`
	UsernameMap UsernameMap `yaml:"usernameMap"`
}

// JiraFields names custom fields used by the bot
type JiraFields struct {
	Reviewers string `yaml:"reviewers"`
}

// UsernameMap is the ordered GitHub login to Jira username table
type UsernameMap []usermap.Entry

// UnmarshalYAML decodes a mapping node while keeping document order
func (u *UsernameMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("usernameMap: expected a mapping, got line %d", node.Line)
	}
	entries := make(UsernameMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var login, jiraUser string
		if err := node.Content[i].Decode(&login); err != nil {
			return fmt.Errorf("usernameMap key: %w", err)
		}
		if err := node.Content[i+1].Decode(&jiraUser); err != nil {
			return fmt.Errorf("usernameMap value for %s: %w", login, err)
		}
		entries = append(entries, usermap.Entry{GitHub: login, Jira: jiraUser})
	}
	*u = entries
	return nil
}

// ParseRepo parses a repository configuration file and applies defaults
func ParseRepo(data []byte) (Repo, error) {
	var repo Repo
	if err := yaml.Unmarshal(data, &repo); err != nil {
		return Repo{}, fmt.Errorf("failed to parse repository config: %w", err)
	}
	repo.applyDefaults()
	return repo, nil
}

func (r *Repo) applyDefaults() {
	if r.Jira.Protocol == "" {
		r.Jira.Protocol = DefaultProtocol
	}
	if r.Jira.APIVersion == "" {
		r.Jira.APIVersion = DefaultAPIVersion
	}
}

// Configured reports whether the repository is linked to a Jira project
func (r Repo) Configured() bool {
	return r.Jira.Host != "" && r.Jira.ProjectKey != ""
}

// BaseURL returns the Jira root URL with a trailing slash
func (j Jira) BaseURL() string {
	protocol := j.Protocol
	if protocol == "" {
		protocol = DefaultProtocol
	}
	return protocol + "://" + strings.TrimSuffix(j.Host, "/") + "/"
}

// BrowseURL returns the human facing URL of an issue
func (j Jira) BrowseURL(issueKey string) string {
	return j.BaseURL() + "browse/" + issueKey
}
