// Package usermap translates between GitHub logins and Jira usernames.
package usermap

// Entry maps a single GitHub login to a Jira username
type Entry struct {
	GitHub string
	Jira   string
}

// Mapper performs lookups over a configured, ordered table of entries
type Mapper struct {
	entries []Entry
	forward map[string]string
}

// New creates a mapper. When a login appears more than once the first entry wins.
func New(entries []Entry) *Mapper {
	m := &Mapper{
		entries: entries,
		forward: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		if _, exists := m.forward[e.GitHub]; !exists {
			m.forward[e.GitHub] = e.Jira
		}
	}
	return m
}

// Lookup returns the configured Jira username for a login, if any
func (m *Mapper) Lookup(login string) (string, bool) {
	jiraUser, ok := m.forward[login]
	return jiraUser, ok
}

// ToJira returns the Jira username for a login. Unmapped logins are assumed
// to be identical on both sides and are returned unchanged.
func (m *Mapper) ToJira(login string) string {
	if jiraUser, ok := m.Lookup(login); ok {
		return jiraUser
	}
	return login
}

// ToGitHub returns the login of the first entry mapped to the Jira username.
// There is no fallback: an unmapped Jira user has no GitHub login.
func (m *Mapper) ToGitHub(jiraUser string) (string, bool) {
	for _, e := range m.entries {
		if e.Jira == jiraUser {
			return e.GitHub, true
		}
	}
	return "", false
}
