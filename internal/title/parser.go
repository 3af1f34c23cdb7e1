// Package title extracts Jira issue keys from pull request titles.
package title

import (
	"regexp"
	"strings"
	"sync"
)

// Result is the outcome of parsing a pull request title
type Result struct {
	IssueKey    string
	Description string
}

var patterns sync.Map // project key -> *regexp.Regexp

// Parse extracts the issue key and descriptive text from a title of the form
// "KEY-1: text" or "[KEY-1] - text". The key is matched case-insensitively and
// returned upper-cased. Both fields are empty when the title does not match.
func Parse(title, projectKey string) Result {
	if projectKey == "" {
		return Result{}
	}

	m := pattern(projectKey).FindStringSubmatch(title)
	if m == nil {
		return Result{}
	}

	return Result{
		IssueKey:    strings.ToUpper(m[1]),
		Description: m[2],
	}
}

func pattern(projectKey string) *regexp.Regexp {
	if re, ok := patterns.Load(projectKey); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?is)^\s*\[?\s*(` + regexp.QuoteMeta(projectKey) + `-\d+)\s*\]?\s*[-:]\s*(.*?)\s*$`)
	actual, _ := patterns.LoadOrStore(projectKey, re)
	return actual.(*regexp.Regexp)
}
