// Package markup converts GitHub flavored markdown into Jira wiki markup.
//
// The conversion is a fixed, ordered list of text stages. Fenced code blocks
// are lifted out first and replaced by opaque placeholders so no later stage
// can rewrite their content, then restored just before table handling.
package markup

import (
	"regexp"
	"strconv"
	"strings"
)

// stage rewrites the document. Stages may record code blocks in the
// conversion's side table.
type stage func(c *conversion, s string) string

type conversion struct {
	blocks []string
}

// stages run in this exact order; later stages rely on the output of earlier ones.
var stages = []stage{
	extractCodeBlocks,
	setextHeadings,
	atxHeadings,
	emphasis,
	bulletLists,
	inlineTags,
	strikethrough,
	inlineCode,
	links,
	restoreCodeBlocks,
	tables,
}

// ToWikiMarkup converts markdown text to Jira wiki markup
func ToWikiMarkup(markdown string) string {
	c := &conversion{}
	out := strings.ReplaceAll(markdown, "\r\n", "\n")
	for _, st := range stages {
		out = st(c, out)
	}
	return out
}

const placeholderMark = "\x00"

var (
	fencePattern       = regexp.MustCompile("(?s)`{3,}(\\w+)?(.+?)`{3,}")
	placeholderPattern = regexp.MustCompile(`\x00CODEBLOCK(\d+)\x00`)
)

func extractCodeBlocks(c *conversion, s string) string {
	return fencePattern.ReplaceAllStringFunc(s, func(match string) string {
		m := fencePattern.FindStringSubmatch(match)
		open := "{code}"
		if m[1] != "" {
			open = "{code:" + m[1] + "}"
		}
		c.blocks = append(c.blocks, open+m[2]+"{code}")
		return placeholderMark + "CODEBLOCK" + strconv.Itoa(len(c.blocks)-1) + placeholderMark
	})
}

func restoreCodeBlocks(c *conversion, s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := placeholderPattern.FindStringSubmatch(match)
		i, err := strconv.Atoi(m[1])
		if err != nil || i >= len(c.blocks) {
			return match
		}
		return c.blocks[i]
	})
}

var setextPattern = regexp.MustCompile(`(?m)^([^\n]*\S[^\n]*)\n([=-]+)[ \t]*$`)

func setextHeadings(_ *conversion, s string) string {
	return setextPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := setextPattern.FindStringSubmatch(match)
		// a code block placeholder is never heading text
		if strings.Contains(m[1], placeholderMark) {
			return match
		}
		level := "2"
		if m[2][0] == '=' {
			level = "1"
		}
		return "h" + level + "." + strings.TrimSpace(m[1])
	})
}

var atxPattern = regexp.MustCompile(`(?m)^(#+)[ \t]*(.*?)[ \t]*$`)

func atxHeadings(_ *conversion, s string) string {
	return atxPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := atxPattern.FindStringSubmatch(match)
		return "h" + strconv.Itoa(len(m[1])) + "." + m[2]
	})
}

// emphasis rewrites a run of '*' or '_' that wraps non-blank content and is
// closed by the identical run on the same line. Single character wrappers
// become italics, longer ones bold. Unclosed runs are left untouched. The
// scan mirrors a leftmost, longest-wrapper-first, shortest-content match.
func emphasis(_ *conversion, s string) string {
	var b strings.Builder
	b.Grow(len(s))

	i := 0
	for i < len(s) {
		if !isEmphasisChar(s[i]) {
			b.WriteByte(s[i])
			i++
			continue
		}
		end, replacement, ok := matchEmphasis(s, i)
		if !ok {
			b.WriteByte(s[i])
			i++
			continue
		}
		b.WriteString(replacement)
		i = end
	}
	return b.String()
}

func matchEmphasis(s string, start int) (end int, replacement string, ok bool) {
	run := start
	for run < len(s) && isEmphasisChar(s[run]) {
		run++
	}

	lineEnd := strings.IndexByte(s[start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(s)
	} else {
		lineEnd += start
	}

	for width := run - start; width > 0; width-- {
		wrapper := s[start : start+width]
		contentStart := start + width
		if contentStart >= lineEnd || isSpace(s[contentStart]) {
			continue
		}
		closeAt := strings.Index(s[contentStart+1:lineEnd], wrapper)
		if closeAt < 0 {
			continue
		}
		contentEnd := contentStart + 1 + closeAt
		content := s[contentStart:contentEnd]
		marker := "_"
		if width > 1 {
			marker = "*"
		}
		return contentEnd + width, marker + content + marker, true
	}
	return 0, "", false
}

func isEmphasisChar(c byte) bool {
	return c == '*' || c == '_'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

var bulletPattern = regexp.MustCompile(`(?m)^([ \t]*)- +`)

// bulletLists maps indentation to list depth, four columns per level.
func bulletLists(_ *conversion, s string) string {
	return bulletPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := bulletPattern.FindStringSubmatch(match)
		width := 0
		for _, r := range m[1] {
			if r == '\t' {
				width += 4
			} else {
				width++
			}
		}
		return strings.Repeat("*", width/4+1) + " "
	})
}

// tagMarkers maps inline HTML tags to their wiki markers.
var tagMarkers = []struct {
	tag    string
	marker string
}{
	{"cite", "??"},
	{"del", "-"},
	{"ins", "+"},
	{"sup", "^"},
	{"sub", "~"},
}

var tagPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(tagMarkers))
	for i, tm := range tagMarkers {
		patterns[i] = regexp.MustCompile(`<` + tm.tag + `>(.*?)</` + tm.tag + `>`)
	}
	return patterns
}()

func inlineTags(_ *conversion, s string) string {
	for i, re := range tagPatterns {
		marker := tagMarkers[i].marker
		s = re.ReplaceAllString(s, marker+"${1}"+marker)
	}
	return s
}

var strikePattern = regexp.MustCompile(`~~(.*?)~~`)

func strikethrough(_ *conversion, s string) string {
	return strikePattern.ReplaceAllString(s, "-${1}-")
}

var inlineCodePattern = regexp.MustCompile("`([^`\n]+)`")

func inlineCode(_ *conversion, s string) string {
	return inlineCodePattern.ReplaceAllString(s, "{{${1}}}")
}

var (
	namedLinkPattern = regexp.MustCompile(`\[([^\]\n]+)\]\(([^)\s]+)\)`)
	autoLinkPattern  = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9+.\-]*:[^>\s]+)>`)
)

func links(_ *conversion, s string) string {
	s = namedLinkPattern.ReplaceAllString(s, "[${1}|${2}]")
	return autoLinkPattern.ReplaceAllString(s, "[${1}]")
}

var separatorCell = regexp.MustCompile(`^\s*:?-{3,}:?\s*$`)

// tables turns the row preceding a |--- separator row into a header row by
// doubling its pipes, and drops the separator. Every output line ends in a
// newline.
func tables(_ *conversion, s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isTableSeparator(line) {
			if n := len(out); n > 0 {
				out[n-1] = strings.ReplaceAll(out[n-1], "|", "||")
			}
			continue
		}
		out = append(out, line)
	}

	var b strings.Builder
	for _, line := range out {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func isTableSeparator(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.Contains(trimmed, "|") {
		return false
	}
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")
	for _, cell := range strings.Split(trimmed, "|") {
		if !separatorCell.MatchString(cell) {
			return false
		}
	}
	return true
}
