package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToWikiMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "atx heading", input: "# Title", want: "h1.Title\n"},
		{name: "atx heading level 3", input: "### Deep", want: "h3.Deep\n"},
		{name: "setext level 1", input: "Title\n=====", want: "h1.Title\n"},
		{name: "setext level 2", input: "Subtitle\n---", want: "h2.Subtitle\n"},
		{name: "bold", input: "**bold**", want: "*bold*\n"},
		{name: "bold underscores", input: "__bold__", want: "*bold*\n"},
		{name: "italic", input: "*italic*", want: "_italic_\n"},
		{name: "bold italic", input: "***both***", want: "*both*\n"},
		{name: "nested emphasis keeps inner markers", input: "**bold _it_ text**", want: "*bold _it_ text*\n"},
		{name: "unmatched emphasis is untouched", input: "a ** b", want: "a ** b\n"},
		{name: "unclosed emphasis is untouched", input: "**open", want: "**open\n"},
		{name: "emphasis does not span lines", input: "*a\nb*", want: "*a\nb*\n"},
		{name: "bullet", input: "- one\n- two", want: "* one\n* two\n"},
		{name: "nested bullets", input: "- one\n    - two\n        - three", want: "* one\n** two\n*** three\n"},
		{name: "shallow indent stays level one", input: "  - one", want: "* one\n"},
		{name: "tab indent", input: "\t- two", want: "** two\n"},
		{name: "cite", input: "<cite>source</cite>", want: "??source??\n"},
		{name: "del ins", input: "<del>old</del> <ins>new</ins>", want: "-old- +new+\n"},
		{name: "sup sub", input: "x<sup>2</sup> H<sub>2</sub>O", want: "x^2^ H~2~O\n"},
		{name: "strikethrough", input: "~~gone~~", want: "-gone-\n"},
		{name: "inline code", input: "run `make test`", want: "run {{make test}}\n"},
		{name: "named link", input: "[docs](https://example.com/docs)", want: "[docs|https://example.com/docs]\n"},
		{name: "autolink", input: "<https://example.com>", want: "[https://example.com]\n"},
		{name: "plain html tag is not a link", input: "a<br>b", want: "a<br>b\n"},
		{name: "table header", input: "a|b\n---|---", want: "a||b\n"},
		{name: "piped table header", input: "|a|b|\n|---|---|\n|1|2|", want: "||a||b||\n|1|2|\n"},
		{name: "table without separator untouched", input: "|a|b|\n|1|2|", want: "|a|b|\n|1|2|\n"},
		{name: "separator on first line is dropped", input: "|---|---|\n|1|2|", want: "|1|2|\n"},
		{name: "crlf normalized", input: "# Title\r\nbody", want: "h1.Title\nbody\n"},
		{name: "empty", input: "", want: "\n"},
		{name: "trailing newline kept as empty line", input: "text\n", want: "text\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToWikiMarkup(tt.input))
		})
	}
}

func TestToWikiMarkup_CodeBlocks(t *testing.T) {
	t.Run("language tag", func(t *testing.T) {
		got := ToWikiMarkup("```js\ncode\n```")
		assert.Equal(t, "{code:js}\ncode\n{code}\n", got)
	})

	t.Run("no language", func(t *testing.T) {
		got := ToWikiMarkup("```\nplain\n```")
		assert.Equal(t, "{code}\nplain\n{code}\n", got)
	})

	t.Run("content is not rewritten", func(t *testing.T) {
		input := "before **b**\n```go\n# not a heading\nx := **y**\n- not a list\n[a](b) ~~s~~ `c`\n```\nafter *i*"
		got := ToWikiMarkup(input)
		assert.Equal(t,
			"before *b*\n{code:go}\n# not a heading\nx := **y**\n- not a list\n[a](b) ~~s~~ `c`\n{code}\nafter _i_\n",
			got)
	})

	t.Run("multiple blocks restored in order", func(t *testing.T) {
		got := ToWikiMarkup("```a\n1\n```\ntext\n```b\n2\n```")
		assert.Equal(t, "{code:a}\n1\n{code}\ntext\n{code:b}\n2\n{code}\n", got)
	})

	t.Run("rule after block is not a heading", func(t *testing.T) {
		got := ToWikiMarkup("```\nx\n```\n---")
		assert.Equal(t, "{code}\nx\n{code}\n---\n", got)

		got = ToWikiMarkup("```\nx\n```\nTitle\n===")
		assert.Equal(t, "{code}\nx\n{code}\nh1.Title\n", got)
	})

	t.Run("longer fences", func(t *testing.T) {
		got := ToWikiMarkup("````sh\necho **hi**\n````")
		assert.Equal(t, "{code:sh}\necho **hi**\n{code}\n", got)
	})
}

func TestToWikiMarkup_Document(t *testing.T) {
	input := "## Summary\n" +
		"Fixes the **login** flow, see [ticket](https://jira.example.com/browse/TEST-1).\n" +
		"\n" +
		"- first\n" +
		"    - nested `code`\n" +
		"\n" +
		"| col | val |\n" +
		"| --- | --- |\n" +
		"| a | 1 |"

	want := "h2.Summary\n" +
		"Fixes the *login* flow, see [ticket|https://jira.example.com/browse/TEST-1].\n" +
		"\n" +
		"* first\n" +
		"** nested {{code}}\n" +
		"\n" +
		"|| col || val ||\n" +
		"| a | 1 |\n"

	assert.Equal(t, want, ToWikiMarkup(input))
}
