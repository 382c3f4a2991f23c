// Package markdown renders the small markdown subset the assistant uses into
// HTML. Raw content is HTML-escaped before any substitution, so embedded
// markup or scripts come out as inert text.
package markdown

import (
	"regexp"
	"strings"
)

var (
	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	codeBlockRe  = regexp.MustCompile("(?s)```(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*]+)\*`)
	listBlockRe  = regexp.MustCompile(`(?m)^(?:-|\*) .+(?:\n(?:-|\*) .+)*`)
	listItemRe   = regexp.MustCompile(`^(?:-|\*) `)
	paragraphRe  = regexp.MustCompile(`\n{2,}`)
)

// Render converts src to HTML. The substitution order is fixed: code blocks,
// inline code, bold, italic, lists, paragraphs. Render is a pure function.
func Render(src string) string {
	if src == "" {
		return ""
	}

	md := escaper.Replace(strings.ReplaceAll(src, "\r\n", "\n"))

	md = codeBlockRe.ReplaceAllStringFunc(md, func(m string) string {
		code := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(m, "```"), "```"))
		return `<pre class="code-block"><code>` + code + `</code></pre>`
	})
	md = inlineCodeRe.ReplaceAllString(md, `<code class="inline-code">$1</code>`)
	md = boldRe.ReplaceAllString(md, `<strong>$1</strong>`)
	md = italicRe.ReplaceAllString(md, `<em>$1</em>`)

	md = listBlockRe.ReplaceAllStringFunc(md, func(block string) string {
		var items []string
		for _, line := range strings.Split(block, "\n") {
			items = append(items, "<li>"+listItemRe.ReplaceAllString(line, "")+"</li>")
		}
		return "<ul>" + strings.Join(items, "") + "</ul>"
	})

	paragraphs := paragraphRe.Split(md, -1)
	for i, p := range paragraphs {
		paragraphs[i] = "<p>" + strings.ReplaceAll(p, "\n", "<br>") + "</p>"
	}
	return strings.Join(paragraphs, "")
}
