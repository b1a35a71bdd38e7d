// Package markup renders the lightweight reply markup as HTML fragments.
package markup

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	codeBlock   = regexp.MustCompile("(?s)```(.*?)```")
	mathBlock   = regexp.MustCompile(`(?s)\$\$(.*?)\$\$`)
	strong      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	emphasis    = regexp.MustCompile(`\*(.*?)\*`)
	inlineCode  = regexp.MustCompile("`(.*?)`")
	placeholder = regexp.MustCompile(`\x00([0-9]+)\x00`)
)

// ToHTML escapes text and converts **bold**, *italic*, `inline code`,
// fenced code blocks, $$math$$ and newlines into HTML. Code bodies are
// left unformatted apart from line breaks in fenced blocks.
func ToHTML(text string) string {
	out := html.EscapeString(strings.ReplaceAll(text, "\x00", ""))

	var blocks []string
	hold := func(re *regexp.Regexp, render func(body string) string) {
		out = re.ReplaceAllStringFunc(out, func(m string) string {
			blocks = append(blocks, render(re.FindStringSubmatch(m)[1]))
			return "\x00" + strconv.Itoa(len(blocks)-1) + "\x00"
		})
	}
	hold(codeBlock, func(body string) string {
		return `<div class="code-block">` + lineBreaks(body) + `</div>`
	})
	hold(inlineCode, func(body string) string {
		return `<span class="inline-code">` + body + `</span>`
	})

	out = mathBlock.ReplaceAllString(out, `<div class="math-expression">$1</div>`)
	out = strong.ReplaceAllString(out, `<strong>$1</strong>`)
	out = emphasis.ReplaceAllString(out, `<em>$1</em>`)
	out = lineBreaks(out)

	return placeholder.ReplaceAllStringFunc(out, func(m string) string {
		i, err := strconv.Atoi(strings.Trim(m, "\x00"))
		if err != nil || i >= len(blocks) {
			return ""
		}
		return blocks[i]
	})
}

func lineBreaks(s string) string {
	return strings.ReplaceAll(s, "\n", "<br>")
}
