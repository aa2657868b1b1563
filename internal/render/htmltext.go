package render

import (
	"regexp"
	"strings"
)

var (
	reBreak   = regexp.MustCompile(`(?i)<br\s*/?>`)
	rePara    = regexp.MustCompile(`(?i)</p>`)
	reItem    = regexp.MustCompile(`(?i)<li>`)
	reTag     = regexp.MustCompile(`<[^>]+>`)
	reNewline = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText reduces the HTML body to the plain-text alternative part.
func HTMLToText(html string) string {
	text := reBreak.ReplaceAllString(html, "\n")
	text = rePara.ReplaceAllString(text, "\n\n")
	text = reItem.ReplaceAllString(text, "- ")
	text = reTag.ReplaceAllString(text, "")
	text = reNewline.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
