// Package textutil holds plain-text helpers shared by providers and views.
package textutil

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// styleBlockPattern matches style and script elements with their content.
var styleBlockPattern = regexp.MustCompile(`(?is)<(style|script)[^>]*>.*?</(style|script)>`)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// StripHTML removes HTML tags from a string and decodes common entities,
// providing a basic plain-text rendering.
func StripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := styleBlockPattern.ReplaceAllString(html, "")
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>", "</tr>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")
	result = entityReplacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}

// CollapseSpace joins all whitespace runs into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most width display cells, appending "…" when
// it cuts. Wide runes (CJK, emoji) count as two cells.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "…")
}

// PadRight pads s with spaces to exactly width cells, truncating if needed.
func PadRight(s string, width int) string {
	s = Truncate(s, width)
	return runewidth.FillRight(s, width)
}
