package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag and attribute. The policy is shared between
// goroutines, so it must not be mutated after this initializer.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true) // Prevents word concatenation
	return p
}()

// Sanitize strips all HTML from arbitrary user input. Note text passes
// through one of the helpers below before it is stored; repositories assume
// sanitized input.
//
// Examples:
//   - "<script>alert('xss')</script>Hello" -> "Hello"
//   - "<p>Hello <b>world</b></p>" -> "Hello world " (note the space)
//   - "**markdown** text" -> "**markdown** text" (preserved)
func Sanitize(s string) string {
	return strict.Sanitize(s)
}

// Clean strips HTML, unescapes entities and collapses runs of spaces on
// each line. Newlines survive.
//
//   - "<p>hi</p>" -> "hi"
//   - "<b>a</b> <b>b</b>" -> "a b"
func Clean(s string) string {
	out := html.UnescapeString(strings.TrimSpace(strict.Sanitize(s)))
	out = strings.ReplaceAll(out, "\u00a0", " ")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Line is Clean for single-line fields such as titles: newlines become spaces.
func Line(s string) string {
	return strings.Join(strings.Fields(Clean(s)), " ")
}

// Text strips HTML from block content but keeps the user's spacing, so
// formatting span offsets still point at the same runes for plain input.
func Text(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return html.UnescapeString(strict.Sanitize(s))
}
