package chunker

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/policyrag/internal/doctree"
)

// Span is a half-open byte range [Start, End) within a page's text.
type Span struct {
	Start int
	End   int
}

// HeaderPrefix returns the first two characters of the file name's stem.
// Policy manuals name their files after the section code their headers carry,
// e.g. "I-1630.pdf" has headers like "**I-1630 Applications**".
// Leading dots never start an extension, so ".pdf" has the stem ".pdf".
func HeaderPrefix(fileName string) string {
	base := filepath.Base(fileName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.TrimLeft(stem, ".") == "" {
		stem = base
	}
	runes := []rune(stem)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}

// HeaderMatcher finds section header lines for one document prefix.
type HeaderMatcher struct {
	re *regexp.Regexp
}

// NewHeaderMatcher compiles the header pattern for prefix. A header is a line
// holding only "**<prefix><text>**", where <text> has no asterisks.
func NewHeaderMatcher(prefix string) *HeaderMatcher {
	pattern := `(?m)^[ \t]*\*\*` + regexp.QuoteMeta(prefix) + `[^*\n]+\*\*[ \t\r]*$`
	return &HeaderMatcher{re: regexp.MustCompile(pattern)}
}

// Match returns the spans of all header lines in text, in order.
func (m *HeaderMatcher) Match(text string) []Span {
	locs := m.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	spans := make([]Span, len(locs))
	for i, loc := range locs {
		spans[i] = Span{Start: loc[0], End: loc[1]}
	}
	return spans
}

// MatchHeaders is a convenience wrapper for one-off matching.
func MatchHeaders(pageText, prefix string) []Span {
	return NewHeaderMatcher(prefix).Match(pageText)
}

// SplitSections partitions the page stream into sections at header lines.
//
// Concatenating every fragment of every returned section reproduces the
// concatenation of all page texts exactly. Whitespace-only text next to a
// header never becomes a fragment of its own; it is folded into the header
// fragment that follows (or precedes, at the end of a page). A section's
// content can therefore start with blank lines ahead of its header.
func SplitSections(pages []doctree.RawPage, prefix string) []doctree.Section {
	m := NewHeaderMatcher(prefix)

	var sections []doctree.Section
	var current []doctree.Fragment

	closeSection := func() {
		if len(current) > 0 {
			sections = append(sections, doctree.Section{Fragments: current})
		}
		current = nil
	}

	for _, page := range pages {
		spans := m.Match(page.Text)
		if len(spans) == 0 {
			current = append(current, doctree.Fragment{Page: page.Index, Content: page.Text})
			continue
		}

		text := page.Text
		last := 0
		for _, sp := range spans {
			before := text[last:sp.Start]
			carry := ""
			if isBlank(before) {
				carry = before
			} else {
				current = append(current, doctree.Fragment{Page: page.Index, Content: before})
			}

			closeSection()
			current = []doctree.Fragment{{Page: page.Index, Content: carry + text[sp.Start:sp.End]}}
			last = sp.End
		}

		rest := text[last:]
		if isBlank(rest) {
			current[len(current)-1].Content += rest
		} else {
			current = append(current, doctree.Fragment{Page: page.Index, Content: rest})
		}
	}
	closeSection()

	return sections
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
