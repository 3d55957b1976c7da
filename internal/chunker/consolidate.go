package chunker

import (
	"strings"

	"github.com/dgallion1/policyrag/internal/doctree"
)

// DefaultSeparator is inserted between the contents of merged chunks.
const DefaultSeparator = "\n\n---\n\n"

// Consolidate merges adjacent chunks in one left-to-right pass while the merged
// content stays within maxChars. It never reorders, never looks ahead and never
// returns more chunks than it was given.
func Consolidate(chunks []doctree.Chunk, maxChars int, separator string) []doctree.Chunk {
	if len(chunks) == 0 {
		return nil
	}

	sepLen := charLen(separator)
	result := make([]doctree.Chunk, 0, len(chunks))

	acc := newAccumulator(chunks[0])
	for _, next := range chunks[1:] {
		if acc.length+sepLen+charLen(next.Content) <= maxChars {
			acc.merge(separator, next)
			continue
		}
		result = append(result, acc.flush())
		acc = newAccumulator(next)
	}

	return append(result, acc.flush())
}

// accumulator owns the chunk being built. Its pages slice is private, so
// flushed chunks never share backing arrays with the input or each other.
type accumulator struct {
	content strings.Builder
	length  int
	pages   []int
}

func newAccumulator(c doctree.Chunk) *accumulator {
	a := &accumulator{
		length: charLen(c.Content),
		pages:  append(make([]int, 0, len(c.Pages)), c.Pages...),
	}
	a.content.WriteString(c.Content)
	return a
}

func (a *accumulator) merge(separator string, next doctree.Chunk) {
	a.content.WriteString(separator)
	a.content.WriteString(next.Content)
	a.length += charLen(separator) + charLen(next.Content)
	a.pages = append(a.pages, next.Pages...)
}

func (a *accumulator) flush() doctree.Chunk {
	return doctree.Chunk{Content: a.content.String(), Pages: a.pages}
}
