package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/policyrag/internal/doctree"
)

// ChunkSections turns sections into chunks of at most maxChars characters.
//
// A section that fits the budget becomes one chunk. Larger sections are split
// greedily at fragment boundaries. A fragment is never cut, so a single
// fragment longer than maxChars yields one oversized chunk.
func ChunkSections(sections []doctree.Section, maxChars int) []doctree.Chunk {
	var chunks []doctree.Chunk
	for _, sec := range sections {
		content := sec.Content()
		if charLen(content) <= maxChars {
			chunks = append(chunks, doctree.Chunk{
				Content: content,
				Pages:   sec.Pages(),
			})
			continue
		}
		chunks = append(chunks, splitSection(sec, maxChars)...)
	}
	return chunks
}

// splitSection accumulates fragments until the next one would overflow the
// budget, then starts a new chunk with that fragment.
func splitSection(sec doctree.Section, maxChars int) []doctree.Chunk {
	var result []doctree.Chunk
	var current strings.Builder
	currentLen := 0
	var pages []int

	for _, frag := range sec.Fragments {
		n := charLen(frag.Content)

		if currentLen > 0 && currentLen+n > maxChars {
			result = append(result, doctree.Chunk{Content: current.String(), Pages: pages})
			current.Reset()
			currentLen = 0
			pages = nil
		}

		current.WriteString(frag.Content)
		currentLen += n
		pages = append(pages, frag.Page)
	}

	if currentLen > 0 {
		result = append(result, doctree.Chunk{Content: current.String(), Pages: pages})
	}

	return result
}

// charLen counts characters, not bytes.
func charLen(s string) int {
	return utf8.RuneCountInString(s)
}
