package chunker

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/policyrag/internal/doctree"
)

// FormatPageNumbers renders zero-based page indices as one-based ranges,
// e.g. [0 1 2 4] -> "1-3, 5". Duplicates and order are ignored.
func FormatPageNumbers(pages []int) string {
	if len(pages) == 0 {
		return ""
	}

	seen := make(map[int]bool, len(pages))
	nums := make([]int, 0, len(pages))
	for _, p := range pages {
		n := p + 1
		if !seen[n] {
			seen[n] = true
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)

	var ranges []string
	start, end := nums[0], nums[0]
	for _, n := range nums[1:] {
		if n == end+1 {
			end = n
			continue
		}
		ranges = append(ranges, formatRange(start, end))
		start, end = n, n
	}
	ranges = append(ranges, formatRange(start, end))

	return strings.Join(ranges, ", ")
}

func formatRange(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}

// Assemble formats each chunk into a TextUnit with a file/page header.
func Assemble(chunks []doctree.Chunk, fileName string) []doctree.TextUnit {
	units := make([]doctree.TextUnit, 0, len(chunks))
	for _, c := range chunks {
		var body strings.Builder
		body.WriteString("File: ")
		body.WriteString(fileName)
		body.WriteString("\nPages: ")
		body.WriteString(FormatPageNumbers(c.Pages))
		body.WriteString("\n\n")
		body.WriteString(c.Content)

		units = append(units, doctree.TextUnit{
			Body:     body.String(),
			Metadata: map[string]any{"file_name": fileName},
		})
	}
	return units
}
