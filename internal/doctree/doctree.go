package doctree

// RawPage is one page of extracted text from a PDF.
type RawPage struct {
	Index    int    // Zero-based position within the source PDF
	Text     string // Extracted text (may be empty)
	FileName string // Originating document's file name
}

// Fragment is a slice of a page's text assigned to exactly one section.
type Fragment struct {
	Page    int    // Index of the RawPage it came from
	Content string // Substring of the page text
}

// Section is a contiguous run of fragments starting at a header line
// (or at the start of the document) and ending before the next header.
type Section struct {
	Fragments []Fragment
}

// Content returns the concatenated fragment text.
func (s Section) Content() string {
	n := 0
	for _, f := range s.Fragments {
		n += len(f.Content)
	}
	b := make([]byte, 0, n)
	for _, f := range s.Fragments {
		b = append(b, f.Content...)
	}
	return string(b)
}

// Pages returns the page index of every fragment, in order, duplicates kept.
func (s Section) Pages() []int {
	pages := make([]int, 0, len(s.Fragments))
	for _, f := range s.Fragments {
		pages = append(pages, f.Page)
	}
	return pages
}

// Chunk is a budget-bounded accumulation of fragment text.
type Chunk struct {
	Content string
	Pages   []int // Zero-based page indices, in contribution order
}

// TextUnit is the formatted, provenance-tagged artifact handed to the vector store.
type TextUnit struct {
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata"`
}

// FileName returns the file_name metadata entry, or "" if missing.
func (u TextUnit) FileName() string {
	name, _ := u.Metadata["file_name"].(string)
	return name
}
