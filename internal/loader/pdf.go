package loader

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/reader"
)

// PageExtractor converts a PDF file into one text string per page, in page
// order. Empty pages must still be returned so indices stay aligned.
type PageExtractor interface {
	ExtractPages(path string) ([]string, error)
}

// Chain tries each extractor in order and returns the first success.
type Chain []PageExtractor

func (c Chain) ExtractPages(path string) ([]string, error) {
	if len(c) == 0 {
		return nil, errors.New("no page extractor configured")
	}
	var errs []error
	for _, ex := range c {
		pages, err := ex.ExtractPages(path)
		if err == nil {
			return pages, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// DefaultChain is tabula's markdown-flavoured text, then the plain Go reader,
// then pdftotext if enabled.
func DefaultChain(fallbackPdftotext bool) Chain {
	c := Chain{&TabulaExtractor{}, &PlainExtractor{}}
	if fallbackPdftotext {
		c = append(c, &PdftotextExtractor{})
	}
	return c
}

// TabulaExtractor extracts reading-order text with tabula and marks bold
// headings as **heading** lines, the way markdown converters render them.
type TabulaExtractor struct{}

func (p *TabulaExtractor) ExtractPages(path string) ([]string, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tabula open: %w", err)
	}
	defer r.Close()

	n, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("tabula page count: %w", err)
	}

	pages := make([]string, n)
	for i := 0; i < n; i++ {
		text, _, err := tabula.FromReader(r).Pages(i + 1).Text()
		if err != nil {
			return nil, fmt.Errorf("tabula page %d: %w", i+1, err)
		}
		// Heading detection is best effort; plain text is still usable.
		if headings, err := tabula.FromReader(r).Pages(i + 1).Headings(); err == nil {
			text = emphasizeHeadings(text, headings)
		}
		pages[i] = text
	}
	return pages, nil
}

// emphasizeHeadings wraps lines matching a bold, single-line heading in "**".
func emphasizeHeadings(text string, headings []layout.Heading) string {
	bold := make(map[string]bool)
	for _, h := range headings {
		t := strings.TrimSpace(h.Text)
		if h.IsBold && t != "" && !strings.ContainsAny(t, "*\n") {
			bold[t] = true
		}
	}
	if len(bold) == 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if t := strings.TrimSpace(line); bold[t] {
			lines[i] = "**" + t + "**"
		}
	}
	return strings.Join(lines, "\n")
}

// PlainExtractor uses ledongthuc/pdf. Pages it cannot read come back empty.
type PlainExtractor struct{}

func (p *PlainExtractor) ExtractPages(path string) ([]string, error) {
	f, r, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf open: %w", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// PdftotextExtractor shells out to poppler's pdftotext.
type PdftotextExtractor struct{}

func (p *PdftotextExtractor) ExtractPages(path string) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return splitPages(string(out)), nil
}

// splitPages splits on form feeds. pdftotext terminates every page with one,
// so a trailing empty element is dropped.
func splitPages(text string) []string {
	if text == "" {
		return nil
	}
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
