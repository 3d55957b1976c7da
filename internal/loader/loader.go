package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/policyrag/internal/doctree"
)

// DefaultFileName names a downloaded document whose URL path has no .pdf base name.
const DefaultFileName = "download.pdf"

// Loader resolves a source (URL or local path) to a PDF on disk and converts
// it to raw pages. Downloads are written under dir; the caller owns dir.
type Loader struct {
	dir       string
	extractor PageExtractor
	client    *http.Client
	timeout   time.Duration
}

type Option func(*Loader)

func WithExtractor(ex PageExtractor) Option {
	return func(l *Loader) { l.extractor = ex }
}

func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithTimeout bounds a single download. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func New(dir string, opts ...Option) *Loader {
	l := &Loader{
		dir:       dir,
		extractor: DefaultChain(true),
		client:    &http.Client{},
		timeout:   30 * time.Second,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// IsURL reports whether source should be downloaded rather than read from disk.
func IsURL(source string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FileNameFromURL returns the base name of the URL path, ignoring the query
// string, or DefaultFileName when it is not a .pdf name.
func FileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return DefaultFileName
	}
	name := path.Base(u.Path)
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") || name == ".pdf" {
		return DefaultFileName
	}
	return name
}

// Load returns the document's file name and one RawPage per PDF page,
// including empty pages.
func (l *Loader) Load(ctx context.Context, source string) (string, []doctree.RawPage, error) {
	var (
		fileName string
		pdfPath  string
		err      error
	)
	if IsURL(source) {
		fileName = FileNameFromURL(source)
		pdfPath, err = l.download(ctx, source, fileName)
		if err != nil {
			return "", nil, err
		}
	} else {
		if _, statErr := os.Stat(source); statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				return "", nil, &NotFoundError{Path: source, Err: statErr}
			}
			return "", nil, fmt.Errorf("stat %s: %w", source, statErr)
		}
		fileName = filepath.Base(source)
		pdfPath = source
	}

	texts, err := l.extractor.ExtractPages(pdfPath)
	if err != nil {
		return "", nil, &ConversionError{Source: source, Err: err}
	}

	pages := make([]doctree.RawPage, len(texts))
	for i, text := range texts {
		pages[i] = doctree.RawPage{Index: i, Text: text, FileName: fileName}
	}
	return fileName, pages, nil
}

func (l *Loader) download(ctx context.Context, source, fileName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", &FetchError{Source: source, Err: err}
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", &FetchError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{
			Source:     source,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	dst := filepath.Join(l.dir, fmt.Sprintf("%s_%s.pdf", stem, uuid.NewString()[:8]))
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return "", &FetchError{Source: source, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return dst, nil
}
