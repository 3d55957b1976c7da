package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dgallion1/policyrag/internal/chunker"
	"github.com/dgallion1/policyrag/internal/config"
	"github.com/dgallion1/policyrag/internal/doctree"
	"github.com/dgallion1/policyrag/internal/loader"
)

// Options configures a Pipeline.
type Options struct {
	MaxCharLimit int
	// Separator joins consolidated chunks. Empty means chunker.DefaultSeparator.
	Separator    string
	FetchTimeout time.Duration
	HTTPClient   *http.Client
	// TempDir is the parent of each run's download directory. Empty means os.TempDir().
	TempDir string
	// OnSource, if set, is called after each source with the running count.
	OnSource func(done, total int)
}

// Failure records a source that produced no units.
type Failure struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Result is the outcome of one batch run.
type Result struct {
	Units     []doctree.TextUnit
	Attempted int
	Succeeded int
	Failures  []Failure
}

// Summary reports the success ratio, e.g. "processed 3 of 4 sources (12 units)".
func (r *Result) Summary() string {
	return fmt.Sprintf("processed %d of %d sources (%d units)", r.Succeeded, r.Attempted, len(r.Units))
}

// Pipeline turns PDF sources into text units: load, split into sections,
// chunk, consolidate and assemble.
type Pipeline struct {
	opts      Options
	extractor loader.PageExtractor
	log       *slog.Logger
}

func New(opts Options, extractor loader.PageExtractor, log *slog.Logger) (*Pipeline, error) {
	if err := config.ValidateMaxCharLimit(opts.MaxCharLimit); err != nil {
		return nil, err
	}
	if extractor == nil {
		return nil, errors.New("pipeline: page extractor is required")
	}
	if opts.Separator == "" {
		opts.Separator = chunker.DefaultSeparator
	}
	return &Pipeline{opts: opts, extractor: extractor, log: log}, nil
}

// Run processes sources one at a time, in order. A source that fails is
// logged and recorded in Result.Failures and the batch continues. Downloads
// live in a temporary directory removed before Run returns.
func (p *Pipeline) Run(ctx context.Context, sources []string) (*Result, error) {
	dir, err := os.MkdirTemp(p.opts.TempDir, "policyrag-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			p.log.Warn("temp dir cleanup failed", "dir", dir, "error", err)
		}
	}()

	opts := []loader.Option{
		loader.WithExtractor(p.extractor),
		loader.WithTimeout(p.opts.FetchTimeout),
	}
	if p.opts.HTTPClient != nil {
		opts = append(opts, loader.WithHTTPClient(p.opts.HTTPClient))
	}
	ld := loader.New(dir, opts...)

	res := &Result{}
	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempted++
		log := p.log.With("source", source)

		fileName, pages, err := ld.Load(ctx, source)
		if err != nil {
			f := newFailure(source, err)
			log.Error("skipping source", "kind", f.Kind, "error", err)
			res.Failures = append(res.Failures, f)
		} else {
			units := p.ProcessDocument(fileName, pages)
			log.Info("processed document", "file_name", fileName, "pages", len(pages), "units", len(units))
			res.Units = append(res.Units, units...)
			res.Succeeded++
		}

		if p.opts.OnSource != nil {
			p.opts.OnSource(i+1, len(sources))
		}
	}

	p.log.Info("batch complete", "attempted", res.Attempted, "succeeded", res.Succeeded, "units", len(res.Units), "failures", len(res.Failures))
	return res, nil
}

// ProcessDocument runs the chunking stages for one loaded document.
func (p *Pipeline) ProcessDocument(fileName string, pages []doctree.RawPage) []doctree.TextUnit {
	prefix := chunker.HeaderPrefix(fileName)
	sections := chunker.SplitSections(pages, prefix)
	chunks := chunker.ChunkSections(sections, p.opts.MaxCharLimit)
	merged := chunker.Consolidate(chunks, p.opts.MaxCharLimit, p.opts.Separator)
	p.log.Debug("chunked document",
		"file_name", fileName,
		"header_prefix", prefix,
		"sections", len(sections),
		"chunks", len(chunks),
		"consolidated", len(merged),
	)
	return chunker.Assemble(merged, fileName)
}

func newFailure(source string, err error) Failure {
	var (
		fetchErr *loader.FetchError
		nfErr    *loader.NotFoundError
		convErr  *loader.ConversionError
	)
	kind := "other"
	switch {
	case errors.As(err, &fetchErr):
		kind = "fetch"
	case errors.As(err, &nfErr):
		kind = "not_found"
	case errors.As(err, &convErr):
		kind = "conversion"
	}
	return Failure{Source: source, Kind: kind, Message: err.Error(), Err: err}
}
