package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/policyrag/internal/doctree"
	"github.com/dgallion1/policyrag/internal/loader"
)

// Indexer replaces the collection with a new set of units.
type Indexer interface {
	Reset(ctx context.Context) error
	Index(ctx context.Context, units []doctree.TextUnit, progress func(done int)) (int, error)
}

// Discoverer lists the PDF URLs on a listing page.
type Discoverer interface {
	Discover(ctx context.Context, listingURL string) ([]string, error)
}

// Worker runs one ingest job: discover, load and chunk, then reset the
// collection and index the units.
type Worker struct {
	opts      Options
	extractor loader.PageExtractor
	indexer   Indexer
	discover  Discoverer
	log       *slog.Logger
}

func NewWorker(opts Options, extractor loader.PageExtractor, indexer Indexer, discover Discoverer, log *slog.Logger) *Worker {
	return &Worker{
		opts:      opts,
		extractor: extractor,
		indexer:   indexer,
		discover:  discover,
		log:       log,
	}
}

// Process runs the job to a terminal status. Units are returned for callers
// that want to inspect them (dry runs).
func (w *Worker) Process(ctx context.Context, job *Job) []doctree.TextUnit {
	log := w.log.With("job_id", job.ID)

	// Phase 1: Resolve sources.
	sources := job.GetSources()
	if job.ListingURL != "" {
		job.SetStatus(StatusLoading, "discovering")
		if w.discover == nil {
			return w.fail(job, log, "discovering", fmt.Errorf("no discoverer configured"))
		}
		found, err := w.discover.Discover(ctx, job.ListingURL)
		if err != nil {
			return w.fail(job, log, "discovering", fmt.Errorf("discover %s: %w", job.ListingURL, err))
		}
		sources = append(sources, found...)
	}
	job.SetSources(sources)
	if len(sources) == 0 {
		return w.fail(job, log, "discovering", fmt.Errorf("no sources to load"))
	}

	// Phase 2: Load and chunk.
	job.SetStatus(StatusLoading, "loading")
	opts := w.opts
	opts.OnSource = func(done, _ int) { job.SetSourcesProcessed(done) }
	p, err := New(opts, w.extractor, log)
	if err != nil {
		return w.fail(job, log, "loading", err)
	}
	res, err := p.Run(ctx, sources)
	if err != nil && res == nil {
		return w.fail(job, log, "loading", err)
	}
	job.AddFailures(res.Failures)
	job.SetUnits(len(res.Units), 0)
	job.SetSummary(res.Summary())
	if err != nil {
		return w.fail(job, log, "loading", err)
	}
	if res.Succeeded == 0 {
		log.Error("no source could be loaded; collection left unchanged", "summary", res.Summary())
		job.SetStatus(StatusFailed, "loading")
		return res.Units
	}

	if job.DryRun {
		w.finish(job, log, res)
		return res.Units
	}

	// Phase 3: Replace the collection.
	job.SetStatus(StatusIndexing, "resetting")
	if err := w.indexer.Reset(ctx); err != nil {
		return w.fail(job, log, "resetting", fmt.Errorf("reset collection: %w", err))
	}
	job.SetStatus(StatusIndexing, "indexing")
	stored, err := w.indexer.Index(ctx, res.Units, func(done int) {
		job.SetUnits(len(res.Units), done)
	})
	job.SetUnits(len(res.Units), stored)
	if err != nil {
		return w.fail(job, log, "indexing", fmt.Errorf("index units: %w", err))
	}

	w.finish(job, log, res)
	return res.Units
}

func (w *Worker) finish(job *Job, log *slog.Logger, res *Result) {
	status := StatusCompleted
	if len(res.Failures) > 0 {
		status = StatusPartial
	}
	job.SetStatus(status, "done")
	log.Info("ingest finished", "status", status, "summary", res.Summary())
}

func (w *Worker) fail(job *Job, log *slog.Logger, phase string, err error) []doctree.TextUnit {
	log.Error("ingest failed", "phase", phase, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
	return nil
}
