package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/policyrag/internal/config"
	"github.com/dgallion1/policyrag/internal/doctree"
)

type fakeIndexer struct {
	resets   int
	indexed  []doctree.TextUnit
	resetErr error
	indexErr error
}

func (f *fakeIndexer) Reset(context.Context) error {
	f.resets++
	return f.resetErr
}

func (f *fakeIndexer) Index(_ context.Context, units []doctree.TextUnit, progress func(int)) (int, error) {
	if f.indexErr != nil {
		return 0, f.indexErr
	}
	f.indexed = append(f.indexed, units...)
	if progress != nil {
		progress(len(units))
	}
	return len(units), nil
}

type fakeDiscoverer struct {
	links []string
	err   error
}

func (f fakeDiscoverer) Discover(context.Context, string) ([]string, error) {
	return f.links, f.err
}

func newTestWorker(t *testing.T, ex *fakeExtractor, ix Indexer, d Discoverer) *Worker {
	t.Helper()
	return NewWorker(Options{MaxCharLimit: 5000, TempDir: t.TempDir()}, ex, ix, d, testLogger())
}

func TestWorker_Completed(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "A-1.pdf")
	ex := &fakeExtractor{pages: map[string][]string{"A-1.pdf": {"one", "two"}}}
	ix := &fakeIndexer{}

	job := NewJob([]string{a}, "")
	units := newTestWorker(t, ex, ix, nil).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if ix.resets != 1 || len(ix.indexed) != 1 || len(units) != 1 {
		t.Errorf("expected one reset and one unit indexed, got resets=%d indexed=%d", ix.resets, len(ix.indexed))
	}
	if snap.Progress.UnitsStored != 1 || snap.Progress.SourcesProcessed != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if snap.Summary != "processed 1 of 1 sources (1 units)" {
		t.Errorf("unexpected summary %q", snap.Summary)
	}
}

func TestWorker_PartialWhenSomeSourcesFail(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "A-1.pdf")
	ex := &fakeExtractor{pages: map[string][]string{"A-1.pdf": {"one"}}}
	ix := &fakeIndexer{}

	job := NewJob([]string{a, dir + "/missing.pdf"}, "")
	newTestWorker(t, ex, ix, nil).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %q", snap.Status)
	}
	if len(snap.Progress.Failures) != 1 || snap.Progress.Failures[0].Kind != "not_found" {
		t.Errorf("unexpected failures %+v", snap.Progress.Failures)
	}
}

func TestWorker_AllSourcesFailLeavesCollection(t *testing.T) {
	ix := &fakeIndexer{}
	job := NewJob([]string{"/nonexistent/A-1.pdf"}, "")
	newTestWorker(t, &fakeExtractor{}, ix, nil).Process(context.Background(), job)

	if job.Snapshot().Status != StatusFailed {
		t.Fatalf("expected failed, got %q", job.Snapshot().Status)
	}
	if ix.resets != 0 {
		t.Error("expected collection not to be reset")
	}
}

func TestWorker_DryRunSkipsIndexing(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "A-1.pdf")
	ix := &fakeIndexer{}
	job := NewJob([]string{a}, "")
	job.DryRun = true

	units := newTestWorker(t, &fakeExtractor{pages: map[string][]string{"A-1.pdf": {"x"}}}, ix, nil).Process(context.Background(), job)
	if job.Snapshot().Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", job.Snapshot().Status)
	}
	if len(units) != 1 || ix.resets != 0 {
		t.Errorf("expected units returned without indexing, got %d units, %d resets", len(units), ix.resets)
	}
}

func TestWorker_Discovery(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "A-1.pdf")
	ix := &fakeIndexer{}
	job := NewJob(nil, "https://ldh.la.gov/page/1681")

	newTestWorker(t, &fakeExtractor{pages: map[string][]string{"A-1.pdf": {"x"}}}, ix, fakeDiscoverer{links: []string{a}}).
		Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if len(snap.Sources) != 1 || snap.Sources[0] != a {
		t.Errorf("expected discovered sources recorded, got %v", snap.Sources)
	}
}

func TestWorker_DiscoveryFailure(t *testing.T) {
	job := NewJob(nil, "https://ldh.la.gov/page/1681")
	newTestWorker(t, &fakeExtractor{}, &fakeIndexer{}, fakeDiscoverer{err: errors.New("503")}).
		Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "discovering" {
		t.Errorf("expected failed in discovering, got %q/%q", snap.Status, snap.Phase)
	}
}

func TestWorker_IndexFailure(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "A-1.pdf")
	ix := &fakeIndexer{indexErr: errors.New("embedding quota")}
	job := NewJob([]string{a}, "")

	newTestWorker(t, &fakeExtractor{pages: map[string][]string{"A-1.pdf": {"x"}}}, ix, nil).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "indexing" {
		t.Errorf("expected failed in indexing, got %q/%q", snap.Status, snap.Phase)
	}
}

func TestOrchestrator_RunsSubmittedJob(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "A-1.pdf")
	ix := &fakeIndexer{}
	w := newTestWorker(t, &fakeExtractor{pages: map[string][]string{"A-1.pdf": {"x"}}}, ix, nil)

	cfg := config.Config{MaxQueueSize: 2, JobTTL: time.Hour}
	orch := NewOrchestrator(cfg, w, testLogger())
	orch.Start(context.Background())
	defer orch.Stop()

	job := NewJob([]string{a}, "")
	if err := orch.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Terminal() {
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %q", job.Snapshot().Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := orch.GetJob(job.ID); got != job {
		t.Error("expected job to be retrievable")
	}
	if job.Snapshot().Status != StatusCompleted {
		t.Errorf("expected completed, got %q", job.Snapshot().Status)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	w := newTestWorker(t, &fakeExtractor{}, &fakeIndexer{}, nil)
	orch := NewOrchestrator(config.Config{MaxQueueSize: 1, JobTTL: time.Hour}, w, testLogger())

	if err := orch.Submit(NewJob([]string{"a"}, "")); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob([]string{"b"}, "")
	if err := orch.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", second.Snapshot().Status)
	}
}
