package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an ingest job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusLoading   JobStatus = "loading"
	StatusIndexing  JobStatus = "indexing"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// Job tracks one full reload of the collection.
type Job struct {
	mu sync.Mutex

	ID         string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Sources    []string  `json:"sources"`
	ListingURL string    `json:"listing_url,omitempty"`
	DryRun     bool      `json:"dry_run"`

	Progress Progress `json:"progress"`
	Summary  string   `json:"summary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	failures []Failure
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	SourcesTotal     int       `json:"sources_total"`
	SourcesProcessed int       `json:"sources_processed"`
	UnitsTotal       int       `json:"units_total"`
	UnitsStored      int       `json:"units_stored"`
	Failures         []Failure `json:"failures"`
	Errors           []string  `json:"errors"`
}

// NewJob creates a queued job for explicit sources or a listing page.
func NewJob(sources []string, listingURL string) *Job {
	now := time.Now()
	return &Job{
		ID:         uuid.NewString(),
		Status:     StatusQueued,
		Phase:      "queued",
		Sources:    append([]string(nil), sources...),
		ListingURL: listingURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetSources records the resolved source list.
func (j *Job) SetSources(sources []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Sources = append([]string(nil), sources...)
	j.Progress.SourcesTotal = len(sources)
	j.UpdatedAt = time.Now()
}

// GetSources returns a copy of the source list.
func (j *Job) GetSources() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.Sources...)
}

// AddError records an error that is not tied to one source.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// AddFailures records sources that produced no units.
func (j *Job) AddFailures(fs []Failure) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failures = append(j.failures, fs...)
	j.Progress.Failures = j.failures
	j.UpdatedAt = time.Now()
}

// SetSourcesProcessed records how many sources the pipeline has finished.
func (j *Job) SetSourcesProcessed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SourcesProcessed = n
	j.UpdatedAt = time.Now()
}

// SetUnits records the number of units produced and stored.
func (j *Job) SetUnits(total, stored int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.UnitsTotal = total
	j.Progress.UnitsStored = stored
	j.UpdatedAt = time.Now()
}

// SetSummary records the batch summary line.
func (j *Job) SetSummary(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Summary = s
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Sources    []string  `json:"sources"`
	ListingURL string    `json:"listing_url,omitempty"`
	DryRun     bool      `json:"dry_run"`
	Progress   Progress  `json:"progress"`
	Summary    string    `json:"summary,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	failures := append([]Failure{}, j.Progress.Failures...)
	sources := append([]string{}, j.Sources...)
	return JobSnapshot{
		ID:         j.ID,
		Status:     j.Status,
		Phase:      j.Phase,
		Sources:    sources,
		ListingURL: j.ListingURL,
		DryRun:     j.DryRun,
		Progress: Progress{
			SourcesTotal:     j.Progress.SourcesTotal,
			SourcesProcessed: j.Progress.SourcesProcessed,
			UnitsTotal:       j.Progress.UnitsTotal,
			UnitsStored:      j.Progress.UnitsStored,
			Failures:         failures,
			Errors:           errs,
		},
		Summary:   j.Summary,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
