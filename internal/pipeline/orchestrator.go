// Package pipeline coordinates document optimization jobs through their
// stages: extract page rasters, sample colors, build palettes, quantize
// pages and assemble the output document. Jobs run asynchronously;
// callers poll status snapshots by job ID.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pagepress/internal/limiter"
	"github.com/local/pagepress/internal/metrics"
	"github.com/local/pagepress/internal/store"
)

// StatusStore persists job snapshots. Implementations must store whole
// snapshots so concurrent readers never observe a partial transition.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st Status) error
	Get(ctx context.Context, jobID string) (Status, bool, error)
	List(ctx context.Context) ([]string, error)
}

// PageStatStore persists per-page size records.
type PageStatStore interface {
	SavePage(ctx context.Context, jobID string, stat PageStat) error
}

// ArtifactStore pushes finished documents to remote storage.
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// Dependencies wires the orchestrator's collaborators. A nil Status
// falls back to an in-process store; Pages and Artifacts may stay nil.
type Dependencies struct {
	Status    StatusStore
	Pages     PageStatStore
	Artifacts ArtifactStore
}

// Config bounds the orchestrator's resource use.
type Config struct {
	// WorkDir holds one directory per job with page artifacts and the
	// assembled document.
	WorkDir string
	// JobWorkers is how many jobs run at once.
	JobWorkers int
	// PageWorkers caps page-level parallelism across all running jobs.
	PageWorkers int
	// QueueSize bounds jobs accepted but not yet running.
	QueueSize int
	// JobTimeout fails a job that runs longer. Zero disables it.
	JobTimeout time.Duration
	// MaxPages rejects documents with more pages. Zero disables it.
	MaxPages int
	// MaxPixels fails any page still larger after downscaling. Zero
	// disables it.
	MaxPixels int
	// DownscalePixels shrinks larger page rasters to fit before they
	// are processed. Zero disables it.
	DownscalePixels int
}

// Orchestrator owns the runner pool and the job queue.
type Orchestrator struct {
	cfg   Config
	deps  Dependencies
	slots *limiter.Slots

	queue chan *documentJob
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New applies config defaults and starts the runner pool.
func New(cfg Config, deps Dependencies) *Orchestrator {
	if cfg.JobWorkers <= 0 {
		cfg.JobWorkers = 2
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "pagepress")
	}
	if deps.Status == nil {
		deps.Status = NewMemoryStatusAdapter(store.NewMemoryStatus())
	}
	o := &Orchestrator{
		cfg:   cfg,
		deps:  deps,
		slots: limiter.NewSlots(cfg.PageWorkers),
		queue: make(chan *documentJob, cfg.QueueSize),
	}
	for i := 0; i < cfg.JobWorkers; i++ {
		o.wg.Add(1)
		go o.runner()
	}
	log.Debug().Int("job_workers", cfg.JobWorkers).Int("page_workers", cfg.PageWorkers).Str("work_dir", cfg.WorkDir).Msg("Orchestrator started")
	return o
}

func (o *Orchestrator) runner() {
	defer o.wg.Done()
	for job := range o.queue {
		o.runJob(job)
	}
}

// Start validates the request, records the created snapshot and queues
// the job. It returns the job ID without waiting for any stage to run;
// a document that turns out to have no pages fails asynchronously.
func (o *Orchestrator) Start(ctx context.Context, req Request) (string, error) {
	sets := DefaultSettings()
	if req.Settings != nil {
		sets = *req.Settings
	}
	if err := sets.Validate(); err != nil {
		return "", err
	}
	if req.PDFPath != "" && len(req.PageFiles) > 0 {
		return "", &InvalidInputError{Reason: "both page files and a source document were given"}
	}

	seed := sets.SampleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	job := newDocumentJob(uuid.NewString(), req, sets, seed)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return "", fmt.Errorf("orchestrator is closed")
	}
	if err := o.deps.Status.Set(ctx, job.id, job.snapshot()); err != nil {
		o.mu.Unlock()
		return "", fmt.Errorf("failed to record job: %w", err)
	}
	metrics.JobStarted()
	select {
	case o.queue <- job:
		o.mu.Unlock()
	default:
		o.mu.Unlock()
		err := &ResourceExhaustedError{Budget: "job queue"}
		o.fail(job, err)
		return "", err
	}
	log.Info().Str("job_id", job.id).Int("page_files", len(req.PageFiles)).Str("source", req.PDFPath).Int64("sample_seed", seed).Msg("Job accepted")
	return job.id, nil
}

// Status returns the latest snapshot for a job.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (Status, error) {
	st, ok, err := o.deps.Status.Get(ctx, jobID)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read job status: %w", err)
	}
	if !ok {
		return Status{}, ErrJobNotFound
	}
	return st, nil
}

// List enumerates known jobs with their current state.
func (o *Orchestrator) List(ctx context.Context) ([]JobSummary, error) {
	ids, err := o.deps.Status.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	out := make([]JobSummary, 0, len(ids))
	for _, id := range ids {
		st, ok, err := o.deps.Status.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read job %s: %w", id, err)
		}
		if !ok {
			continue
		}
		out = append(out, JobSummary{ID: id, State: st.State, Progress: st.Progress})
	}
	return out, nil
}

// Close stops accepting jobs and waits for running ones to finish.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()
	o.wg.Wait()
}
