package pipeline

import (
	"sync"
	"time"
)

// State is a job lifecycle phase.
type State string

const (
	StateCreated    State = "created"
	StateExtracting State = "extracting"
	StateSampling   State = "sampling"
	StateQuantizing State = "quantizing"
	StateAssembling State = "assembling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// transitions lists the legal successors of each state. Failed is legal
// from every non-terminal state.
var transitions = map[State][]State{
	StateCreated:    {StateExtracting, StateFailed},
	StateExtracting: {StateSampling, StateFailed},
	StateSampling:   {StateQuantizing, StateFailed},
	StateQuantizing: {StateAssembling, StateFailed},
	StateAssembling: {StateCompleted, StateFailed},
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

// CanTransition reports whether next is a legal successor of s.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Request describes one document to optimize. Exactly one of PageFiles
// or PDFPath supplies the pages.
type Request struct {
	// PageFiles are raster images, one page each.
	PageFiles []string
	// PDFPath is a source document rasterized at Settings.DPI.
	PDFPath string
	// CoverFiles are raster pages placed before the content, passed
	// through without optimization.
	CoverFiles []string
	// CoverPDF is an existing document merged in front of the content.
	CoverPDF string
	// OutPath is the assembled document destination. Empty means a
	// file inside the job's work directory.
	OutPath string
	// Settings override the defaults; a zero value means defaults.
	Settings *Settings
}

// Status is the externally visible job snapshot.
type Status struct {
	State    State
	Progress int
	Message  string
	Start    *time.Time
	End      *time.Time
	Metadata map[string]any
}

// PageStat records one page's size outcome.
type PageStat struct {
	Page           int    `json:"page"`
	File           string `json:"file"`
	OriginalBytes  int64  `json:"original_bytes"`
	OptimizedBytes int64  `json:"optimized_bytes"`
	Colors         int    `json:"colors"`
}

// Stats summarizes a finished job.
type Stats struct {
	Pages          int        `json:"pages"`
	CoverPages     int        `json:"cover_pages"`
	OriginalBytes  int64      `json:"original_bytes"`
	OptimizedBytes int64      `json:"optimized_bytes"`
	OutputBytes    int64      `json:"output_bytes"`
	PageStats      []PageStat `json:"page_stats,omitempty"`
}

// CompressionPercent is how much smaller the optimized pages are than
// their sources, as a percentage. Zero when nothing was measured.
func (s Stats) CompressionPercent() float64 {
	if s.OriginalBytes == 0 {
		return 0
	}
	return (1 - float64(s.OptimizedBytes)/float64(s.OriginalBytes)) * 100
}

// JobSummary is one row of a List call.
type JobSummary struct {
	ID       string
	State    State
	Progress int
}

// documentJob is the runner's working record for one document. The
// runner goroutine owns the stage flow; mu guards the snapshot fields
// because page workers report progress concurrently.
type documentJob struct {
	id   string
	req  Request
	sets Settings
	seed int64

	mu       sync.Mutex
	state    State
	progress int
	message  string
	start    time.Time
	end      *time.Time
	meta     map[string]any
}

func newDocumentJob(id string, req Request, sets Settings, seed int64) *documentJob {
	return &documentJob{
		id:    id,
		req:   req,
		sets:  sets,
		seed:  seed,
		state: StateCreated,
		start: time.Now(),
		meta:  map[string]any{"sample_seed": seed},
	}
}

// setMeta stages a metadata value; it rides along with the next
// snapshot write.
func (j *documentJob) setMeta(k string, v any) {
	j.mu.Lock()
	j.meta[k] = v
	j.mu.Unlock()
}

// snapshot copies the visible fields under the lock so a status write
// never observes a half-applied transition.
func (j *documentJob) snapshot() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *documentJob) snapshotLocked() Status {
	meta := make(map[string]any, len(j.meta))
	for k, v := range j.meta {
		meta[k] = v
	}
	start := j.start
	return Status{
		State:    j.state,
		Progress: j.progress,
		Message:  j.message,
		Start:    &start,
		End:      j.end,
		Metadata: meta,
	}
}
