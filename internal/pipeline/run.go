package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pagepress/internal/codec"
	"github.com/local/pagepress/internal/metrics"
	"github.com/local/pagepress/internal/palette"
	"github.com/local/pagepress/internal/quant"
	"github.com/local/pagepress/internal/raster"
	"github.com/local/pagepress/internal/sampler"
)

// Progress checkpoints per stage. Page loops interpolate between the
// extract and quantize bounds as pages finish.
const (
	progressExtractStart = 5
	progressExtractEnd   = 30
	progressSampling     = 35
	progressPaletteDone  = 45
	progressQuantStart   = 50
	progressQuantEnd     = 90
	progressAssembling   = 95
	progressDone         = 100
)

// pageSource says where page i comes from: a raster file of its own, or
// an index into the source PDF.
type pageSource struct {
	file string
	page int
}

func (o *Orchestrator) runJob(job *documentJob) {
	ctx := context.Background()
	if o.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.JobTimeout)
		defer cancel()
	}
	log.Info().Str("job_id", job.id).Msg("Job started")
	if err := o.execute(ctx, job); err != nil {
		o.fail(job, err)
	}
}

func (o *Orchestrator) execute(ctx context.Context, job *documentJob) error {
	sources, err := o.resolveSources(job)
	if err != nil {
		return err
	}
	// The job is still in Created here, so an empty document fails
	// without ever reaching Extracting.
	if len(sources) == 0 {
		return &InvalidInputError{Reason: "document has no pages"}
	}
	if o.cfg.MaxPages > 0 && len(sources) > o.cfg.MaxPages {
		return &ResourceExhaustedError{Budget: "pages", Err: fmt.Errorf("%d pages over the limit of %d", len(sources), o.cfg.MaxPages)}
	}

	jobDir := filepath.Join(o.cfg.WorkDir, job.id)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	pages, err := o.extract(ctx, job, sources)
	if err != nil {
		return err
	}
	pal, err := o.sample(ctx, job, pages)
	if err != nil {
		return err
	}
	pageFiles, stats, err := o.quantize(ctx, job, sources, pages, pal, jobDir)
	if err != nil {
		return err
	}
	return o.assemble(ctx, job, pageFiles, stats, jobDir)
}

// resolveSources expands the request into one source per page. Raster
// file lists get the ordering rule applied here so every later stage
// sees final page numbering.
func (o *Orchestrator) resolveSources(job *documentJob) ([]pageSource, error) {
	if job.req.PDFPath != "" {
		info, err := codec.Probe(job.req.PDFPath)
		if err != nil {
			return nil, &InvalidInputError{Reason: "unreadable source document", Err: err}
		}
		sources := make([]pageSource, info.Pages)
		for i := range sources {
			sources[i] = pageSource{page: i}
		}
		job.setMeta("source", filepath.Base(job.req.PDFPath))
		job.setMeta("total_pages", info.Pages)
		return sources, nil
	}

	files := append([]string(nil), job.req.PageFiles...)
	if job.sets.PageOrder != nil {
		codec.SortPages(files, job.sets.PageOrder)
	} else if job.sets.SortNumeric {
		codec.SortPages(files, nil)
	}
	sources := make([]pageSource, len(files))
	for i, f := range files {
		sources[i] = pageSource{file: f}
	}
	job.setMeta("total_pages", len(files))
	return sources, nil
}

// extract decodes or renders every page with bounded parallelism.
// pages[i] always holds page i regardless of completion order.
func (o *Orchestrator) extract(ctx context.Context, job *documentJob, sources []pageSource) ([]*raster.PageImage, error) {
	if err := o.setStage(ctx, job, StateExtracting, progressExtractStart, "extracting pages"); err != nil {
		return nil, err
	}
	t0 := time.Now()
	pages := make([]*raster.PageImage, len(sources))
	var done int64
	err := o.forEachPage(ctx, len(sources), func(ctx context.Context, i int) error {
		img, err := o.loadPage(job, sources[i])
		if err != nil {
			return err
		}
		pages[i] = img
		n := atomic.AddInt64(&done, 1)
		o.setProgress(ctx, job, interpolate(progressExtractStart, progressExtractEnd, int(n), len(sources)), "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("extracting", time.Since(t0))
	log.Debug().Str("job_id", job.id).Int("pages", len(pages)).Int64("duration_ms", time.Since(t0).Milliseconds()).Msg("Pages extracted")
	return pages, nil
}

func (o *Orchestrator) loadPage(job *documentJob, src pageSource) (*raster.PageImage, error) {
	var (
		img *raster.PageImage
		err error
	)
	if src.file != "" {
		img, err = raster.DecodeFile(src.file)
		if err != nil {
			if errors.Is(err, raster.ErrUnsupportedFormat) {
				return nil, &EncodingError{Reason: fmt.Sprintf("unsupported page format %q", filepath.Base(src.file)), Err: err}
			}
			return nil, &InvalidInputError{Reason: fmt.Sprintf("malformed page raster %q", filepath.Base(src.file)), Err: err}
		}
	} else {
		img, err = raster.RenderPage(job.req.PDFPath, src.page, job.sets.DPI)
		if err != nil {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("failed to render page %d", src.page+1), Err: err}
		}
	}
	if o.cfg.DownscalePixels > 0 {
		img = img.Downscale(o.cfg.DownscalePixels)
	}
	if o.cfg.MaxPixels > 0 && img.Pixels() > o.cfg.MaxPixels {
		return nil, &ResourceExhaustedError{Budget: "pixels", Err: fmt.Errorf("page has %d pixels, limit %d", img.Pixels(), o.cfg.MaxPixels)}
	}
	return img, nil
}

// sample builds the document palette. Page-scoped mode defers palette
// construction to the quantize stage and returns nil.
func (o *Orchestrator) sample(ctx context.Context, job *documentJob, pages []*raster.PageImage) (*palette.Palette, error) {
	if err := o.setStage(ctx, job, StateSampling, progressSampling, "sampling colors"); err != nil {
		return nil, err
	}
	t0 := time.Now()
	if !job.sets.GlobalPalette {
		metrics.ObserveStage("sampling", time.Since(t0))
		return nil, nil
	}
	smp := sampler.New(job.seed)
	samples, err := smp.SamplePages(pages, job.sets.SampleFraction)
	if err != nil {
		return nil, &InvalidInputError{Reason: "no pixels to sample", Err: err}
	}
	pal, err := palette.Build(samples, paletteOptions(job.sets))
	if err != nil {
		return nil, err
	}
	job.setMeta("palette_colors", pal.Len())
	metrics.ObservePalette(pal.Len())
	o.setProgress(ctx, job, progressPaletteDone, "palette ready")
	metrics.ObserveStage("sampling", time.Since(t0))
	log.Debug().Str("job_id", job.id).Int("samples", len(samples)).Int("colors", pal.Len()).Msg("Palette built")
	return pal, nil
}

func paletteOptions(s Settings) palette.Options {
	return palette.Options{
		NumColors:    s.NumColors,
		SatThreshold: s.SatThreshold,
		ValThreshold: s.ValThreshold,
		Saturate:     s.Saturate,
		WhiteBG:      s.WhiteBG,
	}
}

// quantize maps every page onto its palette and writes the indexed PNG
// artifacts. Page rasters are released as soon as they are encoded.
func (o *Orchestrator) quantize(ctx context.Context, job *documentJob, sources []pageSource, pages []*raster.PageImage, global *palette.Palette, jobDir string) ([]string, Stats, error) {
	if err := o.setStage(ctx, job, StateQuantizing, progressQuantStart, "quantizing pages"); err != nil {
		return nil, Stats{}, err
	}
	t0 := time.Now()
	pageFiles := make([]string, len(pages))
	pageStats := make([]PageStat, len(pages))
	var done int64
	err := o.forEachPage(ctx, len(pages), func(ctx context.Context, i int) error {
		pal := global
		if pal == nil {
			var err error
			pal, err = o.pagePalette(job, pages[i], i)
			if err != nil {
				return err
			}
		}
		q, err := quant.Apply(pages[i], pal)
		if err != nil {
			return err
		}
		data, err := codec.EncodePNG(q)
		if err != nil {
			return &EncodingError{Reason: fmt.Sprintf("failed to encode page %d", i+1), Err: err}
		}
		path := filepath.Join(jobDir, fmt.Sprintf("page_%04d.png", i+1))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return &EncodingError{Reason: fmt.Sprintf("failed to write page %d", i+1), Err: err}
		}
		stat := PageStat{
			Page:           i + 1,
			File:           filepath.Base(path),
			OriginalBytes:  originalBytes(sources[i], pages[i]),
			OptimizedBytes: int64(len(data)),
			Colors:         pal.Len(),
		}
		pageStats[i] = stat
		pageFiles[i] = path
		pages[i] = nil
		if o.deps.Pages != nil {
			if err := o.deps.Pages.SavePage(ctx, job.id, stat); err != nil {
				log.Warn().Err(err).Str("job_id", job.id).Int("page", stat.Page).Msg("Failed to store page stats")
			}
		}
		metrics.IncPage("success")
		metrics.AddPageBytes(stat.OriginalBytes, stat.OptimizedBytes)
		n := atomic.AddInt64(&done, 1)
		o.setProgress(ctx, job, interpolate(progressQuantStart, progressQuantEnd, int(n), len(pages)), "")
		return nil
	})
	if err != nil {
		return nil, Stats{}, err
	}
	stats := Stats{Pages: len(pages), PageStats: pageStats}
	for _, st := range pageStats {
		stats.OriginalBytes += st.OriginalBytes
		stats.OptimizedBytes += st.OptimizedBytes
	}
	metrics.ObserveStage("quantizing", time.Since(t0))
	log.Debug().Str("job_id", job.id).Int("pages", len(pages)).Int64("duration_ms", time.Since(t0).Milliseconds()).Msg("Pages quantized")
	return pageFiles, stats, nil
}

// pagePalette samples and clusters a single page when palettes are page
// scoped. Offsetting the seed by the page index keeps pages
// deterministic and distinct from each other.
func (o *Orchestrator) pagePalette(job *documentJob, img *raster.PageImage, page int) (*palette.Palette, error) {
	smp := sampler.New(job.seed + int64(page))
	samples, err := smp.SamplePages([]*raster.PageImage{img}, job.sets.SampleFraction)
	if err != nil {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("no pixels to sample on page %d", page+1), Err: err}
	}
	pal, err := palette.Build(samples, paletteOptions(job.sets))
	if err != nil {
		return nil, err
	}
	metrics.ObservePalette(pal.Len())
	return pal, nil
}

// originalBytes measures the page source: file size for raster inputs,
// the raw RGB buffer for pages rendered out of a PDF.
func originalBytes(src pageSource, img *raster.PageImage) int64 {
	if src.file != "" {
		if fi, err := os.Stat(src.file); err == nil {
			return fi.Size()
		}
	}
	return int64(len(img.Pix))
}

// assemble writes the final document, verifies it and records stats.
func (o *Orchestrator) assemble(ctx context.Context, job *documentJob, pageFiles []string, stats Stats, jobDir string) error {
	if err := o.setStage(ctx, job, StateAssembling, progressAssembling, "assembling document"); err != nil {
		return err
	}
	t0 := time.Now()
	outPath := job.req.OutPath
	if outPath == "" {
		outPath = filepath.Join(jobDir, "optimized.pdf")
	}
	in := codec.AssembleInput{
		PageFiles:  pageFiles,
		CoverFiles: job.req.CoverFiles,
		CoverPDF:   job.req.CoverPDF,
		OutPath:    outPath,
	}
	if err := codec.Assemble(in); err != nil {
		if errors.Is(err, codec.ErrNoPages) {
			return err
		}
		return &EncodingError{Reason: "failed to assemble document", Err: err}
	}
	info, err := codec.Probe(outPath)
	if err != nil {
		return &EncodingError{Reason: "assembled document failed verification", Err: err}
	}
	stats.OutputBytes = info.Bytes
	stats.CoverPages = info.Pages - stats.Pages

	if o.deps.Artifacts != nil {
		key := job.id + "/" + filepath.Base(outPath)
		url, err := o.deps.Artifacts.Upload(ctx, outPath, key)
		if err != nil {
			return &EncodingError{Reason: "failed to upload artifact", Err: err}
		}
		job.setMeta("artifact_url", url)
	}
	metrics.ObserveStage("assembling", time.Since(t0))
	return o.complete(job, stats, outPath)
}

// setStage moves the job to the next state and stores the snapshot. The
// lock is held across the store write so snapshots reach the store in
// the order they were taken.
func (o *Orchestrator) setStage(ctx context.Context, job *documentJob, next State, progress int, msg string) error {
	job.mu.Lock()
	defer job.mu.Unlock()
	if !job.state.CanTransition(next) {
		return &UnrecoverableError{Reason: fmt.Sprintf("illegal transition %s -> %s", job.state, next)}
	}
	job.state = next
	job.progress = progress
	job.message = msg
	if err := o.deps.Status.Set(ctx, job.id, job.snapshotLocked()); err != nil {
		return fmt.Errorf("failed to store status: %w", err)
	}
	return nil
}

// setProgress advances the progress number within a stage. Regressions
// are dropped so late writes from parallel page workers cannot move the
// job backwards; store errors only log because progress is advisory.
func (o *Orchestrator) setProgress(ctx context.Context, job *documentJob, progress int, msg string) {
	job.mu.Lock()
	defer job.mu.Unlock()
	if progress <= job.progress {
		return
	}
	job.progress = progress
	if msg != "" {
		job.message = msg
	}
	if err := o.deps.Status.Set(ctx, job.id, job.snapshotLocked()); err != nil {
		log.Warn().Err(err).Str("job_id", job.id).Msg("Failed to store progress")
	}
}

// complete moves the job to Completed with its final stats. Like fail,
// the terminal store write uses a detached context and only logs on
// error: the artifacts already exist, so the job outcome stands even
// when the status store is down.
func (o *Orchestrator) complete(job *documentJob, stats Stats, outPath string) error {
	job.mu.Lock()
	if !job.state.CanTransition(StateCompleted) {
		cur := job.state
		job.mu.Unlock()
		return &UnrecoverableError{Reason: fmt.Sprintf("illegal transition %s -> %s", cur, StateCompleted)}
	}
	now := time.Now()
	job.state = StateCompleted
	job.progress = progressDone
	job.message = "document optimized"
	job.end = &now
	job.meta["out_path"] = outPath
	job.meta["pages"] = stats.Pages
	job.meta["cover_pages"] = stats.CoverPages
	job.meta["original_bytes"] = stats.OriginalBytes
	job.meta["optimized_bytes"] = stats.OptimizedBytes
	job.meta["output_bytes"] = stats.OutputBytes
	job.meta["compression_percent"] = stats.CompressionPercent()
	snap := job.snapshotLocked()
	dur := now.Sub(job.start)
	job.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.deps.Status.Set(ctx, job.id, snap); err != nil {
		log.Error().Err(err).Str("job_id", job.id).Msg("Failed to store terminal status")
	}
	log.Info().Str("job_id", job.id).Int("pages", stats.Pages).Int64("output_bytes", stats.OutputBytes).Float64("compression_percent", stats.CompressionPercent()).Int64("duration_ms", dur.Milliseconds()).Msg("Job completed")
	metrics.JobFinished("completed", dur)
	return nil
}

// fail moves the job to Failed from any non-terminal state. The store
// write uses a detached context so an expired job deadline cannot block
// the terminal snapshot.
func (o *Orchestrator) fail(job *documentJob, cause error) {
	kind := Classify(cause)
	job.mu.Lock()
	if job.state.Terminal() {
		job.mu.Unlock()
		return
	}
	from := job.state
	now := time.Now()
	job.state = StateFailed
	job.end = &now
	job.message = cause.Error()
	job.meta["error_kind"] = string(kind)
	snap := job.snapshotLocked()
	dur := now.Sub(job.start)
	job.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.deps.Status.Set(ctx, job.id, snap); err != nil {
		log.Error().Err(err).Str("job_id", job.id).Msg("Failed to store terminal status")
	}
	log.Error().Err(cause).Str("job_id", job.id).Str("from", string(from)).Str("kind", string(kind)).Msg("Job failed")
	metrics.JobFinished(string(kind), dur)
}

// forEachPage runs fn for every page index with bounded parallelism,
// stopping at the first error. fn writes results into caller-owned
// slots, so page order never depends on completion order.
func (o *Orchestrator) forEachPage(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}
	for i := 0; i < n; i++ {
		release, err := o.slots.Acquire(ctx)
		if err != nil {
			setErr(err)
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer release()
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx, i); err != nil {
				setErr(err)
			}
		}(i)
	}
	wg.Wait()
	mu.Lock()
	err := firstErr
	mu.Unlock()
	if err != nil {
		return err
	}
	// cancel() has not run yet, so a non-nil error here can only come
	// from the parent context.
	return ctx.Err()
}

func interpolate(lo, hi, done, total int) int {
	if total <= 0 {
		return hi
	}
	return lo + (hi-lo)*done/total
}
