package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/pagepress/internal/metrics"
	"github.com/local/pagepress/internal/pipeline"
	"github.com/local/pagepress/internal/statuscheck"
	"github.com/local/pagepress/internal/storage"
	"github.com/local/pagepress/internal/store"
)

var (
	optimizePDF         string
	optimizeCovers      []string
	optimizeCoverPDF    string
	optimizeOut         string
	optimizeColors      int
	optimizeFraction    float64
	optimizeSat         float64
	optimizeVal         float64
	optimizeSaturate    bool
	optimizeWhiteBG     bool
	optimizeGlobal      bool
	optimizeDPI         int
	optimizeSeed        int64
	optimizeSortNumeric bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [page images | directory]",
	Short: "Quantize a scanned document and reassemble it as a PDF",
	Long: `Optimize a scanned document: every content page is reduced to a small
color palette and the result is assembled into a PDF, covers first.

Pages come either from image files (positional arguments, or a single
directory that is scanned for images) or from a source PDF rasterized
at --dpi.

Examples:
  pagepress optimize scans/                   # a directory of page images
  pagepress optimize p1.png p2.png --out doc.pdf
  pagepress optimize --pdf scan.pdf --colors 4 --white-bg
  pagepress optimize scans/ --cover cover.jpg --global-palette=false`,
	RunE: runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.StringVar(&optimizePDF, "pdf", "", "source PDF rasterized instead of page images")
	f.StringSliceVar(&optimizeCovers, "cover", nil, "cover image placed before the content (repeatable)")
	f.StringVar(&optimizeCoverPDF, "cover-pdf", "", "cover PDF merged in front of the content")
	f.StringVarP(&optimizeOut, "out", "o", "", "output PDF path (default: inside the job work dir)")
	f.IntVar(&optimizeColors, "colors", 8, "palette size, background included")
	f.Float64Var(&optimizeFraction, "fraction", 0.05, "fraction of pixels sampled for palette construction")
	f.Float64Var(&optimizeSat, "sat-threshold", 0.20, "saturation below which a pixel counts as background-like")
	f.Float64Var(&optimizeVal, "value-threshold", 0.25, "value above which a pixel counts as background-like")
	f.BoolVar(&optimizeSaturate, "saturate", true, "push foreground palette entries to full saturation")
	f.BoolVar(&optimizeWhiteBG, "white-bg", false, "replace the detected background with pure white")
	f.BoolVar(&optimizeGlobal, "global-palette", true, "share one palette across the whole document")
	f.IntVar(&optimizeDPI, "dpi", 150, "render resolution for PDF sources")
	f.Int64Var(&optimizeSeed, "seed", 0, "sampling seed; 0 picks one and records it on the job")
	f.BoolVar(&optimizeSortNumeric, "sort-numeric", true, "order input files by embedded page numbers")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pages, err := collectPages(args)
	if err != nil {
		return err
	}
	if optimizePDF == "" && len(pages) == 0 {
		return fmt.Errorf("nothing to optimize: pass page images, a directory of them, or --pdf")
	}

	deps, checker, cleanup, err := buildDependencies(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sum := checker.Summary(ctx)
	log.Debug().
		Str("redis", sum.Redis.Message).
		Str("storage", sum.Storage.Message).
		Str("work_dir", sum.WorkDir.Message).
		Str("renderer", sum.Renderer.Message).
		Msg("dependency status")

	orch := pipeline.New(pipeline.Config{
		WorkDir:         workDir(),
		JobWorkers:      cfg.Worker.JobConcurrency,
		PageWorkers:     cfg.Worker.PageConcurrency,
		QueueSize:       cfg.Worker.QueueSize,
		JobTimeout:      cfg.Worker.JobTimeout,
		MaxPages:        cfg.Limits.MaxPages,
		MaxPixels:       cfg.Limits.MaxPixels,
		DownscalePixels: cfg.Limits.DownscalePixels,
	}, deps)

	if cfg.Server.MetricsAddr != "" {
		stop := serveMetrics(cfg.Server.MetricsAddr, checker)
		defer stop()
	}

	jobID, err := orch.Start(ctx, pipeline.Request{
		PageFiles:  pages,
		PDFPath:    optimizePDF,
		CoverFiles: optimizeCovers,
		CoverPDF:   optimizeCoverPDF,
		OutPath:    optimizeOut,
		Settings:   settingsFromFlags(cmd),
	})
	if err != nil {
		return err
	}

	st, err := waitForJob(ctx, orch, jobID)
	if err != nil {
		return err
	}
	orch.Close()

	if st.State == pipeline.StateFailed {
		if kind, ok := st.Metadata["error_kind"].(string); ok {
			return fmt.Errorf("job failed (%s): %s", kind, st.Message)
		}
		return fmt.Errorf("job failed: %s", st.Message)
	}
	printReport(cmd.OutOrStdout(), st)
	return nil
}

// settingsFromFlags starts from the environment-derived defaults and
// overlays every flag the user set explicitly.
func settingsFromFlags(cmd *cobra.Command) *pipeline.Settings {
	s := pipeline.Settings{
		NumColors:      cfg.Optimize.NumColors,
		SampleFraction: cfg.Optimize.SampleFraction,
		SatThreshold:   cfg.Optimize.SatThreshold,
		ValThreshold:   cfg.Optimize.ValThreshold,
		Saturate:       cfg.Optimize.Saturate,
		WhiteBG:        cfg.Optimize.WhiteBG,
		GlobalPalette:  cfg.Optimize.GlobalPalette,
		DPI:            cfg.Optimize.DPI,
		SortNumeric:    cfg.Optimize.SortNumeric,
		SampleSeed:     optimizeSeed,
	}
	fl := cmd.Flags()
	if fl.Changed("colors") {
		s.NumColors = optimizeColors
	}
	if fl.Changed("fraction") {
		s.SampleFraction = optimizeFraction
	}
	if fl.Changed("sat-threshold") {
		s.SatThreshold = optimizeSat
	}
	if fl.Changed("value-threshold") {
		s.ValThreshold = optimizeVal
	}
	if fl.Changed("saturate") {
		s.Saturate = optimizeSaturate
	}
	if fl.Changed("white-bg") {
		s.WhiteBG = optimizeWhiteBG
	}
	if fl.Changed("global-palette") {
		s.GlobalPalette = optimizeGlobal
	}
	if fl.Changed("dpi") {
		s.DPI = optimizeDPI
	}
	if fl.Changed("sort-numeric") {
		s.SortNumeric = optimizeSortNumeric
	}
	return &s
}

// collectPages expands a single directory argument into the image files
// inside it; explicit file arguments pass through untouched.
func collectPages(args []string) ([]string, error) {
	if len(args) == 1 {
		st, err := os.Stat(args[0])
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			return pageImagesIn(args[0])
		}
	}
	return args, nil
}

func pageImagesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no page images found in %s", dir)
	}
	return files, nil
}

func workDir() string {
	if cfg.Worker.WorkDir != "" {
		return cfg.Worker.WorkDir
	}
	return filepath.Join(os.TempDir(), "pagepress")
}

// buildDependencies wires the status store and the optional artifact
// bucket from configuration. On error it closes whatever it opened; on
// success the returned cleanup does.
func buildDependencies(ctx context.Context) (pipeline.Dependencies, *statuscheck.Checker, func(), error) {
	var deps pipeline.Dependencies
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	checkOpts := statuscheck.Options{WorkDir: workDir()}

	if cfg.Store.UseRedis {
		rs, err := store.NewRedisStatus(cfg.Store.RedisURL)
		if err != nil {
			return deps, nil, nil, fmt.Errorf("failed to init redis status store: %w", err)
		}
		closers = append(closers, func() { _ = rs.Close() })
		deps.Status = pipeline.NewRedisStatusAdapter(rs)
		checkOpts.Redis = rs

		ps, err := store.NewPageStats(cfg.Store.RedisURL)
		if err != nil {
			cleanup()
			return deps, nil, nil, fmt.Errorf("failed to init page stats store: %w", err)
		}
		closers = append(closers, func() { _ = ps.Close() })
		deps.Pages = pipeline.NewPageStatsAdapter(ps)
	} else {
		deps.Status = pipeline.NewMemoryStatusAdapter(store.NewMemoryStatus())
	}

	if cfg.Storage.Upload {
		art, err := storage.New(ctx, storage.Config{
			Bucket:     cfg.Storage.Bucket,
			Prefix:     cfg.Storage.Prefix,
			Region:     cfg.Storage.Region,
			Endpoint:   cfg.Storage.Endpoint,
			AccessKey:  cfg.Storage.AccessKey,
			SecretKey:  cfg.Storage.SecretKey,
			Passphrase: cfg.Storage.Passphrase,
		})
		if err != nil {
			cleanup()
			return deps, nil, nil, fmt.Errorf("failed to init artifact storage: %w", err)
		}
		deps.Artifacts = art
		checkOpts.Bucket = art
	}

	return deps, statuscheck.New(checkOpts), cleanup, nil
}

// waitForJob polls until the job reaches a terminal state, logging
// stage changes along the way.
func waitForJob(ctx context.Context, orch *pipeline.Orchestrator, jobID string) (pipeline.Status, error) {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	var last pipeline.State
	for {
		select {
		case <-ctx.Done():
			return pipeline.Status{}, fmt.Errorf("interrupted while waiting for job %s", jobID)
		case <-t.C:
		}
		st, err := orch.Status(ctx, jobID)
		if err != nil {
			return pipeline.Status{}, err
		}
		if st.State != last {
			log.Info().Str("job_id", jobID).Str("state", string(st.State)).Int("progress", st.Progress).Msg("job progress")
			last = st.State
		}
		if st.State.Terminal() {
			return st, nil
		}
	}
}

// serveMetrics exposes prometheus metrics and health probes while the
// job runs. The returned stop function shuts the listener down.
func serveMetrics(addr string, checker *statuscheck.Checker) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if checker.Healthy(r.Context()) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "degraded", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(checker.Summary(r.Context()))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info().Msgf("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
}
