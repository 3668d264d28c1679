package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    jobsTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pagepress",
            Name:      "jobs_total",
            Help:      "Total jobs by terminal result (completed or an error kind)",
        },
        []string{"result"},
    )

    jobLatency = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "pagepress",
            Name:      "job_duration_seconds",
            Help:      "Wall time from job start to a terminal state",
            Buckets:   prometheus.ExponentialBuckets(0.25, 2, 12),
        },
    )

    stageLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "pagepress",
            Name:      "stage_duration_seconds",
            Help:      "Duration of pipeline stages by stage name",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"stage"},
    )

    pagesProcessed = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pagepress",
            Name:      "pages_processed_total",
            Help:      "Total pages quantized by result (success, failed)",
        },
        []string{"result"},
    )

    bytesTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pagepress",
            Name:      "page_bytes_total",
            Help:      "Page byte volume by kind (original, optimized)",
        },
        []string{"kind"},
    )

    activeJobs = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "pagepress",
            Name:      "active_jobs",
            Help:      "Jobs accepted and not yet in a terminal state",
        },
    )

    paletteSize = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "pagepress",
            Name:      "palette_colors",
            Help:      "Distinct colors in built palettes",
            Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
        },
    )
)

// Init registers collectors.
func Init() {
    prometheus.MustRegister(jobsTotal, jobLatency, stageLatency, pagesProcessed, bytesTotal, activeJobs, paletteSize)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func JobStarted() { activeJobs.Inc() }

func JobFinished(result string, dur time.Duration) {
    activeJobs.Dec()
    jobsTotal.WithLabelValues(result).Inc()
    jobLatency.Observe(dur.Seconds())
}

func ObserveStage(stage string, dur time.Duration) {
    stageLatency.WithLabelValues(stage).Observe(dur.Seconds())
}

func IncPage(result string) { pagesProcessed.WithLabelValues(result).Inc() }

func AddPageBytes(original, optimized int64) {
    bytesTotal.WithLabelValues("original").Add(float64(original))
    bytesTotal.WithLabelValues("optimized").Add(float64(optimized))
}

func ObservePalette(colors int) { paletteSize.Observe(float64(colors)) }
