package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	// Force defaults even when the outer environment sets these.
	for _, k := range []string{
		"LOG_LEVEL", "AXIOM_DATASET", "NUM_COLORS", "SAMPLE_FRACTION",
		"VALUE_THRESHOLD", "JOB_CONCURRENCY", "JOB_QUEUE_SIZE", "JOB_TIMEOUT",
		"MAX_PAGES", "USE_REDIS", "S3_PREFIX",
	} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Axiom.Dataset != "dev_pagepress" {
		t.Errorf("Axiom.Dataset = %q, want dev_pagepress", cfg.Axiom.Dataset)
	}
	if cfg.Optimize.NumColors != 8 {
		t.Errorf("Optimize.NumColors = %d, want 8", cfg.Optimize.NumColors)
	}
	if cfg.Optimize.SampleFraction != 0.05 {
		t.Errorf("Optimize.SampleFraction = %v, want 0.05", cfg.Optimize.SampleFraction)
	}
	if cfg.Optimize.ValThreshold != 0.25 {
		t.Errorf("Optimize.ValThreshold = %v, want 0.25", cfg.Optimize.ValThreshold)
	}
	if cfg.Worker.JobConcurrency != 2 {
		t.Errorf("Worker.JobConcurrency = %d, want 2", cfg.Worker.JobConcurrency)
	}
	if cfg.Worker.QueueSize != 64 {
		t.Errorf("Worker.QueueSize = %d, want 64", cfg.Worker.QueueSize)
	}
	if cfg.Worker.JobTimeout != 10*time.Minute {
		t.Errorf("Worker.JobTimeout = %v, want 10m", cfg.Worker.JobTimeout)
	}
	if cfg.Limits.MaxPages != 2000 {
		t.Errorf("Limits.MaxPages = %d, want 2000", cfg.Limits.MaxPages)
	}
	if cfg.Store.UseRedis {
		t.Error("Store.UseRedis should default to false")
	}
	if cfg.Storage.Prefix != "pagepress" {
		t.Errorf("Storage.Prefix = %q, want pagepress", cfg.Storage.Prefix)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NUM_COLORS", "4")
	t.Setenv("WHITE_BG", "yes")
	t.Setenv("JOB_TIMEOUT", "30s")
	t.Setenv("USE_REDIS", "1")
	t.Setenv("AXIOM_DATASET", "prod")
	t.Setenv("MAX_PAGES", "not-a-number")

	cfg := FromEnv()

	if cfg.Optimize.NumColors != 4 {
		t.Errorf("Optimize.NumColors = %d, want 4", cfg.Optimize.NumColors)
	}
	if !cfg.Optimize.WhiteBG {
		t.Error("WHITE_BG=yes should enable WhiteBG")
	}
	if cfg.Worker.JobTimeout != 30*time.Second {
		t.Errorf("Worker.JobTimeout = %v, want 30s", cfg.Worker.JobTimeout)
	}
	if !cfg.Store.UseRedis {
		t.Error("USE_REDIS=1 should enable the redis store")
	}
	if cfg.Axiom.Dataset != "prod_pagepress" {
		t.Errorf("Axiom.Dataset = %q, want prod_pagepress", cfg.Axiom.Dataset)
	}
	if cfg.Limits.MaxPages != 2000 {
		t.Errorf("unparseable MAX_PAGES should keep the default, got %d", cfg.Limits.MaxPages)
	}
}

func TestParseBool(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"Yes", true},
		{" on ", true},
		{"0", false},
		{"false", false},
		{"", false},
		{"maybe", false},
	}
	for _, c := range cases {
		if got := parseBool(c.in); got != c.want {
			t.Errorf("parseBool(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
