package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// WorkerConfig bounds the job runner pool.
type WorkerConfig struct {
    WorkDir         string
    JobConcurrency  int
    PageConcurrency int
    QueueSize       int
    JobTimeout      time.Duration
}

// LimitsConfig holds the per-document resource budgets.
type LimitsConfig struct {
    MaxPages        int
    MaxPixels       int
    DownscalePixels int
}

// OptimizeConfig carries the default optimization settings applied when
// a request leaves them unset.
type OptimizeConfig struct {
    NumColors      int
    SampleFraction float64
    SatThreshold   float64
    ValThreshold   float64
    Saturate       bool
    WhiteBG        bool
    GlobalPalette  bool
    DPI            int
    SortNumeric    bool
}

// StoreConfig defines status store connectivity.
type StoreConfig struct {
    UseRedis bool
    RedisURL string
}

// StorageConfig defines the artifact bucket.
type StorageConfig struct {
    Upload     bool
    Bucket     string
    Prefix     string
    Region     string
    Endpoint   string
    AccessKey  string
    SecretKey  string
    Passphrase string
}

// ServerConfig holds the optional observability listener.
type ServerConfig struct {
    MetricsAddr string
}

// Config is the top-level configuration.
type Config struct {
    Logging  LoggingConfig
    Axiom    AxiomConfig
    Worker   WorkerConfig
    Limits   LimitsConfig
    Optimize OptimizeConfig
    Store    StoreConfig
    Storage  StorageConfig
    Server   ServerConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/pagepress.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_pagepress",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    // Worker defaults
    cfg.Worker = WorkerConfig{
        WorkDir:         getEnv("WORK_DIR", ""),
        JobConcurrency:  parseInt(getEnv("JOB_CONCURRENCY", "2"), 2),
        PageConcurrency: parseInt(getEnv("PAGE_CONCURRENCY", "0"), 0),
        QueueSize:       parseInt(getEnv("JOB_QUEUE_SIZE", "64"), 64),
        JobTimeout:      parseDuration(getEnv("JOB_TIMEOUT", "10m"), 10*time.Minute),
    }

    // Resource budgets. Zero disables a budget.
    cfg.Limits = LimitsConfig{
        MaxPages:        parseInt(getEnv("MAX_PAGES", "2000"), 2000),
        MaxPixels:       parseInt(getEnv("MAX_PIXELS_PER_PAGE", "50000000"), 50000000),
        DownscalePixels: parseInt(getEnv("DOWNSCALE_PIXELS", "16000000"), 16000000),
    }

    // Optimization defaults
    cfg.Optimize = OptimizeConfig{
        NumColors:      parseInt(getEnv("NUM_COLORS", "8"), 8),
        SampleFraction: parseFloat(getEnv("SAMPLE_FRACTION", "0.05"), 0.05),
        SatThreshold:   parseFloat(getEnv("SAT_THRESHOLD", "0.20"), 0.20),
        ValThreshold:   parseFloat(getEnv("VALUE_THRESHOLD", "0.25"), 0.25),
        Saturate:       parseBool(getEnv("SATURATE", "true")),
        WhiteBG:        parseBool(getEnv("WHITE_BG", "false")),
        GlobalPalette:  parseBool(getEnv("GLOBAL_PALETTE", "true")),
        DPI:            parseInt(getEnv("RENDER_DPI", "150"), 150),
        SortNumeric:    parseBool(getEnv("SORT_NUMERIC", "true")),
    }

    // Status store defaults
    cfg.Store = StoreConfig{
        UseRedis: parseBool(getEnv("USE_REDIS", "0")),
        RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
    }

    // Artifact storage defaults
    cfg.Storage = StorageConfig{
        Upload:     parseBool(getEnv("UPLOAD_ARTIFACTS", "0")),
        Bucket:     getEnv("S3_BUCKET", ""),
        Prefix:     getEnv("S3_PREFIX", "pagepress"),
        Region:     getEnv("S3_REGION", ""),
        Endpoint:   getEnv("S3_ENDPOINT", ""),
        AccessKey:  getEnv("S3_ACCESS_KEY", ""),
        SecretKey:  getEnv("S3_SECRET_KEY", ""),
        Passphrase: getEnv("ARTIFACT_PASSPHRASE", ""),
    }

    cfg.Server = ServerConfig{
        MetricsAddr: getEnv("METRICS_ADDR", ""),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
