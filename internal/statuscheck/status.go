package statuscheck

import (
    "context"
    "errors"
    "os"
    "time"

    "github.com/local/pagepress/internal/raster"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
    Ping(ctx context.Context) error
}

// BucketChecker models the artifact store health probe.
type BucketChecker interface {
    Health(ctx context.Context) error
}

// Checker aggregates health checks for the subsystems a deployment
// depends on.
type Checker struct {
    redis   RedisPinger
    bucket  BucketChecker
    workDir string
}

// Options configures the Checker. Nil fields report as not configured
// rather than failing.
type Options struct {
    Redis   RedisPinger
    Bucket  BucketChecker
    WorkDir string
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
    Redis    Status `json:"redis"`
    Storage  Status `json:"storage"`
    WorkDir  Status `json:"work_dir"`
    Renderer Status `json:"renderer"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
    return &Checker{
        redis:   opts.Redis,
        bucket:  opts.Bucket,
        workDir: opts.WorkDir,
    }
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
    return Summary{
        Redis:    c.checkRedis(ctx),
        Storage:  c.checkStorage(ctx),
        WorkDir:  c.checkWorkDir(),
        Renderer: c.checkRenderer(),
    }
}

// Healthy reports whether every configured subsystem is up.
func (c *Checker) Healthy(ctx context.Context) bool {
    s := c.Summary(ctx)
    for _, st := range []Status{s.Redis, s.Storage, s.WorkDir, s.Renderer} {
        if !st.OK && st.Message != "not configured" {
            return false
        }
    }
    return true
}

func (c *Checker) checkRedis(ctx context.Context) Status {
    if c.redis == nil {
        return Status{OK: false, Message: "not configured"}
    }
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := c.redis.Ping(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkStorage(ctx context.Context) Status {
    if c.bucket == nil {
        return Status{OK: false, Message: "not configured"}
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := c.bucket.Health(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkWorkDir() Status {
    if c.workDir == "" {
        return Status{OK: false, Message: "not configured"}
    }
    if err := os.MkdirAll(c.workDir, 0o755); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    probe, err := os.CreateTemp(c.workDir, ".probe-*")
    if err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    name := probe.Name()
    probe.Close()
    os.Remove(name)
    return Status{OK: true, Message: "Writable"}
}

func (c *Checker) checkRenderer() Status {
    if !raster.HasOpener() {
        return Status{OK: false, Message: "render engine not linked"}
    }
    return Status{OK: true, Message: "Available"}
}

func trimError(err error) string {
    if err == nil {
        return ""
    }
    var netErr interface{ Timeout() bool }
    if errors.As(err, &netErr) && netErr.Timeout() {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}
