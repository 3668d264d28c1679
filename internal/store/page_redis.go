package store

import (
    "context"
    "fmt"

    redis "github.com/redis/go-redis/v9"
)

// PageRecord captures one page's size outcome.
type PageRecord struct {
    OriginalBytes  int64 `json:"original_bytes"`
    OptimizedBytes int64 `json:"optimized_bytes"`
    Colors         int   `json:"colors"`
}

// PageStats persists per-page compression outcomes in Redis, keyed
// under the owning job, so dashboards can break a job down by page.
type PageStats struct {
    client *redis.Client
}

func NewPageStats(redisURL string) (*PageStats, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, err }
    c := redis.NewClient(opt)
    if err := c.Ping(context.Background()).Err(); err != nil { return nil, err }
    return &PageStats{client: c}, nil
}

func (s *PageStats) Close() error { return s.client.Close() }

func (s *PageStats) pageKey(jobID string, page int) string {
    return fmt.Sprintf("job:%s:page:%d", jobID, page)
}

// SavePage records one page's outcome. Pages are 1-based.
func (s *PageStats) SavePage(ctx context.Context, jobID string, page int, rec PageRecord) error {
    m := map[string]interface{}{
        "original_bytes":  rec.OriginalBytes,
        "optimized_bytes": rec.OptimizedBytes,
        "colors":          rec.Colors,
    }
    return s.client.HSet(ctx, s.pageKey(jobID, page), m).Err()
}

// GetPage returns one page's record; ok is false when nothing was stored.
func (s *PageStats) GetPage(ctx context.Context, jobID string, page int) (PageRecord, bool, error) {
    res, err := s.client.HGetAll(ctx, s.pageKey(jobID, page)).Result()
    if err != nil { return PageRecord{}, false, err }
    if len(res) == 0 { return PageRecord{}, false, nil }
    rec := PageRecord{}
    fmt.Sscan(res["original_bytes"], &rec.OriginalBytes)
    fmt.Sscan(res["optimized_bytes"], &rec.OptimizedBytes)
    fmt.Sscan(res["colors"], &rec.Colors)
    return rec, true, nil
}

// Totals sums stored records for pages 1..total.
func (s *PageStats) Totals(ctx context.Context, jobID string, total int) (original, optimized int64, err error) {
    for i := 1; i <= total; i++ {
        rec, ok, err := s.GetPage(ctx, jobID, i)
        if err != nil { return original, optimized, err }
        if !ok { continue }
        original += rec.OriginalBytes
        optimized += rec.OptimizedBytes
    }
    return original, optimized, nil
}
