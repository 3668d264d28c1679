package store

import (
    "context"
    "encoding/json"
    "fmt"
    "sort"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// Snapshot is one consistent, point-in-time view of a job. Writers
// always store complete snapshots, so readers never observe a job
// mid-transition.
type Snapshot struct {
    State    string                 `json:"state"`
    Progress int                    `json:"progress"`
    Message  string                 `json:"message"`
    Start    *time.Time             `json:"start_time,omitempty"`
    End      *time.Time             `json:"end_time,omitempty"`
    Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RedisStatus persists job snapshots in Redis hashes so deployments
// with multiple readers can poll jobs owned by another process.
type RedisStatus struct {
    client *redis.Client
    keyNS  string
}

func NewRedisStatus(redisURL string) (*RedisStatus, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, err }
    c := redis.NewClient(opt)
    if err := c.Ping(context.Background()).Err(); err != nil { return nil, err }
    return &RedisStatus{client: c, keyNS: "job"}, nil
}

func (s *RedisStatus) key(jobID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, jobID) }

func (s *RedisStatus) indexKey() string { return s.keyNS + ":index" }

func (s *RedisStatus) Set(ctx context.Context, jobID string, st Snapshot) error {
    m := map[string]interface{}{
        "state":    st.State,
        "progress": st.Progress,
        "message":  st.Message,
    }
    if st.Start != nil { m["start"] = st.Start.Format(time.RFC3339Nano) }
    if st.End != nil { m["end"] = st.End.Format(time.RFC3339Nano) }
    if st.Metadata != nil {
        b, _ := json.Marshal(st.Metadata)
        m["metadata"] = string(b)
    }
    p := s.client.TxPipeline()
    p.SAdd(ctx, s.indexKey(), jobID)
    p.HSet(ctx, s.key(jobID), m)
    _, err := p.Exec(ctx)
    return err
}

func (s *RedisStatus) Get(ctx context.Context, jobID string) (Snapshot, bool, error) {
    res, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
    if err != nil { return Snapshot{}, false, err }
    if len(res) == 0 { return Snapshot{}, false, nil }
    st := Snapshot{}
    st.State = res["state"]
    st.Message = res["message"]
    if p, ok := res["progress"]; ok && p != "" {
        // ignore parse error; default 0
        var pi int
        fmt.Sscan(p, &pi)
        st.Progress = pi
    }
    if v := res["start"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { st.Start = &t }
    }
    if v := res["end"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { st.End = &t }
    }
    if v := res["metadata"]; v != "" {
        _ = json.Unmarshal([]byte(v), &st.Metadata)
    }
    return st, true, nil
}

// List returns every known job ID, sorted for stable output.
func (s *RedisStatus) List(ctx context.Context) ([]string, error) {
    ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
    if err != nil { return nil, err }
    sort.Strings(ids)
    return ids, nil
}

func (s *RedisStatus) Close() error { return s.client.Close() }

// Ping checks redis connectivity.
func (s *RedisStatus) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

// Client returns the underlying Redis client
func (s *RedisStatus) Client() *redis.Client { return s.client }
