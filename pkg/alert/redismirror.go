package alert

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisMirrorKey = "netopshub:alert:dedup_index"

// RedisMirror mirrors the active-alert dedup index into Redis so a
// second Manager instance sharing the same Redis keyspace can warm its
// own index on startup via LoadMirror. Every call is best-effort: a
// Redis failure never bubbles past Store/Load into the caller's hot
// path.
type RedisMirror struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisMirror creates a mirror against addr (e.g. "localhost:6379").
func NewRedisMirror(addr string) *RedisMirror {
	return &RedisMirror{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		timeout: 2 * time.Second,
	}
}

// Store writes one dedup-key/alert-id pair into the mirror hash.
func (r *RedisMirror) Store(dedupKey, alertID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.HSet(ctx, redisMirrorKey, dedupKey, alertID).Err()
}

// Load reads the full mirror hash back.
func (r *RedisMirror) Load() (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.HGetAll(ctx, redisMirrorKey).Result()
}

// Close releases the underlying Redis connection pool.
func (r *RedisMirror) Close() error {
	return r.client.Close()
}
