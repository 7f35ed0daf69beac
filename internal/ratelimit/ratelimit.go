// Package ratelimit throttles outbound collection requests so a poll
// collector does not overwhelm a monitored device or vendor API.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Config configures a Limiter.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the default limiter configuration used by poll
// collectors when a target does not specify its own rate.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 5, Burst: 10}
}

// Limiter wraps golang.org/x/time/rate.Limiter with a reset hook, so a
// collector can re-tune the rate after reading per-target configuration.
type Limiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
	config  Config
}

// New creates a Limiter from cfg, applying defaults for non-positive fields.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		config:  cfg,
	}
}

// Allow reports whether a request may proceed right now.
func (l *Limiter) Allow() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// Wait blocks until a request may proceed or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()
	return limiter.Wait(ctx)
}

// Reconfigure replaces the underlying limiter with one built from cfg.
func (l *Limiter) Reconfigure(cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = l.config.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = l.config.Burst
	}
	l.config = cfg
	l.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}

// Registry holds one Limiter per collection target, created lazily on
// first use so a fleet of devices does not need pre-registration.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	defaults Config
}

// NewRegistry creates a Registry applying defaults to any target that has
// not been explicitly configured.
func NewRegistry(defaults Config) *Registry {
	return &Registry{limiters: make(map[string]*Limiter), defaults: defaults}
}

// For returns the Limiter for a target key, creating one with the
// registry's defaults if this is the first request for that key.
func (r *Registry) For(key string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[key]; ok {
		return l
	}
	l := New(r.defaults)
	r.limiters[key] = l
	return l
}

// Configure sets or replaces the rate configuration for a specific target.
func (r *Registry) Configure(key string, cfg Config) {
	r.mu.Lock()
	l, ok := r.limiters[key]
	r.mu.Unlock()
	if !ok {
		l = r.For(key)
	}
	l.Reconfigure(cfg)
}

// Wait blocks until the target key's limiter admits a request or ctx is
// cancelled.
func (r *Registry) Wait(ctx context.Context, key string) error {
	return r.For(key).Wait(ctx)
}
