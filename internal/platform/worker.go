package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/netopshub/netopshub/internal/logging"
)

// Worker runs fn on a fixed interval until stopped or ctx is cancelled.
// The serve command's SLA rollup job is driven by one of these.
type Worker struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	logger   *logging.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	mu       sync.Mutex
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error
	Logger   *logging.Logger
}

// NewWorker creates a Worker from cfg.
func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{
		name:     cfg.Name,
		interval: cfg.Interval,
		fn:       cfg.Fn,
		logger:   cfg.Logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the worker's run loop in a goroutine.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("worker %s already running", w.name)
	}
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Stop signals the worker to exit and blocks until it has.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
}

// IsRunning reports whether the worker's loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) run(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.fn(ctx); err != nil && w.logger != nil {
				w.logger.WithError(err).WithFields(map[string]interface{}{"worker": w.name}).Error("worker run failed")
			}
		}
	}
}

// WorkerGroup starts and stops a set of Workers together, the way a
// component's Start/Stop brings up all of its background jobs at once.
type WorkerGroup struct {
	workers []*Worker
	mu      sync.Mutex
}

// NewWorkerGroup creates an empty WorkerGroup.
func NewWorkerGroup() *WorkerGroup {
	return &WorkerGroup{}
}

// Add registers a worker with the group.
func (g *WorkerGroup) Add(w *Worker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.workers = append(g.workers, w)
}

// AddFunc builds a Worker from its parts, adds it to the group, and returns it.
func (g *WorkerGroup) AddFunc(name string, interval time.Duration, logger *logging.Logger, fn func(ctx context.Context) error) *Worker {
	w := NewWorker(WorkerConfig{Name: name, Interval: interval, Fn: fn, Logger: logger})
	g.Add(w)
	return w
}

// Start starts every worker in the group, rolling back any already-started
// worker if one fails to start.
func (g *WorkerGroup) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, w := range g.workers {
		if err := w.Start(ctx); err != nil {
			for _, started := range g.workers {
				if started.IsRunning() {
					started.Stop()
				}
			}
			return fmt.Errorf("start worker %s: %w", w.name, err)
		}
	}
	return nil
}

// Stop stops every worker in the group concurrently and waits for them all
// to finish.
func (g *WorkerGroup) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range g.workers {
		wg.Add(1)
		go func(worker *Worker) {
			defer wg.Done()
			worker.Stop()
		}(w)
	}
	wg.Wait()
}

// RetryWithBackoff retries fn with exponential backoff (capped at 30s)
// until it succeeds, maxRetries is exhausted, or ctx is cancelled.
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	delay := initialDelay
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
