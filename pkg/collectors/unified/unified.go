// Package unified implements the Unified Collector: the lifecycle
// owner that starts the flow and event listeners, fans a synchronous
// CollectAll across the poll and HTTP-API collectors, and retains a
// single global metric buffer with FIFO trimming.
package unified

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/netopshub/netopshub/internal/logging"
	"github.com/netopshub/netopshub/pkg/collectors/event"
	"github.com/netopshub/netopshub/pkg/collectors/flow"
	"github.com/netopshub/netopshub/pkg/collectors/httpapi"
	"github.com/netopshub/netopshub/pkg/collectors/poll"
	"github.com/netopshub/netopshub/pkg/model"
)

// maxRetained bounds the global metric buffer per spec.md §4.2's FIFO
// trimming requirement.
const maxRetained = 10000

// Collector owns the flow receiver, event listener, poll collector,
// and HTTP-API collector, presenting one retained metric buffer and
// one on-demand CollectAll across the poll/HTTP-API pair.
type Collector struct {
	Flow    *flow.Listener
	Event   *event.Listener
	Poll    *poll.Collector
	HTTPAPI *httpapi.Collector

	log *logging.Logger

	mu      sync.RWMutex
	metrics []model.Metric
}

// New creates a Collector wiring the four component collectors
// together. Flow and Event are always constructed; Poll and HTTPAPI
// may be nil when a deployment only ingests push-based telemetry.
func New(flowPort, eventPort int, pollCollector *poll.Collector, httpCollector *httpapi.Collector, log *logging.Logger) *Collector {
	return &Collector{
		Flow:    flow.New(flowPort, log),
		Event:   event.New(eventPort, log),
		Poll:    pollCollector,
		HTTPAPI: httpCollector,
		log:     log,
	}
}

// Start brings up the flow receiver and event listener.
func (c *Collector) Start(ctx context.Context) error {
	if err := c.Flow.Start(ctx); err != nil {
		return err
	}
	if err := c.Event.Start(ctx); err != nil {
		c.Flow.Stop()
		return err
	}
	return nil
}

// Stop tears down the flow receiver and event listener.
func (c *Collector) Stop() {
	c.Flow.Stop()
	c.Event.Stop()
}

// CollectAll synchronously gathers metrics from the poll collector and
// the HTTP-API collector, appends them to the retained buffer (FIFO
// trimmed at maxRetained), and returns the freshly collected batch.
func (c *Collector) CollectAll(ctx context.Context) []model.Metric {
	var batch []model.Metric
	if c.Poll != nil {
		batch = append(batch, c.Poll.PollAll(ctx)...)
	}
	if c.HTTPAPI != nil {
		batch = append(batch, c.HTTPAPI.CollectAll(ctx)...)
	}

	c.Ingest(batch)
	return batch
}

// Ingest appends metrics (from any source: CollectAll, a direct push
// API, or a test) to the retained buffer, trimming the oldest entries
// once maxRetained is exceeded.
func (c *Collector) Ingest(metrics []model.Metric) {
	if len(metrics) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, metrics...)
	if len(c.metrics) > maxRetained {
		c.metrics = c.metrics[len(c.metrics)-maxRetained:]
	}
}

// MetricFilter narrows GetMetrics by device, type, since, and a result
// cap (most-recent-first truncation).
type MetricFilter struct {
	DeviceID string
	Type     model.MetricType
	Since    time.Time
	Limit    int
}

// GetMetrics returns the most recent matching suffix of the retained
// buffer for f.
func (c *Collector) GetMetrics(f MetricFilter) []model.Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []model.Metric
	for _, m := range c.metrics {
		if f.DeviceID != "" && m.DeviceID != f.DeviceID {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if !f.Since.IsZero() && m.Timestamp.Before(f.Since) {
			continue
		}
		matched = append(matched, m)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[len(matched)-f.Limit:]
	}
	return matched
}
