// Package platform provides the lifecycle and composition base every
// netopshub service component builds on: identity, start/stop, an HTTP
// router, and a small set of optional capability interfaces a component
// can implement to opt into info/health reporting and state hydration.
package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/mux"
)

// Component is the base every netopshub service (collector manager,
// alert manager, query API, ...) embeds for consistent identity and
// lifecycle handling.
type Component struct {
	mu sync.RWMutex

	id      string
	name    string
	version string
	router  *mux.Router

	running bool
}

// ComponentConfig configures a new Component.
type ComponentConfig struct {
	ID      string
	Name    string
	Version string
}

// NewComponent creates a Component, pre-wiring an empty router.
func NewComponent(cfg ComponentConfig) *Component {
	return &Component{
		id:      cfg.ID,
		name:    cfg.Name,
		version: cfg.Version,
		router:  mux.NewRouter(),
	}
}

// ID returns the component's identifier.
func (c *Component) ID() string { return c.id }

// Name returns the component's display name.
func (c *Component) Name() string { return c.name }

// Version returns the component's version string.
func (c *Component) Version() string { return c.version }

// Router returns the HTTP router the component registers its handlers on.
func (c *Component) Router() *mux.Router { return c.router }

// Start marks the component running. Returns an error if already started.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("component %s already running", c.id)
	}
	c.running = true
	return nil
}

// Stop marks the component stopped. Safe to call on an already-stopped component.
func (c *Component) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// IsRunning reports whether the component has been started and not yet stopped.
func (c *Component) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Service is the interface every top-level netopshub component implements,
// giving the process supervisor a uniform way to start, stop, and mount it.
type Service interface {
	ID() string
	Name() string
	Version() string
	Start(ctx context.Context) error
	Stop() error
	Router() *mux.Router
}

// StatisticsProvider is implemented by components that expose runtime
// counters on the /status endpoint (e.g. collector run counts, queue depth).
type StatisticsProvider interface {
	Statistics() map[string]any
}

// Hydratable is implemented by components that need to reload state from
// a persistence sidecar (Redis, Postgres) before serving traffic.
type Hydratable interface {
	Hydrate(ctx context.Context) error
}

// HealthChecker is implemented by components with custom health logic
// beyond "process is up" (e.g. an alert manager degraded by a stuck sidecar).
type HealthChecker interface {
	HealthStatus() string
	HealthDetails() map[string]any
}
