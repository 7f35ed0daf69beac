// Package httpapi implements the HTTP-API collector: a registry of
// named REST endpoints, each tagged with a vendor whose Normalizer
// turns the endpoint's raw JSON response into normalized metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/netopshub/netopshub/internal/logging"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/tidwall/gjson"
)

// Normalizer turns a raw HTTP response body into normalized metrics.
type Normalizer interface {
	Normalize(deviceID string, raw []byte) ([]model.Metric, error)
}

// Auth describes how a request authenticates against an endpoint.
type Auth struct {
	BearerToken string
	HeaderName  string
	HeaderValue string
}

func (a Auth) apply(req *http.Request) {
	if a.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.BearerToken)
	}
	if a.HeaderName != "" {
		req.Header.Set(a.HeaderName, a.HeaderValue)
	}
}

// Endpoint is one registered HTTP-API collection target.
type Endpoint struct {
	Name     string
	URL      string
	DeviceID string
	Vendor   string
	Auth     Auth
	Timeout  time.Duration
}

// Collector polls a registry of named endpoints and normalizes each
// response through its vendor's Normalizer.
type Collector struct {
	mu          sync.RWMutex
	endpoints   map[string]Endpoint
	normalizers map[string]Normalizer
	client      *http.Client
	log         *logging.Logger
}

// New creates a Collector with the built-in meraki and arista
// normalizers registered.
func New(log *logging.Logger) *Collector {
	c := &Collector{
		endpoints:   make(map[string]Endpoint),
		normalizers: make(map[string]Normalizer),
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
	c.RegisterNormalizer("meraki", merakiNormalizer{})
	c.RegisterNormalizer("arista", aristaNormalizer{})
	return c
}

// RegisterNormalizer associates a vendor tag with a Normalizer,
// overriding any built-in normalizer of the same name.
func (c *Collector) RegisterNormalizer(vendor string, n Normalizer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.normalizers[vendor] = n
}

// RegisterJSONPathNormalizer registers a vendor tag backed by a custom
// {metric_type: jsonpath} map instead of a built-in normalizer, for
// vendors outside the meraki/arista built-ins.
func (c *Collector) RegisterJSONPathNormalizer(vendor string, paths map[model.MetricType]string) {
	c.RegisterNormalizer(vendor, jsonPathNormalizer{paths: paths})
}

// RegisterEndpoint adds or replaces a named collection target.
func (c *Collector) RegisterEndpoint(ep Endpoint) error {
	if ep.Timeout <= 0 {
		ep.Timeout = 5 * time.Second
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.normalizers[ep.Vendor]; !ok {
		return fmt.Errorf("httpapi: no normalizer registered for vendor %q", ep.Vendor)
	}
	c.endpoints[ep.Name] = ep
	return nil
}

// CollectOne fetches and normalizes a single registered endpoint.
func (c *Collector) CollectOne(ctx context.Context, name string) ([]model.Metric, error) {
	c.mu.RLock()
	ep, ok := c.endpoints[name]
	normalizer := c.normalizers[ep.Vendor]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("httpapi: unknown endpoint %q", name)
	}

	reqCtx, cancel := context.WithTimeout(ctx, ep.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpapi: build request for %s: %w", name, err)
	}
	ep.Auth.apply(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpapi: fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpapi: read %s response: %w", name, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("httpapi: %s returned status %d", name, resp.StatusCode)
	}

	metrics, err := normalizer.Normalize(ep.DeviceID, body)
	if err != nil {
		return nil, fmt.Errorf("httpapi: normalize %s response: %w", name, err)
	}
	return metrics, nil
}

// CollectAll runs every registered endpoint, tolerating per-endpoint
// errors: a failed endpoint is logged and skipped, never failing the
// batch.
func (c *Collector) CollectAll(ctx context.Context) []model.Metric {
	c.mu.RLock()
	names := make([]string, 0, len(c.endpoints))
	for name := range c.endpoints {
		names = append(names, name)
	}
	c.mu.RUnlock()

	var metrics []model.Metric
	for _, name := range names {
		m, err := c.CollectOne(ctx, name)
		if err != nil {
			if c.log != nil {
				c.log.WithError(err).WithFields(map[string]interface{}{"endpoint": name}).Warn("http-api endpoint failed, skipping")
			}
			continue
		}
		metrics = append(metrics, m...)
	}
	return metrics
}

// merakiNormalizer reads Meraki dashboard-API-shaped device-status
// payloads via direct gjson field lookups.
type merakiNormalizer struct{}

func (merakiNormalizer) Normalize(deviceID string, raw []byte) ([]model.Metric, error) {
	now := time.Now().UTC()
	root := gjson.ParseBytes(raw)
	if !root.Exists() {
		return nil, fmt.Errorf("meraki: empty or invalid JSON")
	}

	var metrics []model.Metric
	fields := map[model.MetricType]string{
		model.MetricCPU:       "cpu.usage",
		model.MetricMemory:    "memory.usage",
		model.MetricUptime:    "uptimeInSeconds",
		model.MetricPacketLoss: "wan1.packetLossPercent",
	}
	for mt, path := range fields {
		result := root.Get(path)
		if result.Exists() {
			metrics = append(metrics, model.Metric{
				DeviceID: deviceID, Type: mt, Value: result.Float(),
				Timestamp: now, Source: model.SourceRESTAPI,
			})
		}
	}
	return metrics, nil
}

// aristaNormalizer reads EOS eAPI-shaped JSON-RPC result payloads via
// direct gjson field lookups.
type aristaNormalizer struct{}

func (aristaNormalizer) Normalize(deviceID string, raw []byte) ([]model.Metric, error) {
	now := time.Now().UTC()
	root := gjson.ParseBytes(raw)
	if !root.Exists() {
		return nil, fmt.Errorf("arista: empty or invalid JSON")
	}

	var metrics []model.Metric
	fields := map[model.MetricType]string{
		model.MetricCPU:         "result.0.cpuUtilization",
		model.MetricMemory:      "result.0.memTotalUtilization",
		model.MetricBGPPrefixes: "result.0.bgpPrefixCount",
	}
	for mt, path := range fields {
		result := root.Get(path)
		if result.Exists() {
			metrics = append(metrics, model.Metric{
				DeviceID: deviceID, Type: mt, Value: result.Float(),
				Timestamp: now, Source: model.SourceRESTAPI,
			})
		}
	}
	return metrics, nil
}

// jsonPathNormalizer handles vendors outside the meraki/arista
// built-ins by evaluating a caller-supplied {metric_type: jsonpath}
// map against the response with github.com/PaesslerAG/jsonpath.
type jsonPathNormalizer struct {
	paths map[model.MetricType]string
}

func (n jsonPathNormalizer) Normalize(deviceID string, raw []byte) ([]model.Metric, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("jsonpath: decode response: %w", err)
	}

	now := time.Now().UTC()
	var metrics []model.Metric
	for mt, path := range n.paths {
		value, err := jsonpath.Get(path, doc)
		if err != nil {
			continue
		}
		f, ok := toFloat(value)
		if !ok {
			continue
		}
		metrics = append(metrics, model.Metric{
			DeviceID: deviceID, Type: mt, Value: f,
			Timestamp: now, Source: model.SourceRESTAPI,
		})
	}
	return metrics, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
