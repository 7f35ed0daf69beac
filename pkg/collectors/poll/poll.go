// Package poll implements the SNMP-style poll collector: a registry of
// addressable targets that yield CPU/memory/bandwidth/error-rate/
// temperature metrics on demand, operable in a simulated mode that
// synthesizes a continuous AR(1)-style trace per target.
package poll

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/netopshub/netopshub/internal/crypto"
	"github.com/netopshub/netopshub/internal/logging"
	"github.com/netopshub/netopshub/internal/ratelimit"
	"github.com/netopshub/netopshub/pkg/model"
)

// Protocol is the SNMP protocol version used to reach a target.
type Protocol string

const (
	ProtocolV2c Protocol = "v2c"
	ProtocolV3  Protocol = "v3"
)

// AuthParams carries the credential material needed to reach a target.
// Fields are sealed with the collector's crypto.Sealer on registration; the
// plaintext strings here only exist transiently in RegisterTarget's
// argument.
type AuthParams struct {
	Community string
	AuthKey   string
	PrivKey   string
}

// last holds the AR(1) drift state for one simulated metric series.
type last struct {
	value float64
}

// target is one polled device, its auth material sealed at rest.
type target struct {
	DeviceID string
	Address  string
	Protocol Protocol
	Timeout  time.Duration
	Retries  int

	sealedCommunity []byte
	sealedAuthKey   []byte
	sealedPrivKey   []byte

	mu      sync.Mutex
	drift   map[model.MetricType]*last
	ifaces  []string
}

// baselines seed each device-level metric series so simulated traces
// start in a plausible range instead of at zero. Bandwidth is
// per-interface, not device-level, so it is seeded separately by
// interfaceBaselines rather than emitted again here.
var baselines = map[model.MetricType]float64{
	model.MetricCPU:         25,
	model.MetricMemory:      40,
	model.MetricErrorRate:   0.1,
	model.MetricTemperature: 45,
}

// interfaceBaselines seeds the per-interface metric series simulated
// for each tracked interface on a target.
var interfaceBaselines = map[model.MetricType]float64{
	model.MetricBandwidthIn:  150,
	model.MetricBandwidthOut: 120,
}

// Collector polls a fleet of targets, either against real SNMP agents
// (not wired in simulated mode) or by synthesizing continuous traces.
type Collector struct {
	mu      sync.RWMutex
	targets map[string]*target
	sealer  *crypto.Sealer
	limits  *ratelimit.Registry
	log     *logging.Logger
	rng     *rand.Rand
	rngMu   sync.Mutex
}

// New creates a Collector that seals target auth material with sealer
// and rate-limits polls per target through limits.
func New(sealer *crypto.Sealer, limits *ratelimit.Registry, log *logging.Logger) *Collector {
	if limits == nil {
		limits = ratelimit.NewRegistry(ratelimit.DefaultConfig())
	}
	return &Collector{
		targets: make(map[string]*target),
		sealer:  sealer,
		limits:  limits,
		log:     log,
		rng:     rand.New(rand.NewSource(1)),
	}
}

// RegisterTarget adds or replaces a polled target, sealing its auth
// parameters before they are retained in memory.
func (c *Collector) RegisterTarget(deviceID, address string, protocol Protocol, auth AuthParams, timeout time.Duration, retries int, interfaces []string) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sealedCommunity, err := c.seal(auth.Community)
	if err != nil {
		return fmt.Errorf("poll: seal community for %s: %w", address, err)
	}
	sealedAuthKey, err := c.seal(auth.AuthKey)
	if err != nil {
		return fmt.Errorf("poll: seal auth key for %s: %w", address, err)
	}
	sealedPrivKey, err := c.seal(auth.PrivKey)
	if err != nil {
		return fmt.Errorf("poll: seal priv key for %s: %w", address, err)
	}

	t := &target{
		DeviceID:        deviceID,
		Address:         address,
		Protocol:        protocol,
		Timeout:         timeout,
		Retries:         retries,
		sealedCommunity: sealedCommunity,
		sealedAuthKey:   sealedAuthKey,
		sealedPrivKey:   sealedPrivKey,
		drift:           make(map[model.MetricType]*last),
		ifaces:          interfaces,
	}
	if len(t.ifaces) == 0 {
		t.ifaces = []string{"Gi0/0"}
	}

	c.mu.Lock()
	c.targets[address] = t
	c.mu.Unlock()
	return nil
}

func (c *Collector) seal(plaintext string) ([]byte, error) {
	if plaintext == "" || c.sealer == nil {
		return nil, nil
	}
	return c.sealer.Seal([]byte(plaintext))
}

// Targets returns the addresses of every registered target.
func (c *Collector) Targets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addrs := make([]string, 0, len(c.targets))
	for addr := range c.targets {
		addrs = append(addrs, addr)
	}
	return addrs
}

// PollOne polls a single target by address, returning its metric list.
// An unregistered address, a rate-limit wait cut short by ctx, or auth
// material that fails to unseal is returned as an error; PollAll logs
// such a target and skips it.
func (c *Collector) PollOne(ctx context.Context, addr string) ([]model.Metric, error) {
	c.mu.RLock()
	t, ok := c.targets[addr]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("poll: unknown target %q", addr)
	}

	if err := c.limits.Wait(ctx, addr); err != nil {
		return nil, fmt.Errorf("poll: rate limit wait for %s: %w", addr, err)
	}

	if c.sealer != nil {
		if _, err := c.unseal(t.sealedCommunity); err != nil {
			return nil, fmt.Errorf("poll: unseal auth for %s: %w", addr, err)
		}
	}

	return c.simulatePoll(t), nil
}

func (c *Collector) unseal(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	return c.sealer.Open(sealed)
}

// PollAll fans out PollOne across every registered target concurrently.
// Per-target errors are logged and the target is skipped; the batch
// never fails as a whole.
func (c *Collector) PollAll(ctx context.Context) []model.Metric {
	c.mu.RLock()
	addrs := make([]string, 0, len(c.targets))
	for addr := range c.targets {
		addrs = append(addrs, addr)
	}
	c.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		metrics []model.Metric
	)
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			m, err := c.PollOne(ctx, addr)
			if err != nil {
				if c.log != nil {
					c.log.WithError(err).WithFields(map[string]interface{}{"target": addr}).Warn("poll target failed, skipping")
				}
				return
			}
			mu.Lock()
			metrics = append(metrics, m...)
			mu.Unlock()
		}(addr)
	}
	wg.Wait()
	return metrics
}

// simulatePoll synthesizes one sample per tracked series for t using an
// AR(1)-style drift around its baseline, with a ~2% chance of a spike.
func (c *Collector) simulatePoll(t *target) []model.Metric {
	now := time.Now().UTC()
	t.mu.Lock()
	defer t.mu.Unlock()

	var metrics []model.Metric
	for mt, baseline := range baselines {
		if _, ok := t.drift[mt]; !ok {
			t.drift[mt] = &last{value: baseline}
		}
		value := c.nextDrift(t.drift[mt].value, baseline)
		t.drift[mt].value = value

		unit := unitFor(mt)
		metrics = append(metrics, model.Metric{
			ID:        fmt.Sprintf("%s-%s-%d", t.DeviceID, mt, now.UnixNano()),
			DeviceID:  t.DeviceID,
			Type:      mt,
			Value:     value,
			Unit:      unit,
			Timestamp: now,
			Source:    model.SourceSNMP,
		})
	}

	for _, iface := range t.ifaces {
		for _, mt := range []model.MetricType{model.MetricBandwidthIn, model.MetricBandwidthOut} {
			baseline := interfaceBaselines[mt]
			key := model.MetricType(iface + ":" + string(mt))
			if _, ok := t.drift[key]; !ok {
				t.drift[key] = &last{value: baseline}
			}
			value := c.nextDrift(t.drift[key].value, baseline)
			t.drift[key].value = value
			metrics = append(metrics, model.Metric{
				ID:            fmt.Sprintf("%s-%s-%s-%d", t.DeviceID, iface, mt, now.UnixNano()),
				DeviceID:      t.DeviceID,
				InterfaceName: iface,
				Type:          mt,
				Value:         value,
				Unit:          "Mbps",
				Timestamp:     now,
				Source:        model.SourceSNMP,
			})
		}
	}

	return metrics
}

// nextDrift applies one AR(1) step toward baseline with Gaussian noise
// and a rare spike, clamped to stay non-negative.
func (c *Collector) nextDrift(current, baseline float64) float64 {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	const phi = 0.85
	noise := c.rng.NormFloat64() * baseline * 0.03
	next := baseline + phi*(current-baseline) + noise

	if c.rng.Float64() < 0.02 {
		next += baseline * (1 + c.rng.Float64()*2)
	}
	if next < 0 {
		next = 0
	}
	return next
}

func unitFor(mt model.MetricType) string {
	switch mt {
	case model.MetricCPU, model.MetricMemory, model.MetricErrorRate:
		return "percent"
	case model.MetricTemperature:
		return "celsius"
	default:
		return ""
	}
}
