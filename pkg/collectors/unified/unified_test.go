package unified

import (
	"context"
	"testing"
	"time"

	"github.com/netopshub/netopshub/internal/crypto"
	"github.com/netopshub/netopshub/internal/ratelimit"
	"github.com/netopshub/netopshub/pkg/collectors/httpapi"
	"github.com/netopshub/netopshub/pkg/collectors/poll"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPollCollector(t *testing.T) *poll.Collector {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sealer, err := crypto.NewSealer(key)
	require.NoError(t, err)
	return poll.New(sealer, ratelimit.NewRegistry(ratelimit.Config{RequestsPerSecond: 1000, Burst: 1000}), nil)
}

func TestCollectAllMergesPollAndHTTPAPIAndRetains(t *testing.T) {
	p := newTestPollCollector(t)
	require.NoError(t, p.RegisterTarget("r1", "10.0.0.1", poll.ProtocolV2c, poll.AuthParams{Community: "public"}, 0, 2, nil))

	c := New(0, 0, p, httpapi.New(nil), nil)
	batch := c.CollectAll(context.Background())
	assert.NotEmpty(t, batch)

	fetched := c.GetMetrics(MetricFilter{DeviceID: "r1"})
	assert.NotEmpty(t, fetched)
}

func TestIngestTrimsRetainedBufferAtMaxRetained(t *testing.T) {
	c := New(0, 0, nil, nil, nil)
	now := time.Now()
	batch := make([]model.Metric, maxRetained+100)
	for i := range batch {
		batch[i] = model.Metric{DeviceID: "r1", Type: model.MetricCPU, Value: 1, Timestamp: now}
	}
	c.Ingest(batch)

	c.mu.RLock()
	size := len(c.metrics)
	c.mu.RUnlock()
	assert.Equal(t, maxRetained, size)
}

func TestGetMetricsFiltersByDeviceTypeSinceAndLimit(t *testing.T) {
	c := New(0, 0, nil, nil, nil)
	now := time.Now()
	c.Ingest([]model.Metric{
		{DeviceID: "r1", Type: model.MetricCPU, Value: 1, Timestamp: now.Add(-time.Hour)},
		{DeviceID: "r1", Type: model.MetricCPU, Value: 2, Timestamp: now},
		{DeviceID: "r1", Type: model.MetricMemory, Value: 3, Timestamp: now},
		{DeviceID: "r2", Type: model.MetricCPU, Value: 4, Timestamp: now},
	})

	matched := c.GetMetrics(MetricFilter{DeviceID: "r1", Type: model.MetricCPU, Since: now.Add(-time.Minute)})
	require.Len(t, matched, 1)
	assert.Equal(t, 2.0, matched[0].Value)

	matched = c.GetMetrics(MetricFilter{DeviceID: "r1", Limit: 1})
	require.Len(t, matched, 1)
}
