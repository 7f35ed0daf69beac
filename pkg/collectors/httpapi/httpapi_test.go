package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netopshub/netopshub/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerakiNormalizerExtractsKnownFields(t *testing.T) {
	n := merakiNormalizer{}
	metrics, err := n.Normalize("ap-1", []byte(`{"cpu":{"usage":12.5},"memory":{"usage":44.1},"uptimeInSeconds":86400}`))
	require.NoError(t, err)

	byType := make(map[model.MetricType]float64)
	for _, m := range metrics {
		byType[m.Type] = m.Value
	}
	assert.Equal(t, 12.5, byType[model.MetricCPU])
	assert.Equal(t, 44.1, byType[model.MetricMemory])
}

func TestAristaNormalizerExtractsKnownFields(t *testing.T) {
	n := aristaNormalizer{}
	metrics, err := n.Normalize("sw-1", []byte(`{"result":[{"cpuUtilization":33.0,"memTotalUtilization":55.0,"bgpPrefixCount":900000}]}`))
	require.NoError(t, err)
	assert.NotEmpty(t, metrics)
}

func TestJSONPathNormalizerEvaluatesCustomMap(t *testing.T) {
	n := jsonPathNormalizer{paths: map[model.MetricType]string{
		model.MetricCPU: "$.device.stats.cpu",
	}}
	metrics, err := n.Normalize("fw-1", []byte(`{"device":{"stats":{"cpu":77}}}`))
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, 77.0, metrics[0].Value)
}

func TestRegisterEndpointRejectsUnknownVendor(t *testing.T) {
	c := New(nil)
	err := c.RegisterEndpoint(Endpoint{Name: "x", URL: "http://example.com", Vendor: "unknown_vendor"})
	assert.Error(t, err)
}

func TestCollectOneFetchesAndNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cpu":{"usage":20}}`))
	}))
	defer server.Close()

	c := New(nil)
	require.NoError(t, c.RegisterEndpoint(Endpoint{Name: "ap1", URL: server.URL, DeviceID: "ap-1", Vendor: "meraki"}))

	metrics, err := c.CollectOne(context.Background(), "ap1")
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "ap-1", metrics[0].DeviceID)
}

func TestCollectAllToleratesPerEndpointErrors(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cpu":{"usage":10}}`))
	}))
	defer ok.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	c := New(nil)
	require.NoError(t, c.RegisterEndpoint(Endpoint{Name: "good", URL: ok.URL, DeviceID: "d1", Vendor: "meraki"}))
	require.NoError(t, c.RegisterEndpoint(Endpoint{Name: "bad", URL: failing.URL, DeviceID: "d2", Vendor: "meraki"}))

	metrics := c.CollectAll(context.Background())
	assert.NotEmpty(t, metrics)
}
