package topology

import (
	"testing"

	"github.com/netopshub/netopshub/pkg/model"
	"github.com/stretchr/testify/assert"
)

func star(t *testing.T) *Graph {
	t.Helper()
	g := New()
	g.AddDevices([]model.Device{{ID: "hub"}, {ID: "a"}, {ID: "b"}, {ID: "c"}})
	g.BuildTopology([]model.Neighbor{
		{LocalDeviceID: "hub", LocalInterface: "e0", RemoteDeviceID: "a", RemoteInterface: "e0", Protocol: model.ProtocolLLDP},
		{LocalDeviceID: "hub", LocalInterface: "e1", RemoteDeviceID: "b", RemoteInterface: "e0", Protocol: model.ProtocolLLDP},
		{LocalDeviceID: "hub", LocalInterface: "e2", RemoteDeviceID: "c", RemoteInterface: "e0", Protocol: model.ProtocolLLDP},
	})
	return g
}

func TestPathSelfReturnsSingleElement(t *testing.T) {
	g := star(t)
	assert.Equal(t, []string{"hub"}, g.Path("hub", "hub"))
}

func TestPathShortestBetweenLeaves(t *testing.T) {
	g := star(t)
	path := g.Path("a", "b")
	assert.Equal(t, []string{"a", "hub", "b"}, path)
}

func TestPathUnreachableReturnsEmpty(t *testing.T) {
	g := New()
	g.AddDevices([]model.Device{{ID: "x"}, {ID: "y"}})
	assert.Empty(t, g.Path("x", "y"))
}

func TestBlastRadiusExcludesSourceAndRespectsHopLimit(t *testing.T) {
	g := star(t)
	radius := g.BlastRadius("hub", 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, radius)
}

func TestBlastRadiusDegreeEquality(t *testing.T) {
	g := star(t)
	degree := len(g.Neighbors("hub"))
	radius := g.BlastRadius("hub", 1)
	assert.Equal(t, degree, len(radius))
}

func TestNeighborDeduplicatesCanonicalizedLinks(t *testing.T) {
	g := New()
	g.AddDevices([]model.Device{{ID: "a"}, {ID: "b"}})
	g.AddNeighbor(model.Neighbor{LocalDeviceID: "a", LocalInterface: "e0", RemoteDeviceID: "b", RemoteInterface: "e1"})
	g.AddNeighbor(model.Neighbor{LocalDeviceID: "b", LocalInterface: "e1", RemoteDeviceID: "a", RemoteInterface: "e0"})
	snap := g.Snapshot()
	assert.Len(t, snap.Links, 1)
}

func TestCriticalDevicesRanksByDegree(t *testing.T) {
	g := star(t)
	critical := g.CriticalDevices()
	assert.Equal(t, "hub", critical[0].DeviceID)
	assert.Equal(t, 3, critical[0].Degree)
}

func TestSnapshotReturnsAllDevicesAndLinks(t *testing.T) {
	g := star(t)
	snap := g.Snapshot()
	assert.Len(t, snap.Devices, 4)
	assert.Len(t, snap.Links, 3)
}
