// Package topology maintains the device adjacency graph used for
// shortest-path and blast-radius queries.
package topology

import (
	"sort"
	"sync"

	"github.com/netopshub/netopshub/pkg/model"
)

// Graph is an undirected multigraph over devices keyed by device ID.
// Safe for concurrent readers; mutations (AddDevice/AddNeighbor) must be
// serialized by the caller, consistent with spec's single-writer model.
type Graph struct {
	mu        sync.RWMutex
	devices   map[string]model.Device
	adjacency map[string]map[string]struct{}
	links     map[string]model.TopologyLink
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		devices:   make(map[string]model.Device),
		adjacency: make(map[string]map[string]struct{}),
		links:     make(map[string]model.TopologyLink),
	}
}

// AddDevice registers a device node, overwriting any prior record with
// the same ID.
func (g *Graph) AddDevice(d model.Device) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.devices[d.ID] = d
	if _, ok := g.adjacency[d.ID]; !ok {
		g.adjacency[d.ID] = make(map[string]struct{})
	}
}

// AddDevices registers a batch of devices.
func (g *Graph) AddDevices(devices []model.Device) {
	for _, d := range devices {
		g.AddDevice(d)
	}
}

// AddNeighbor records a raw adjacency observation, canonicalizing it into
// a deduplicated TopologyLink.
func (g *Graph) AddNeighbor(n model.Neighbor) {
	link := model.TopologyLink{
		A:        model.Endpoint{DeviceID: n.LocalDeviceID, Interface: n.LocalInterface},
		B:        model.Endpoint{DeviceID: n.RemoteDeviceID, Interface: n.RemoteInterface},
		Protocol: n.Protocol,
	}
	g.addLink(link)
}

// BuildTopology registers a batch of raw neighbor observations,
// deduplicating links by canonicalized endpoint pair.
func (g *Graph) BuildTopology(neighbors []model.Neighbor) {
	for _, n := range neighbors {
		g.AddNeighbor(n)
	}
}

func (g *Graph) addLink(link model.TopologyLink) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := link.CanonicalKey()
	if _, exists := g.links[key]; exists {
		return
	}
	g.links[key] = link

	if _, ok := g.adjacency[link.A.DeviceID]; !ok {
		g.adjacency[link.A.DeviceID] = make(map[string]struct{})
	}
	if _, ok := g.adjacency[link.B.DeviceID]; !ok {
		g.adjacency[link.B.DeviceID] = make(map[string]struct{})
	}
	g.adjacency[link.A.DeviceID][link.B.DeviceID] = struct{}{}
	g.adjacency[link.B.DeviceID][link.A.DeviceID] = struct{}{}
}

// Neighbors returns the adjacency set of device IDs directly connected to id.
func (g *Graph) Neighbors(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := g.adjacency[id]
	out := make([]string, 0, len(set))
	for neighbor := range set {
		out = append(out, neighbor)
	}
	sort.Strings(out)
	return out
}

// Path returns the BFS shortest path from src to dst, inclusive of both
// endpoints. Returns [src] when src==dst, and an empty slice when
// unreachable.
func (g *Graph) Path(src, dst string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if src == dst {
		return []string{src}
	}

	visited := map[string]bool{src: true}
	prev := map[string]string{}
	queue := []string{src}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbors := sortedKeys(g.adjacency[current])
		for _, next := range neighbors {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = current
			if next == dst {
				return reconstructPath(prev, src, dst)
			}
			queue = append(queue, next)
		}
	}
	return []string{}
}

func reconstructPath(prev map[string]string, src, dst string) []string {
	path := []string{dst}
	for path[len(path)-1] != src {
		path = append(path, prev[path[len(path)-1]])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// BlastRadius returns the set of device IDs reachable within maxHops hops
// of id, excluding id itself.
func (g *Graph) BlastRadius(id string, maxHops int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{id: true}
	frontier := []string{id}
	result := []string{}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		next := []string{}
		for _, current := range frontier {
			for _, neighbor := range sortedKeys(g.adjacency[current]) {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				result = append(result, neighbor)
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	sort.Strings(result)
	return result
}

// CriticalDevices ranks devices by degree, attaching each device's
// 2-hop blast radius count.
func (g *Graph) CriticalDevices() []model.CriticalDevice {
	g.mu.RLock()
	ids := make([]string, 0, len(g.devices))
	for id := range g.devices {
		ids = append(ids, id)
	}
	g.mu.RUnlock()
	sort.Strings(ids)

	out := make([]model.CriticalDevice, 0, len(ids))
	for _, id := range ids {
		degree := len(g.Neighbors(id))
		out = append(out, model.CriticalDevice{
			DeviceID:    id,
			Degree:      degree,
			BlastRadius: len(g.BlastRadius(id, 2)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Degree > out[j].Degree })
	return out
}

// Snapshot returns the serialized topology for GET /topology.
func (g *Graph) Snapshot() model.Topology {
	g.mu.RLock()
	defer g.mu.RUnlock()

	devices := make([]model.Device, 0, len(g.devices))
	ids := make([]string, 0, len(g.devices))
	for id := range g.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		devices = append(devices, g.devices[id])
	}

	links := make([]model.TopologyLink, 0, len(g.links))
	keys := make([]string, 0, len(g.links))
	for k := range g.links {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		links = append(links, g.links[k])
	}

	return model.Topology{Devices: devices, Links: links}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
