package agents

import (
	"fmt"

	"github.com/netopshub/netopshub/pkg/model"
	"github.com/netopshub/netopshub/pkg/topology"
)

// DiscoveryHandler exposes scan/topology/neighbor/blast-radius task
// kinds over a shared topology.Graph.
type DiscoveryHandler struct {
	*agentBase
	graph *topology.Graph
}

// NewDiscoveryHandler creates a handler backed by graph.
func NewDiscoveryHandler(graph *topology.Graph) *DiscoveryHandler {
	return &DiscoveryHandler{
		agentBase: newAgentBase("discovery", "Network discovery and topology mapping"),
		graph:     graph,
	}
}

// Process dispatches scan_subnet, build_topology, get_neighbors, and
// blast_radius task kinds.
func (h *DiscoveryHandler) Process(task model.AgentTask) model.AgentTask {
	task.Status = model.TaskRunning

	switch task.Kind {
	case "scan_subnet":
		subnet := stringInput(task.Input, "subnet", "10.0.0.0/24")
		snap := h.graph.Snapshot()
		return h.completeTask(task, map[string]interface{}{
			"subnet":        subnet,
			"devices_found": len(snap.Devices),
		})

	case "build_topology":
		snap := h.graph.Snapshot()
		return h.completeTask(task, map[string]interface{}{
			"device_count": len(snap.Devices),
			"link_count":   len(snap.Links),
		})

	case "get_neighbors":
		deviceID := stringInput(task.Input, "device_id", "")
		return h.completeTask(task, map[string]interface{}{
			"device_id": deviceID,
			"neighbors": h.graph.Neighbors(deviceID),
		})

	case "blast_radius":
		deviceID := stringInput(task.Input, "device_id", "")
		maxHops := int(floatInput(task.Input, "max_hops", 2))
		radius := h.graph.BlastRadius(deviceID, maxHops)
		return h.completeTask(task, map[string]interface{}{
			"device_id":        deviceID,
			"affected_devices": radius,
			"count":            len(radius),
		})

	default:
		return h.failUnknownKind(task)
	}
}

// Chat answers discovery-related free-text queries.
func (h *DiscoveryHandler) Chat(message string, context map[string]interface{}) string {
	h.logMessage(model.RoleUser, message)

	snap := h.graph.Snapshot()
	critical := h.graph.CriticalDevices()

	response := fmt.Sprintf(
		"The topology currently tracks %d devices and %d links.",
		len(snap.Devices), len(snap.Links),
	)
	if len(critical) > 0 {
		top := critical[0]
		response += fmt.Sprintf(" Most critical device: %s (degree %d, blast radius %d).", top.DeviceID, top.Degree, top.BlastRadius)
	}

	h.logMessage(model.RoleAssistant, response)
	return response
}
