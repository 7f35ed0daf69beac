package agents

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/netopshub/netopshub/pkg/model"
)

// knowledgeDoc is one curated vendor-documentation article searched by
// keyword overlap against a query.
type knowledgeDoc struct {
	key     string
	title   string
	content string
	vendor  string
	tags    []string
}

var vendorKnowledgeBase = []knowledgeDoc{
	{
		key:   "bgp_flapping",
		title: "BGP Session Flapping — Root Causes and Resolution",
		content: "BGP session flapping is typically caused by: physical link instability " +
			"(check interface error counters and optic levels), MTU mismatch over the TCP " +
			"transport, hold timer expiry when keepalives stop arriving within the hold time, " +
			"aggressive route policy changes causing rapid withdraw/announce cycles, and " +
			"memory exhaustion on low-memory platforms triggering BGP process restarts.",
		vendor: "multi-vendor",
		tags:   []string{"bgp", "flapping", "troubleshooting"},
	},
	{
		key:   "ospf_adjacency",
		title: "OSPF Adjacency Formation Failures",
		content: "OSPF adjacency failures are commonly caused by area ID mismatch, " +
			"hello/dead timer mismatch, authentication type or key mismatch, MTU mismatch " +
			"reported in DBD packets, network type mismatch affecting DR/BDR election, and " +
			"stub area flag mismatch.",
		vendor: "multi-vendor",
		tags:   []string{"ospf", "adjacency", "troubleshooting"},
	},
	{
		key:   "high_cpu_cisco",
		title: "High CPU Utilization on Cisco IOS/IOS-XE",
		content: "Common causes of high CPU on Cisco platforms: IP Input process-switched " +
			"traffic from ACL logging or TTL-exceeded packets, BGP Scanner churn during table " +
			"convergence, SNMP Engine load from excessive polling, memory pressure triggering " +
			"garbage collection, and software defects tied to the running image version.",
		vendor: "cisco",
		tags:   []string{"cpu", "cisco", "troubleshooting"},
	},
	{
		key:   "stp_topology_change",
		title: "Spanning Tree Topology Changes and Their Impact",
		content: "Spanning tree topology changes flush MAC address tables and cause " +
			"temporary flooding. Frequent changes indicate unstable links, portfast missing " +
			"on server-facing ports, unidirectional links, or bridge priority misconfiguration. " +
			"Mitigate with BPDU Guard on access ports and Root Guard on distribution uplinks.",
		vendor: "multi-vendor",
		tags:   []string{"stp", "spanning-tree", "topology-change"},
	},
	{
		key:   "interface_errors",
		title: "Interface Error Counter Analysis",
		content: "CRC errors point to the physical layer: bad cable, optic, or far-end issue. " +
			"Output drops indicate a full QoS queue during micro-bursts. Runts and giants " +
			"suggest collision or MTU misconfiguration. Late collisions point to cable length " +
			"or duplex mismatch. Resets usually mean the interface is flapping.",
		vendor: "multi-vendor",
		tags:   []string{"interface", "errors", "troubleshooting"},
	},
	{
		key:   "palo_alto_ha",
		title: "Palo Alto HA Failover Troubleshooting",
		content: "Palo Alto HA failover is triggered by link monitoring, path monitoring, " +
			"HA heartbeat loss on both HA1 links, or preemption when a higher priority peer " +
			"returns. Check high-availability status and verify the session table is fully " +
			"synced to avoid asymmetric routing after failover with ECMP.",
		vendor: "palo_alto",
		tags:   []string{"palo-alto", "ha", "failover"},
	},
}

var wordPattern = regexp.MustCompile(`\w+`)

func wordSet(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// documentChunk is one overlapping slice of an ingested document,
// identified by the first 12 hex characters of its content hash.
type documentChunk struct {
	ChunkID string `json:"chunk_id"`
	Text    string `json:"text"`
	Source  string `json:"source"`
}

// KnowledgeHandler answers troubleshooting questions by keyword search
// over a curated vendor-documentation base, and accepts free-text
// ingestion into a chunked corpus for future retrieval.
type KnowledgeHandler struct {
	*agentBase
	mu     sync.Mutex
	chunks []documentChunk
}

// NewKnowledgeHandler creates a handler with the built-in documentation set.
func NewKnowledgeHandler() *KnowledgeHandler {
	return &KnowledgeHandler{
		agentBase: newAgentBase("knowledge", "Retrieval over vendor documentation and network knowledge"),
	}
}

type scoredDoc struct {
	knowledgeDoc
	score float64
}

func (h *KnowledgeHandler) search(query string, topK int) []scoredDoc {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return nil
	}

	var results []scoredDoc
	for _, doc := range vendorKnowledgeBase {
		docWords := wordSet(doc.content + " " + doc.title + " " + strings.Join(doc.tags, " "))
		overlap := 0
		for w := range queryWords {
			if _, ok := docWords[w]; ok {
				overlap++
			}
		}
		score := float64(overlap) / float64(len(queryWords))
		if score > 0.1 {
			results = append(results, scoredDoc{doc, score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func chunkDocument(text, source string, chunkSize, overlap int) []documentChunk {
	words := strings.Fields(text)
	var chunks []documentChunk
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}
	for i := 0; i < len(words); i += step {
		end := i + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunkWords := words[i:end]
		if len(chunkWords) < 20 {
			continue
		}
		text := strings.Join(chunkWords, " ")
		sum := md5.Sum([]byte(text))
		chunks = append(chunks, documentChunk{
			ChunkID: fmt.Sprintf("%x", sum)[:12],
			Text:    text,
			Source:  source,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}

// Process dispatches query and ingest task kinds.
func (h *KnowledgeHandler) Process(task model.AgentTask) model.AgentTask {
	task.Status = model.TaskRunning

	switch task.Kind {
	case "query":
		query := stringInput(task.Input, "query", "")
		results := h.search(query, 3)
		formatted := make([]map[string]interface{}, len(results))
		for i, r := range results {
			formatted[i] = map[string]interface{}{
				"key":     r.key,
				"title":   r.title,
				"vendor":  r.vendor,
				"tags":    r.tags,
				"score":   r.score,
				"content": r.content,
			}
		}
		return h.completeTask(task, map[string]interface{}{
			"query":   query,
			"results": formatted,
			"sources": len(formatted),
		})

	case "ingest":
		text := stringInput(task.Input, "text", "")
		source := stringInput(task.Input, "source", "manual")
		chunks := chunkDocument(text, source, 500, 50)

		h.mu.Lock()
		h.chunks = append(h.chunks, chunks...)
		total := len(h.chunks)
		h.mu.Unlock()

		return h.completeTask(task, map[string]interface{}{
			"chunks_created": len(chunks),
			"total_chunks":   total,
		})

	default:
		return h.failUnknownKind(task)
	}
}

// Chat answers a free-text question using the top-scoring knowledge article.
func (h *KnowledgeHandler) Chat(message string, context map[string]interface{}) string {
	h.logMessage(model.RoleUser, message)

	results := h.search(message, 3)
	var response string
	if len(results) > 0 {
		top := results[0]
		response = fmt.Sprintf(
			"**%s**\n\n%s\n\n_Source: %s documentation | Tags: %s | Relevance: %.0f%%_",
			top.title, top.content, top.vendor, strings.Join(top.tags, ", "), top.score*100,
		)
		if len(results) > 1 {
			var related []string
			for _, r := range results[1:] {
				related = append(related, r.title)
			}
			response += "\n\nRelated topics: " + strings.Join(related, ", ")
		}
	} else {
		response = "No specific documentation on that topic yet. I can help with BGP, OSPF, " +
			"spanning tree, interface errors, Cisco CPU troubleshooting, and Palo Alto HA."
	}

	h.logMessage(model.RoleAssistant, response)
	return response
}
