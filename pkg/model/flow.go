package model

import (
	"strconv"
	"time"
)

// FlowRecord is one NetFlow/IPFIX-shaped traffic summary.
type FlowRecord struct {
	SrcAddress     string    `json:"src_address"`
	SrcPort        int       `json:"src_port"`
	DstAddress     string    `json:"dst_address"`
	DstPort        int       `json:"dst_port"`
	Protocol       int       `json:"protocol"`
	Bytes          uint64    `json:"bytes"`
	Packets        uint64    `json:"packets"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	InputIfIndex   int       `json:"input_if_index"`
	OutputIfIndex  int       `json:"output_if_index"`
	TCPFlags       uint8     `json:"tcp_flags,omitempty"`
	SrcAS          int       `json:"src_as,omitempty"`
	DstAS          int       `json:"dst_as,omitempty"`
	ExporterAddr   string    `json:"exporter_address"`
}

// ProtocolName normalizes well-known IP protocol numbers to their mnemonic.
func ProtocolName(proto int) string {
	switch proto {
	case 1:
		return "ICMP"
	case 6:
		return "TCP"
	case 17:
		return "UDP"
	case 47:
		return "GRE"
	case 50:
		return "ESP"
	default:
		return "proto-" + strconv.Itoa(proto)
	}
}

// FlowTopTalker summarizes total bytes exchanged for one address across
// both flow directions.
type FlowTopTalker struct {
	Address string `json:"address"`
	Bytes   uint64 `json:"bytes"`
}

// FlowAggregate is the result of aggregating flow records over a window.
type FlowAggregate struct {
	TotalBytes   uint64          `json:"total_bytes"`
	TotalPackets uint64          `json:"total_packets"`
	TopSources   []FlowTopTalker `json:"top_sources"`
	TopDests     []FlowTopTalker `json:"top_destinations"`
	TopPorts     []FlowTopTalker `json:"top_ports"`
}
