// Package flow implements the flow (NetFlow/IPFIX-style) receiver: an
// append-only in-memory buffer of FlowRecord samples with since/src/dst
// filtering and windowed top-talker aggregation.
package flow

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/netopshub/netopshub/internal/logging"
	"github.com/netopshub/netopshub/pkg/model"
)

// maxRetained bounds the in-memory buffer so a long-running receiver
// does not grow without limit; oldest records are trimmed first.
const maxRetained = 50000

// Listener receives flow records over UDP and serves filtered queries
// and windowed aggregates over its retained buffer.
type Listener struct {
	port int
	log  *logging.Logger

	mu      sync.RWMutex
	records []model.FlowRecord

	conn   *net.UDPConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Listener bound to port once Start is called.
func New(port int, log *logging.Logger) *Listener {
	return &Listener{port: port, log: log}
}

// Start opens the UDP socket and begins accepting records in the
// background. decodeRecord recognizes no wire format, so received
// datagrams are dropped and records enter the buffer only through Ingest.
func (l *Listener) Start(ctx context.Context) error {
	addr := &net.UDPAddr{Port: l.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("flow: listen on port %d: %w", l.port, err)
	}
	l.conn = conn

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.wg.Add(1)
	go l.acceptLoop(runCtx)
	return nil
}

func (l *Listener) acceptLoop(ctx context.Context) {
	defer l.wg.Done()
	buf := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		l.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		if record, ok := decodeRecord(buf[:n]); ok {
			l.Ingest(record)
		}
	}
}

// decodeRecord is a stand-in wire decoder; a real NetFlow/IPFIX parser
// would live here. Simulated-mode and test callers use Ingest directly.
func decodeRecord(_ []byte) (model.FlowRecord, bool) {
	return model.FlowRecord{}, false
}

// Stop closes the socket and waits for the accept loop to exit.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.conn != nil {
		l.conn.Close()
	}
	l.wg.Wait()
}

// Ingest appends one flow record to the retained buffer, trimming the
// oldest entries once maxRetained is exceeded.
func (l *Listener) Ingest(record model.FlowRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	if len(l.records) > maxRetained {
		l.records = l.records[len(l.records)-maxRetained:]
	}
}

// Filter narrows the retained buffer by since/src/dst, capped at limit
// most-recent matches (limit<=0 means unbounded).
type Filter struct {
	Since time.Time
	Src   string
	Dst   string
	Limit int
}

// Query returns records matching f, most recent last.
func (l *Listener) Query(f Filter) []model.FlowRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []model.FlowRecord
	for _, r := range l.records {
		if !f.Since.IsZero() && r.StartTime.Before(f.Since) {
			continue
		}
		if f.Src != "" && r.SrcAddress != f.Src {
			continue
		}
		if f.Dst != "" && r.DstAddress != f.Dst {
			continue
		}
		matched = append(matched, r)
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[len(matched)-f.Limit:]
	}
	return matched
}

// Aggregate summarizes records in [since, now) into totals plus top-N
// source, destination, and port tables, topN defaulting to 5.
func (l *Listener) Aggregate(since time.Time, topN int) model.FlowAggregate {
	if topN <= 0 {
		topN = 5
	}

	l.mu.RLock()
	window := make([]model.FlowRecord, 0, len(l.records))
	for _, r := range l.records {
		if since.IsZero() || !r.StartTime.Before(since) {
			window = append(window, r)
		}
	}
	l.mu.RUnlock()

	srcBytes := make(map[string]uint64)
	dstBytes := make(map[string]uint64)
	portBytes := make(map[string]uint64)
	var totalBytes, totalPackets uint64

	for _, r := range window {
		totalBytes += r.Bytes
		totalPackets += r.Packets
		srcBytes[r.SrcAddress] += r.Bytes
		dstBytes[r.DstAddress] += r.Bytes
		port := fmt.Sprintf("%s/%d", model.ProtocolName(r.Protocol), r.DstPort)
		portBytes[port] += r.Bytes
	}

	return model.FlowAggregate{
		TotalBytes:   totalBytes,
		TotalPackets: totalPackets,
		TopSources:   topTalkers(srcBytes, topN),
		TopDests:     topTalkers(dstBytes, topN),
		TopPorts:     topTalkers(portBytes, topN),
	}
}

// TopTalkers ranks every address appearing as either source or
// destination by combined bytes across both directions, returning the
// top topN (default 5).
func (l *Listener) TopTalkers(since time.Time, topN int) []model.FlowTopTalker {
	if topN <= 0 {
		topN = 5
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	combined := make(map[string]uint64)
	for _, r := range l.records {
		if !since.IsZero() && r.StartTime.Before(since) {
			continue
		}
		combined[r.SrcAddress] += r.Bytes
		combined[r.DstAddress] += r.Bytes
	}
	return topTalkers(combined, topN)
}

func topTalkers(byAddr map[string]uint64, topN int) []model.FlowTopTalker {
	talkers := make([]model.FlowTopTalker, 0, len(byAddr))
	for addr, bytes := range byAddr {
		talkers = append(talkers, model.FlowTopTalker{Address: addr, Bytes: bytes})
	}
	sort.Slice(talkers, func(i, j int) bool {
		if talkers[i].Bytes != talkers[j].Bytes {
			return talkers[i].Bytes > talkers[j].Bytes
		}
		return talkers[i].Address < talkers[j].Address
	})
	if len(talkers) > topN {
		talkers = talkers[:topN]
	}
	return talkers
}
