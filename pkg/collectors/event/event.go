// Package event implements the syslog event listener: RFC 3164/5424
// parsing, priority decomposition, an ordered-regex classifier, and
// severity/category counters over a retained in-memory buffer.
package event

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/netopshub/netopshub/internal/logging"
	"github.com/netopshub/netopshub/pkg/model"
)

const maxRetained = 50000

// classifierRule pairs a category name with the first-match-wins
// pattern that assigns it. Order matters: the first pattern to match a
// message wins.
type classifierRule struct {
	category string
	pattern  *regexp.Regexp
}

var classifierRules = []classifierRule{
	{"bgp_adjacency_change", regexp.MustCompile(`(?i)%BGP-\d-ADJCHANGE|bgp.*neighbor.*(up|down)`)},
	{"ospf_state_change", regexp.MustCompile(`(?i)%OSPF-\d-ADJCHG|ospf.*state change`)},
	{"interface_state_change", regexp.MustCompile(`(?i)%LINK-\d-UPDOWN|interface.*(up|down)`)},
	{"device_restart", regexp.MustCompile(`(?i)%SYS-\d-RESTART|system restarted|reload requested`)},
	{"acl_hit", regexp.MustCompile(`(?i)%SEC-\d-IPACCESSLOG|access list.*denied`)},
	{"hsrp_state_change", regexp.MustCompile(`(?i)%HSRP-\d-STATECHANGE|hsrp.*state`)},
	{"eigrp_neighbor_change", regexp.MustCompile(`(?i)%DUAL-\d-NBRCHANGE|eigrp.*neighbor`)},
	{"stp_topology_change", regexp.MustCompile(`(?i)%SPANTREE-\d-(TOPO|PORTSTATE)CHANGE|spanning-tree.*topology change`)},
	{"config_change", regexp.MustCompile(`(?i)%SYS-\d-CONFIG|configured from`)},
	{"environmental", regexp.MustCompile(`(?i)%ENVMON-\d|temperature|fan failure|power supply`)},
}

// Classify returns the category of the first matching rule, or "" if
// no rule matches.
func Classify(message string) string {
	for _, rule := range classifierRules {
		if rule.pattern.MatchString(message) {
			return rule.category
		}
	}
	return ""
}

var (
	rfc3164Pattern = regexp.MustCompile(`^<(\d+)>(\w{3}\s+\d{1,2}\s\d{2}:\d{2}:\d{2})\s(\S+)\s([^:\[\s]+)(?:\[(\d+)\])?:\s?(.*)$`)
	rfc5424Pattern = regexp.MustCompile(`^<(\d+)>1\s(\S+)\s(\S+)\s(\S+)\s(\S+)\s(\S+)\s(?:(\[.*\])\s)?(.*)$`)
)

// Parse detects and parses one raw syslog line as RFC 5424 or RFC
// 3164, attaching the classifier category to StructuredData.
func Parse(line string) (model.SyslogMessage, bool) {
	if m, ok := parseRFC5424(line); ok {
		return withCategory(m), true
	}
	if m, ok := parseRFC3164(line); ok {
		return withCategory(m), true
	}
	return model.SyslogMessage{}, false
}

func withCategory(m model.SyslogMessage) model.SyslogMessage {
	if category := Classify(m.Message); category != "" {
		if m.StructuredData == nil {
			m.StructuredData = make(map[string]string)
		}
		m.StructuredData["category"] = category
	}
	return m
}

func parseRFC3164(line string) (model.SyslogMessage, bool) {
	groups := rfc3164Pattern.FindStringSubmatch(line)
	if groups == nil {
		return model.SyslogMessage{}, false
	}
	pri, _ := strconv.Atoi(groups[1])
	facility, severity := model.DecomposePriority(pri)

	ts, err := time.Parse("Jan _2 15:04:05", groups[2])
	if err != nil {
		ts = time.Now().UTC()
	} else {
		ts = ts.AddDate(time.Now().Year(), 0, 0)
	}

	var pid int
	if groups[5] != "" {
		pid, _ = strconv.Atoi(groups[5])
	}

	return model.SyslogMessage{
		Facility:  facility,
		Severity:  severity,
		Timestamp: ts,
		Hostname:  groups[3],
		Program:   groups[4],
		PID:       pid,
		Message:   groups[6],
	}, true
}

func parseRFC5424(line string) (model.SyslogMessage, bool) {
	groups := rfc5424Pattern.FindStringSubmatch(line)
	if groups == nil {
		return model.SyslogMessage{}, false
	}
	pri, _ := strconv.Atoi(groups[1])
	facility, severity := model.DecomposePriority(pri)

	ts, err := time.Parse(time.RFC3339, groups[2])
	if err != nil {
		ts = time.Now().UTC()
	}

	var pid int
	if groups[5] != "-" {
		pid, _ = strconv.Atoi(groups[5])
	}

	return model.SyslogMessage{
		Facility:  facility,
		Severity:  severity,
		Timestamp: ts,
		Hostname:  groups[3],
		Program:   groups[4],
		PID:       pid,
		Message:   groups[8],
	}, true
}

// Listener receives syslog lines over UDP and serves filtered queries
// and severity/category counters over its retained buffer.
type Listener struct {
	port int
	log  *logging.Logger

	mu       sync.RWMutex
	messages []model.SyslogMessage

	conn   *net.UDPConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Listener bound to port once Start is called.
func New(port int, log *logging.Logger) *Listener {
	return &Listener{port: port, log: log}
}

// Start opens the UDP socket and begins accepting lines in the
// background.
func (l *Listener) Start(ctx context.Context) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: l.port})
	if err != nil {
		return fmt.Errorf("event: listen on port %d: %w", l.port, err)
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
	buf := make([]byte, 4096)
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
		if msg, ok := Parse(string(buf[:n])); ok {
			l.Ingest(msg)
		} else if l.log != nil {
			l.log.WithFields(map[string]interface{}{"line": string(buf[:n])}).Warn("unparseable syslog line, dropped")
		}
	}
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

// Ingest appends one parsed message to the retained buffer, trimming
// the oldest entries once maxRetained is exceeded.
func (l *Listener) Ingest(msg model.SyslogMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	if len(l.messages) > maxRetained {
		l.messages = l.messages[len(l.messages)-maxRetained:]
	}
}

// Filter narrows the retained buffer by since, a maximum (i.e.
// numerically lower-or-equal) severity, hostname, and category.
type Filter struct {
	Since       time.Time
	MaxSeverity int
	HasSeverity bool
	Hostname    string
	Category    string
}

// Query returns messages matching f.
func (l *Listener) Query(f Filter) []model.SyslogMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []model.SyslogMessage
	for _, m := range l.messages {
		if !f.Since.IsZero() && m.Timestamp.Before(f.Since) {
			continue
		}
		if f.HasSeverity && m.Severity > f.MaxSeverity {
			continue
		}
		if f.Hostname != "" && m.Hostname != f.Hostname {
			continue
		}
		if f.Category != "" && m.Category() != f.Category {
			continue
		}
		matched = append(matched, m)
	}
	return matched
}

// Counters reports message counts by severity and by classifier
// category over the whole retained buffer.
type Counters struct {
	BySeverity map[int]int    `json:"by_severity"`
	ByCategory map[string]int `json:"by_category"`
}

// Counts computes Counters over the retained buffer.
func (l *Listener) Counts() Counters {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counters := Counters{BySeverity: make(map[int]int), ByCategory: make(map[string]int)}
	for _, m := range l.messages {
		counters.BySeverity[m.Severity]++
		if category := m.Category(); category != "" {
			counters.ByCategory[category]++
		}
	}
	return counters
}

// CategoryCounts returns the category names present in
// Counts().ByCategory, sorted, for deterministic display. It returns the
// names only; the counts are in Counts().
func (l *Listener) CategoryCounts() []string {
	counts := l.Counts().ByCategory
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}
