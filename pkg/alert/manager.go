// Package alert implements the alert lifecycle state machine: dedup on
// add, acknowledge/resolve transitions, suppression rules, and an
// optional Redis-mirrored dedup index for multi-instance deployments.
package alert

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/netopshub/netopshub/internal/errors"
	"github.com/netopshub/netopshub/pkg/model"
)

// Mirror is the optional sidecar interface the Manager mirrors its
// active-alert dedup index through. A nil Mirror disables mirroring.
type Mirror interface {
	Store(dedupKey, alertID string) error
	Load() (map[string]string, error)
}

// Manager tracks alerts through the active/acknowledged/resolved/
// suppressed state machine, deduplicating on add.
type Manager struct {
	mu          sync.Mutex
	alerts      map[string]*model.Alert
	dedupIndex  map[string]string // DedupKey() -> alert id, active alerts only
	suppression []model.SuppressionRule
	mirror      Mirror
}

// New creates an empty Manager. mirror may be nil.
func New(mirror Mirror) *Manager {
	return &Manager{
		alerts:     make(map[string]*model.Alert),
		dedupIndex: make(map[string]string),
		mirror:     mirror,
	}
}

// LoadMirror seeds the dedup index from the mirror sidecar, if configured.
// Best-effort: a mirror error never fails startup.
func (m *Manager) LoadMirror() {
	if m.mirror == nil {
		return
	}
	index, err := m.mirror.Load()
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range index {
		m.dedupIndex[k] = v
	}
}

// AddSuppressionRule registers a rule evaluated on every Add.
func (m *Manager) AddSuppressionRule(r model.SuppressionRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppression = append(m.suppression, r)
}

// Add inserts a new alert, applying dedup and suppression. If an
// existing active alert shares (device, metric-type), it is updated in
// place (value, description, severity escalated to the max, correlation
// id taken from the incoming alert when it is non-empty) and returned
// rather than creating a new record.
func (m *Manager) Add(a model.Alert) model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	key := a.DedupKey()

	if existingID, ok := m.dedupIndex[key]; ok {
		if existing, ok := m.alerts[existingID]; ok && existing.State == model.AlertStateActive {
			existing.MetricValue = a.MetricValue
			existing.Description = a.Description
			existing.Severity = model.MaxSeverity(existing.Severity, a.Severity)
			if a.CorrelationID != "" {
				existing.CorrelationID = a.CorrelationID
			}
			m.mirrorStore(key, existing.ID)
			return *existing
		}
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.State = model.AlertStateActive

	for _, rule := range m.suppression {
		if rule.Matches(a, now) {
			a.State = model.AlertStateSuppressed
			break
		}
	}

	stored := a
	m.alerts[stored.ID] = &stored

	if stored.State == model.AlertStateActive {
		m.dedupIndex[key] = stored.ID
		m.mirrorStore(key, stored.ID)
	}

	return stored
}

func (m *Manager) mirrorStore(key, alertID string) {
	if m.mirror == nil {
		return
	}
	_ = m.mirror.Store(key, alertID)
}

// Get returns the alert by id.
func (m *Manager) Get(id string) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return model.Alert{}, errors.UnknownEntity("alert", id)
	}
	return *a, nil
}

// Acknowledge transitions an active alert to acknowledged.
func (m *Manager) Acknowledge(id, by string) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return model.Alert{}, errors.UnknownEntity("alert", id)
	}
	if a.State != model.AlertStateActive {
		return model.Alert{}, errors.New(errors.ErrCodeValidation, "alert "+id+" is "+string(a.State)+", cannot acknowledge")
	}
	now := time.Now()
	a.State = model.AlertStateAcknowledged
	a.AcknowledgedAt = &now
	a.AcknowledgedBy = by
	return *a, nil
}

// Resolve transitions an active or acknowledged alert to resolved,
// clearing it from the dedup index.
func (m *Manager) Resolve(id string) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return model.Alert{}, errors.UnknownEntity("alert", id)
	}
	if a.State == model.AlertStateResolved {
		return model.Alert{}, errors.New(errors.ErrCodeValidation, "alert "+id+" is already resolved")
	}
	now := time.Now()
	a.State = model.AlertStateResolved
	a.ResolvedAt = &now

	key := a.DedupKey()
	if m.dedupIndex[key] == a.ID {
		delete(m.dedupIndex, key)
	}
	return *a, nil
}

// List returns all alerts, optionally filtered by device and/or state.
func (m *Manager) List(deviceID string, state model.AlertState) []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.alerts))
	for id := range m.alerts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.Alert, 0, len(ids))
	for _, id := range ids {
		a := m.alerts[id]
		if deviceID != "" && a.DeviceID != deviceID {
			continue
		}
		if state != "" && a.State != state {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// Summary totals alerts by state, by severity, and by device (active only).
type Summary struct {
	ByState    map[model.AlertState]int
	BySeverity map[model.Severity]int
	ByDevice   map[string]int
}

// GetSummary aggregates the current alert population.
func (m *Manager) GetSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		ByState:    make(map[model.AlertState]int),
		BySeverity: make(map[model.Severity]int),
		ByDevice:   make(map[string]int),
	}
	for _, a := range m.alerts {
		s.ByState[a.State]++
		s.BySeverity[a.Severity]++
		if a.State == model.AlertStateActive {
			s.ByDevice[a.DeviceID]++
		}
	}
	return s
}
