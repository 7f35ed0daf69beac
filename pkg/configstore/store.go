// Package configstore holds an append-only, content-addressed history
// of device configuration captures, with unified diffing, golden
// baseline comparison, and full-text search.
package configstore

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/netopshub/netopshub/internal/errors"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/pmezard/go-difflib/difflib"
)

// Store holds per-device append-only snapshot history plus an optional
// per-device golden baseline.
type Store struct {
	mu        sync.Mutex
	snapshots map[string][]model.ConfigSnapshot
	golden    map[string]model.ConfigSnapshot
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		snapshots: make(map[string][]model.ConfigSnapshot),
		golden:    make(map[string]model.ConfigSnapshot),
	}
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// BackupConfig appends a new snapshot for device unless its content
// hash matches the latest existing snapshot, in which case the call is
// idempotent and returns the existing snapshot unchanged.
func (s *Store) BackupConfig(device, text string) model.ConfigSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := contentHash(text)
	history := s.snapshots[device]
	if len(history) > 0 {
		latest := history[len(history)-1]
		if latest.ContentSHA == hash {
			return latest
		}
	}

	snap := model.ConfigSnapshot{
		ID:         uuid.NewString(),
		DeviceID:   device,
		RawConfig:  text,
		ContentSHA: hash,
		CapturedAt: time.Now(),
		Source:     "backup",
	}
	s.snapshots[device] = append(history, snap)
	return snap
}

// Latest returns the most recent snapshot for device.
func (s *Store) Latest(device string) (model.ConfigSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.snapshots[device]
	if len(history) == 0 {
		return model.ConfigSnapshot{}, errors.UnknownEntity("config snapshot for device", device)
	}
	return history[len(history)-1], nil
}

// Devices returns the IDs of every device with at least one snapshot.
func (s *Store) Devices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	devices := make([]string, 0, len(s.snapshots))
	for device := range s.snapshots {
		devices = append(devices, device)
	}
	sort.Strings(devices)
	return devices
}

// History returns all snapshots for device, oldest first.
func (s *Store) History(device string) []model.ConfigSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ConfigSnapshot, len(s.snapshots[device]))
	copy(out, s.snapshots[device])
	return out
}

func (s *Store) find(device, id string) (model.ConfigSnapshot, bool) {
	for _, snap := range s.snapshots[device] {
		if snap.ID == id {
			return snap, true
		}
	}
	return model.ConfigSnapshot{}, false
}

func unifiedDiff(before, after model.ConfigSnapshot) model.ConfigDiff {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before.RawConfig),
		B:        difflib.SplitLines(after.RawConfig),
		FromFile: before.ID,
		ToFile:   after.ID,
		Context:  3,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)

	added, removed := 0, 0
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}

	changed := added
	if removed < changed {
		changed = removed
	}

	return model.ConfigDiff{
		BeforeID:     before.ID,
		AfterID:      after.ID,
		UnifiedDiff:  text,
		LinesAdded:   added,
		LinesRemoved: removed,
		LinesChanged: changed,
	}
}

// Diff produces a unified diff between two snapshots of device. Empty
// beforeID/afterID default to the last two snapshots.
func (s *Store) Diff(device, beforeID, afterID string) (model.ConfigDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.snapshots[device]
	var before, after model.ConfigSnapshot

	if beforeID == "" && afterID == "" {
		if len(history) < 2 {
			return model.ConfigDiff{}, errors.New(errors.ErrCodeInsufficientData, "device "+device+" has fewer than two snapshots")
		}
		before = history[len(history)-2]
		after = history[len(history)-1]
	} else {
		var ok bool
		before, ok = s.find(device, beforeID)
		if !ok {
			return model.ConfigDiff{}, errors.UnknownEntity("config snapshot", beforeID)
		}
		after, ok = s.find(device, afterID)
		if !ok {
			return model.ConfigDiff{}, errors.UnknownEntity("config snapshot", afterID)
		}
	}

	return unifiedDiff(before, after), nil
}

// Golden sets the per-device baseline snapshot from text, content-addressed
// the same way BackupConfig is.
func (s *Store) Golden(device, text string) model.ConfigSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.ConfigSnapshot{
		ID:         uuid.NewString(),
		DeviceID:   device,
		RawConfig:  text,
		ContentSHA: contentHash(text),
		CapturedAt: time.Now(),
		Source:     "golden",
	}
	s.golden[device] = snap
	return snap
}

// CompareToGolden diffs device's current (latest) snapshot against its
// golden baseline.
func (s *Store) CompareToGolden(device string) (model.ConfigDiff, error) {
	s.mu.Lock()
	golden, hasGolden := s.golden[device]
	history := s.snapshots[device]
	s.mu.Unlock()

	if !hasGolden {
		return model.ConfigDiff{}, errors.UnknownEntity("golden baseline for device", device)
	}
	if len(history) == 0 {
		return model.ConfigDiff{}, errors.UnknownEntity("config snapshot for device", device)
	}

	return unifiedDiff(golden, history[len(history)-1]), nil
}

// Search performs a case-insensitive substring search for pattern
// across each device's latest snapshot.
func (s *Store) Search(pattern string) []model.SearchHit {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(pattern)
	var hits []model.SearchHit

	for device, history := range s.snapshots {
		if len(history) == 0 {
			continue
		}
		latest := history[len(history)-1]
		for i, line := range strings.Split(latest.RawConfig, "\n") {
			if strings.Contains(strings.ToLower(line), needle) {
				hits = append(hits, model.SearchHit{DeviceID: device, Line: i + 1, Text: line})
			}
		}
	}
	return hits
}
