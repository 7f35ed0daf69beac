package configstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupConfigAppendsNewSnapshot(t *testing.T) {
	s := New()
	first := s.BackupConfig("d1", "interface eth0\n no shutdown\n")
	second := s.BackupConfig("d1", "interface eth0\n shutdown\n")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, s.History("d1"), 2)
}

func TestBackupConfigIsIdempotentOnUnchangedContent(t *testing.T) {
	s := New()
	first := s.BackupConfig("d1", "same config\n")
	second := s.BackupConfig("d1", "same config\n")

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, s.History("d1"), 1)
}

func TestDiffDefaultsToLastTwoSnapshots(t *testing.T) {
	s := New()
	s.BackupConfig("d1", "line1\nline2\n")
	s.BackupConfig("d1", "line1\nline2\nline3\n")

	diff, err := s.Diff("d1", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, diff.LinesAdded)
	assert.Equal(t, 0, diff.LinesRemoved)
	assert.Equal(t, 0, diff.LinesChanged)
	assert.Contains(t, diff.UnifiedDiff, "line3")
}

func TestDiffLinesChangedIsMinOfAddedRemoved(t *testing.T) {
	s := New()
	s.BackupConfig("d1", "a\nb\nc\n")
	s.BackupConfig("d1", "a\nx\ny\nz\n")

	diff, err := s.Diff("d1", "", "")
	require.NoError(t, err)
	assert.Equal(t, diff.LinesChanged, minInt(diff.LinesAdded, diff.LinesRemoved))
}

func TestDiffWithFewerThanTwoSnapshotsErrors(t *testing.T) {
	s := New()
	s.BackupConfig("d1", "only one\n")
	_, err := s.Diff("d1", "", "")
	assert.Error(t, err)
}

func TestGoldenAndCompareToGolden(t *testing.T) {
	s := New()
	s.Golden("d1", "baseline config\n")
	s.BackupConfig("d1", "baseline config\nextra line\n")

	diff, err := s.CompareToGolden("d1")
	require.NoError(t, err)
	assert.Equal(t, 1, diff.LinesAdded)
}

func TestCompareToGoldenWithoutGoldenErrors(t *testing.T) {
	s := New()
	s.BackupConfig("d1", "config\n")
	_, err := s.CompareToGolden("d1")
	assert.Error(t, err)
}

func TestSearchCaseInsensitiveAcrossLatestSnapshots(t *testing.T) {
	s := New()
	s.BackupConfig("d1", "interface Eth0\n ip address 10.0.0.1\n")
	s.BackupConfig("d2", "interface eth1\n no IP address\n")

	hits := s.Search("ip address")
	assert.Len(t, hits, 2)
}

func TestSearchOnlyScansLatestSnapshotPerDevice(t *testing.T) {
	s := New()
	s.BackupConfig("d1", "old marker here\n")
	s.BackupConfig("d1", "no longer present\n")

	hits := s.Search("old marker")
	assert.Empty(t, hits)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
