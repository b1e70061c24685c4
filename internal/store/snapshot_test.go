package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhilippVn/ZHS-Scraper/internal/model"
)

func TestSnapshotStore_LoadMissingFileIsEmptyState(t *testing.T) {
	s := NewSnapshotStore(filepath.Join(t.TempDir(), "state.json"))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Courses)
	assert.True(t, snap.LastCheckedAt.IsZero())
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewSnapshotStore(path)

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Courses: []model.Course{
			{
				SourceName: "Krafttraining",
				TableName:  "Studio",
				SourceURL:  "https://example.invalid/kraft.html",
				Status:     model.StatusBookable,
				Fields: model.Fields{
					{Label: "Nr.", Value: "4021"},
					{Label: "Tag", Value: "Mo"},
				},
			},
		},
		LastCheckedAt: now,
	}

	require.NoError(t, s.Save(snap))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)

	// Field order must survive the round trip, the schema is display-ordered.
	assert.Equal(t, "Nr.", loaded.Courses[0].Fields[0].Label)
	assert.Equal(t, "Tag", loaded.Courses[0].Fields[1].Label)
}

func TestSnapshotStore_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewSnapshotStore(path).Load()
	assert.Error(t, err)
}

func TestWriteAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, WriteAtomic(path, []byte("one")))
	require.NoError(t, WriteAtomic(path, []byte("two")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file %s left behind", e.Name())
	}
}
