package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/PhilippVn/ZHS-Scraper/internal/model"
)

// Snapshot is the world state as of the last successful poll that produced
// changes. LastCheckedAt only advances when a snapshot is written, which
// only happens on change; it is not a liveness signal.
type Snapshot struct {
	Courses       []model.Course `json:"courses"`
	LastCheckedAt time.Time      `json:"last_checked_at"`
}

// SnapshotStore persists the snapshot as a JSON state file.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a store backed by the given file path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Load reads the last persisted snapshot. A missing file is the initial
// empty state, not an error.
func (s *SnapshotStore) Load() (Snapshot, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot %s: %w", s.path, err)
	}
	return snap, nil
}

// Save replaces the persisted snapshot atomically.
func (s *SnapshotStore) Save(snap Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := WriteAtomic(s.path, b); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", s.path, err)
	}
	return nil
}
