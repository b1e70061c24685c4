package model

// ChangeKind classifies a detected difference between two poll cycles.
type ChangeKind string

const (
	ChangeAdded         ChangeKind = "added"
	ChangeStatusUpdated ChangeKind = "status_changed"
	ChangeRemoved       ChangeKind = "removed"
)

// Change is one detected difference. Course carries the full record so
// downstream rendering needs no further lookups: the new record for
// added/status_changed events, the last known record for removed events.
// Old is set only for status_changed.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Course Course     `json:"course"`
	Old    *Course    `json:"old,omitempty"`
}
