package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/PhilippVn/ZHS-Scraper/internal/model"
)

// HistoryStore archives delivered change events (cold table). The live
// snapshot stays in the JSON state file; the archive only feeds the API.
type HistoryStore interface {
	SaveChanges(ctx context.Context, now time.Time, changes []model.Change, keys model.KeySpec) error
	Recent(ctx context.Context, limit int) ([]model.ChangeRecord, error)
}

// gormHistoryStore implements HistoryStore using GORM.
type gormHistoryStore struct {
	db *gorm.DB
}

// NewGormHistoryStore creates a new GORM-backed history store.
func NewGormHistoryStore(db *gorm.DB) HistoryStore {
	return &gormHistoryStore{db: db}
}

// SaveChanges appends one archive row per change event in a single
// transaction.
func (s *gormHistoryStore) SaveChanges(ctx context.Context, now time.Time, changes []model.Change, keys model.KeySpec) error {
	if len(changes) == 0 {
		return nil
	}

	records := make([]model.ChangeRecord, 0, len(changes))
	for _, c := range changes {
		rec := model.ChangeRecord{
			OccurredAt: now,
			SourceName: c.Course.SourceName,
			TableName:  c.Course.TableName,
			CourseKey:  keys.CourseKey(c.Course),
			Kind:       string(c.Kind),
			NewStatus:  string(c.Course.Status),
			SourceURL:  c.Course.SourceURL,
		}
		switch c.Kind {
		case model.ChangeStatusUpdated:
			if c.Old != nil {
				rec.OldStatus = string(c.Old.Status)
			}
		case model.ChangeRemoved:
			// For a removed course the archived status is its last known one.
			rec.OldStatus = string(c.Course.Status)
			rec.NewStatus = "removed"
		}
		if details, err := json.Marshal(c.Course.Fields); err == nil {
			rec.Details = string(details)
		}
		records = append(records, rec)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("failed to archive %d change records: %w", len(records), err)
		}
		return nil
	})
}

// Recent returns the newest archived change records, newest first.
func (s *gormHistoryStore) Recent(ctx context.Context, limit int) ([]model.ChangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []model.ChangeRecord
	err := s.db.WithContext(ctx).
		Order("occurred_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query change history: %w", err)
	}
	return records, nil
}
