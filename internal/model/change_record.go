package model

import "time"

// ChangeRecord is the archived form of a Change (cold table). The live
// snapshot lives in a JSON state file; this table only serves the API and
// keeps an audit trail of delivered notifications.
type ChangeRecord struct {
	ID         int64     `gorm:"autoIncrement;primaryKey" json:"id"`
	OccurredAt time.Time `gorm:"not null;index" json:"occurredAt"`
	SourceName string    `gorm:"size:256;not null;index" json:"sourceName"`
	TableName  string    `gorm:"size:256;not null" json:"tableName"`
	CourseKey  string    `gorm:"size:512;not null" json:"courseKey"`
	Kind       string    `gorm:"size:32;not null;index" json:"kind"`
	OldStatus  string    `gorm:"size:32" json:"oldStatus,omitempty"`
	NewStatus  string    `gorm:"size:32;not null" json:"newStatus"`
	SourceURL  string    `gorm:"size:1024" json:"sourceUrl"`
	Details    string    `gorm:"type:text" json:"details"`
}
