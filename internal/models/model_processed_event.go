package models

import (
	"time"
)

// ProcessedEvent records one externally-sourced webhook event that has been
// applied. Rows are append-only: the unique index on event_id is the replay
// guard, a duplicate insert is the replay signal rather than an error.
type ProcessedEvent struct {
	ID         string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	EventID    string    `gorm:"column:event_id;type:varchar(128);not null;uniqueIndex:unique_event_id" json:"event_id"`
	EventType  string    `gorm:"column:event_type;type:varchar(64);not null" json:"event_type"`
	Provider   string    `gorm:"column:provider;type:varchar(32);not null" json:"provider"`
	ReceivedAt time.Time `gorm:"column:received_at;not null" json:"received_at"`
}

func (ProcessedEvent) TableName() string { return "processed_event" }
