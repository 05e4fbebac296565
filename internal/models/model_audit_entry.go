package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/lendery/backend/pkg/types"
)

// AuditEntry is the evidentiary record of one admin override. Append-only:
// rows are never updated or deleted, and every out-of-band state change has
// exactly one.
type AuditEntry struct {
	ID         string           `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ActorID    string           `gorm:"column:actor_id;type:varchar(64);not null;index" json:"actor_id"`
	ActionType string           `gorm:"column:action_type;type:varchar(64);not null" json:"action_type"`
	TargetID   string           `gorm:"column:target_id;type:varchar(64);not null;index" json:"target_id"`
	TargetKind types.TargetKind `gorm:"column:target_kind;type:varchar(32);not null" json:"target_kind"`
	// Reason is mandatory; the override controller rejects blank reasons
	// before any mutation.
	Reason    string         `gorm:"column:reason;type:text;not null" json:"reason"`
	Detail    datatypes.JSON `gorm:"column:detail" json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

func (AuditEntry) TableName() string { return "audit_entry" }
