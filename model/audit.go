package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records quest lifecycle actions for operational review, separate
// from the per-quest embedded audit trail.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID    string         `gorm:"index:idx_audit_trace;size:36" json:"trace_id"`
	UserID     string         `gorm:"index:idx_audit_user;size:64;not null" json:"user_id"`
	QuestID    string         `gorm:"index:idx_audit_quest;size:64" json:"quest_id"`
	Action     string         `gorm:"size:64;not null" json:"action"`
	Detail     datatypes.JSON `json:"detail"`
	Error      string         `gorm:"type:text" json:"error"`
	DurationMs int            `json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
