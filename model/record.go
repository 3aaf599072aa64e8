package model

import (
	"time"

	"gorm.io/datatypes"
)

// Record is one row in the generic entity store: a two-part key, a version
// counter used for conditional writes, and the entity document as JSON.
// Status is denormalized out of the document so filtered listings hit an
// index instead of scanning documents.
type Record struct {
	PK        string         `gorm:"primaryKey;size:128" json:"pk"`
	SK        string         `gorm:"primaryKey;size:128" json:"sk"`
	Version   int64          `gorm:"not null" json:"version"`
	Status    string         `gorm:"index:idx_records_status;size:16" json:"status"`
	Doc       datatypes.JSON `json:"doc"`
	CreatedAt time.Time      `gorm:"index:idx_records_created;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
