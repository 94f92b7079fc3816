package model

import (
	"time"

	"github.com/google/uuid"
)

// ProductionRecord is one node in the process tree. A record may consume
// a parent record's outputs (ParentRecordID set) or stock boxes directly.
// The parent relation must never form a cycle — RecordService.SetParent
// enforces this at write time.
type ProductionRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProcessID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ParentRecordID *uuid.UUID `gorm:"type:uuid;index"`
	Notes          *string
	StartedAt      time.Time  `gorm:"not null"`
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Parent *ProductionRecord `gorm:"foreignKey:ParentRecordID"`
}

// IsRoot reports whether the record has no parent.
func (r *ProductionRecord) IsRoot() bool { return r.ParentRecordID == nil }
