package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductionOutputConsumption links a child record to the parent-record
// output it consumed. The sum of consumed weight over all consumptions of
// one output never exceeds that output's declared weight — enforced by the
// ledger service on every sync.
type ProductionOutputConsumption struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductionRecordID uuid.UUID       `gorm:"type:uuid;not null;index"` // consuming (child) record
	OutputID           uuid.UUID       `gorm:"type:uuid;not null;index"` // consumed (parent) output
	ConsumedWeightKg   decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	ConsumedBoxes      *int
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Record *ProductionRecord `gorm:"foreignKey:ProductionRecordID"`
	Output *ProductionOutput `gorm:"foreignKey:OutputID"`
}

// TableName overrides GORM's default pluralization.
func (ProductionOutputConsumption) TableName() string {
	return "production_output_consumptions"
}
