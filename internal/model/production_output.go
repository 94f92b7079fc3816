package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source type discriminator for OutputSource.
const (
	SourceTypeStockBox     = "stock_box"
	SourceTypeParentOutput = "parent_output"
)

// ProductionOutput is a declared product quantity produced by a record.
// Its Sources trace the declared weight back to the inputs and parent-output
// consumptions that physically contributed to it.
type ProductionOutput struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductionRecordID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID              *string
	Boxes              int             `gorm:"not null;default:0"`
	WeightKg           decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Record  *ProductionRecord `gorm:"foreignKey:ProductionRecordID"`
	Product *Product          `gorm:"foreignKey:ProductID"`
	Sources []OutputSource    `gorm:"foreignKey:OutputID"`
}

// OutputSource is a weighted link from an output back to one origin:
// either a ProductionInput (stock_box) or a ProductionOutputConsumption
// (parent_output). Exactly one of the two reference columns is set,
// matching SourceType. The contributed weight is the canonical stored
// value; the percentage is always derived from it.
type OutputSource struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OutputID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	SourceType          string          `gorm:"not null"` // "stock_box" | "parent_output"
	ProductionInputID   *uuid.UUID      `gorm:"type:uuid;index"`
	ConsumptionID       *uuid.UUID      `gorm:"type:uuid;index"`
	ContributedWeightKg decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Input       *ProductionInput            `gorm:"foreignKey:ProductionInputID"`
	Consumption *ProductionOutputConsumption `gorm:"foreignKey:ConsumptionID"`
}

// OriginID returns the id of the referenced origin, regardless of kind.
func (s *OutputSource) OriginID() uuid.UUID {
	if s.SourceType == SourceTypeStockBox && s.ProductionInputID != nil {
		return *s.ProductionInputID
	}
	if s.ConsumptionID != nil {
		return *s.ConsumptionID
	}
	return uuid.Nil
}

// Percentage derives the contribution percentage from the canonical weight,
// rounded to 2 decimals. Returns nil when the output weight is zero or
// unknown — the percentage is undefined in that case.
func (s *OutputSource) Percentage(outputWeightKg decimal.Decimal) *decimal.Decimal {
	if outputWeightKg.IsZero() {
		return nil
	}
	pct := s.ContributedWeightKg.Div(outputWeightKg).Mul(decimal.NewFromInt(100)).Round(2)
	return &pct
}
