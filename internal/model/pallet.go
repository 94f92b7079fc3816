package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pallet groups stock boxes from the same physical storage unit.
// Owned by the stock subsystem — read-only here except for box availability.
type Pallet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `gorm:"uniqueIndex;not null"`
	Lot       string    `gorm:"index"`
	CreatedAt time.Time

	Boxes []StockBox `gorm:"foreignKey:PalletID"`
}

// StockBox is a single weighable unit of raw material. Available flips to
// false the moment a ProductionInput consumes the box and back to true when
// that input is removed.
type StockBox struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PalletID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Lot           string          `gorm:"index;not null"`
	NetWeightKg   decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	GS1128Code    string          `gorm:"column:gs1_128_code;index;not null"`
	Available     bool            `gorm:"not null;default:true"`
	UnitCostPerKg decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	CreatedAt     time.Time

	Pallet  *Pallet  `gorm:"foreignKey:PalletID"`
	Product *Product `gorm:"foreignKey:ProductID"`
}

// TableName overrides GORM's default pluralization (stock_boxs → stock_boxes).
func (StockBox) TableName() string { return "stock_boxes" }
