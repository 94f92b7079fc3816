package model

import (
	"time"

	"github.com/google/uuid"
)

// ProductionInput links one stock box to the production record that
// consumed it. A box may be referenced by at most one active input —
// enforced by the ledger service plus a unique index on stock_box_id.
type ProductionInput struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductionRecordID uuid.UUID `gorm:"type:uuid;not null;index"`
	StockBoxID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt          time.Time

	Record *ProductionRecord `gorm:"foreignKey:ProductionRecordID"`
	Box    *StockBox         `gorm:"foreignKey:StockBoxID"`
}
