package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry — id→label resolution only, the catalog
// subsystem owns everything else.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU       string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"index;not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
