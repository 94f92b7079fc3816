package repository

import (
	"context"

	"prodtrace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PalletRepository is the read side of the stock subsystem. Boxes are
// read-only here except for the availability flag, which consumption
// activity flips through SetBoxAvailabilityTx.
type PalletRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pallet, error)
	// SearchByLot returns pallets holding at least one available box of the
	// queried lot, with Boxes pre-filtered to those boxes.
	SearchByLot(ctx context.Context, lot string) ([]model.Pallet, error)
	FindBoxByID(ctx context.Context, id uuid.UUID) (*model.StockBox, error)
	SetBoxAvailabilityTx(tx *gorm.DB, boxID uuid.UUID, available bool) error
}

type palletRepo struct{ db *gorm.DB }

func NewPalletRepository(db *gorm.DB) PalletRepository { return &palletRepo{db: db} }

func (r *palletRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Pallet, error) {
	var p model.Pallet
	err := r.db.WithContext(ctx).Preload("Boxes").First(&p, id).Error
	return &p, err
}

func (r *palletRepo) SearchByLot(ctx context.Context, lot string) ([]model.Pallet, error) {
	var pallets []model.Pallet
	err := r.db.WithContext(ctx).
		Preload("Boxes", "lot = ? AND available = true", lot).
		Joins("JOIN stock_boxes ON stock_boxes.pallet_id = pallets.id").
		Where("stock_boxes.lot = ? AND stock_boxes.available = true", lot).
		Group("pallets.id").
		Find(&pallets).Error
	return pallets, err
}

func (r *palletRepo) FindBoxByID(ctx context.Context, id uuid.UUID) (*model.StockBox, error) {
	var b model.StockBox
	err := r.db.WithContext(ctx).First(&b, id).Error
	return &b, err
}

func (r *palletRepo) SetBoxAvailabilityTx(tx *gorm.DB, boxID uuid.UUID, available bool) error {
	return tx.Model(&model.StockBox{}).Where("id = ?", boxID).
		Update("available", available).Error
}
