package repository

import (
	"context"

	"prodtrace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InputRepository persists production inputs (one stock box consumed by one
// record). Tx variants exist for use inside the ledger sync transaction.
type InputRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionInput, error)
	ListByRecord(ctx context.Context, recordID uuid.UUID) ([]model.ProductionInput, error)
	FindActiveByBox(ctx context.Context, boxID uuid.UUID) (*model.ProductionInput, error)

	CreateTx(tx *gorm.DB, in *model.ProductionInput) error
	UpdateTx(tx *gorm.DB, in *model.ProductionInput) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB
}

type inputRepo struct{ db *gorm.DB }

func NewInputRepository(db *gorm.DB) InputRepository { return &inputRepo{db: db} }

func (r *inputRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionInput, error) {
	var in model.ProductionInput
	err := r.db.WithContext(ctx).Preload("Box").First(&in, id).Error
	return &in, err
}

func (r *inputRepo) ListByRecord(ctx context.Context, recordID uuid.UUID) ([]model.ProductionInput, error) {
	var inputs []model.ProductionInput
	err := r.db.WithContext(ctx).Preload("Box").
		Where("production_record_id = ?", recordID).
		Order("created_at ASC").Find(&inputs).Error
	return inputs, err
}

func (r *inputRepo) FindActiveByBox(ctx context.Context, boxID uuid.UUID) (*model.ProductionInput, error) {
	var in model.ProductionInput
	err := r.db.WithContext(ctx).Where("stock_box_id = ?", boxID).First(&in).Error
	return &in, err
}

func (r *inputRepo) CreateTx(tx *gorm.DB, in *model.ProductionInput) error {
	return tx.Create(in).Error
}

func (r *inputRepo) UpdateTx(tx *gorm.DB, in *model.ProductionInput) error {
	return tx.Save(in).Error
}

func (r *inputRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.ProductionInput{}, id).Error
}

func (r *inputRepo) DB() *gorm.DB { return r.db }
