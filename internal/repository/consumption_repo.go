package repository

import (
	"context"

	"prodtrace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConsumptionRepository persists parent-output consumptions.
type ConsumptionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionOutputConsumption, error)
	ListByRecord(ctx context.Context, recordID uuid.UUID) ([]model.ProductionOutputConsumption, error)
	// ListByOutput returns every consumption drawing from one parent output,
	// across all consuming records.
	ListByOutput(ctx context.Context, outputID uuid.UUID) ([]model.ProductionOutputConsumption, error)

	CreateTx(tx *gorm.DB, c *model.ProductionOutputConsumption) error
	UpdateTx(tx *gorm.DB, c *model.ProductionOutputConsumption) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB
}

type consumptionRepo struct{ db *gorm.DB }

func NewConsumptionRepository(db *gorm.DB) ConsumptionRepository {
	return &consumptionRepo{db: db}
}

func (r *consumptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionOutputConsumption, error) {
	var c model.ProductionOutputConsumption
	err := r.db.WithContext(ctx).Preload("Output").First(&c, id).Error
	return &c, err
}

func (r *consumptionRepo) ListByRecord(ctx context.Context, recordID uuid.UUID) ([]model.ProductionOutputConsumption, error) {
	var consumptions []model.ProductionOutputConsumption
	err := r.db.WithContext(ctx).Preload("Output").
		Where("production_record_id = ?", recordID).
		Order("created_at ASC").Find(&consumptions).Error
	return consumptions, err
}

func (r *consumptionRepo) ListByOutput(ctx context.Context, outputID uuid.UUID) ([]model.ProductionOutputConsumption, error) {
	var consumptions []model.ProductionOutputConsumption
	err := r.db.WithContext(ctx).Where("output_id = ?", outputID).Find(&consumptions).Error
	return consumptions, err
}

func (r *consumptionRepo) CreateTx(tx *gorm.DB, c *model.ProductionOutputConsumption) error {
	return tx.Create(c).Error
}

func (r *consumptionRepo) UpdateTx(tx *gorm.DB, c *model.ProductionOutputConsumption) error {
	return tx.Save(c).Error
}

func (r *consumptionRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.ProductionOutputConsumption{}, id).Error
}

func (r *consumptionRepo) DB() *gorm.DB { return r.db }
