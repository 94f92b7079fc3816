package repository

import (
	"context"

	"prodtrace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutputRepository persists production outputs and their sources. Sources
// are replaced wholesale with their output (full-state sync), never patched
// row by row from outside.
type OutputRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionOutput, error)
	ListByRecord(ctx context.Context, recordID uuid.UUID) ([]model.ProductionOutput, error)
	// ListSourcesByOrigin returns every source on any output referencing the
	// given origin (input or consumption id).
	ListSourcesByOrigin(ctx context.Context, originID uuid.UUID) ([]model.OutputSource, error)

	CreateTx(tx *gorm.DB, o *model.ProductionOutput) error
	UpdateTx(tx *gorm.DB, o *model.ProductionOutput) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	ReplaceSourcesTx(tx *gorm.DB, outputID uuid.UUID, sources []model.OutputSource) error

	DB() *gorm.DB
}

type outputRepo struct{ db *gorm.DB }

func NewOutputRepository(db *gorm.DB) OutputRepository { return &outputRepo{db: db} }

func (r *outputRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionOutput, error) {
	var o model.ProductionOutput
	err := r.db.WithContext(ctx).Preload("Sources").First(&o, id).Error
	return &o, err
}

func (r *outputRepo) ListByRecord(ctx context.Context, recordID uuid.UUID) ([]model.ProductionOutput, error) {
	var outputs []model.ProductionOutput
	err := r.db.WithContext(ctx).Preload("Sources").
		Where("production_record_id = ?", recordID).
		Order("created_at ASC").Find(&outputs).Error
	return outputs, err
}

func (r *outputRepo) ListSourcesByOrigin(ctx context.Context, originID uuid.UUID) ([]model.OutputSource, error) {
	var sources []model.OutputSource
	err := r.db.WithContext(ctx).
		Where("production_input_id = ? OR consumption_id = ?", originID, originID).
		Find(&sources).Error
	return sources, err
}

func (r *outputRepo) CreateTx(tx *gorm.DB, o *model.ProductionOutput) error {
	return tx.Create(o).Error
}

func (r *outputRepo) UpdateTx(tx *gorm.DB, o *model.ProductionOutput) error {
	// Sources are managed through ReplaceSourcesTx; Save would try to
	// upsert the association rows as well.
	return tx.Omit("Sources").Save(o).Error
}

func (r *outputRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("output_id = ?", id).Delete(&model.OutputSource{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.ProductionOutput{}, id).Error
}

func (r *outputRepo) ReplaceSourcesTx(tx *gorm.DB, outputID uuid.UUID, sources []model.OutputSource) error {
	if err := tx.Where("output_id = ?", outputID).Delete(&model.OutputSource{}).Error; err != nil {
		return err
	}
	for i := range sources {
		sources[i].OutputID = outputID
	}
	if len(sources) == 0 {
		return nil
	}
	return tx.Create(&sources).Error
}

func (r *outputRepo) DB() *gorm.DB { return r.db }
