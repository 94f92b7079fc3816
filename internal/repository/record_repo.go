package repository

import (
	"context"

	"prodtrace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordFilter defines filters for listing production records.
type RecordFilter struct {
	ProcessID *uuid.UUID
	ParentID  *uuid.UUID
	RootsOnly bool
	Page      int
	Limit     int
}

// RecordRepository defines the data access contract for production records.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via in-memory stubs.
type RecordRepository interface {
	Create(ctx context.Context, r *model.ProductionRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionRecord, error)
	List(ctx context.Context, filter RecordFilter) ([]model.ProductionRecord, int64, error)
	Update(ctx context.Context, r *model.ProductionRecord) error
	UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error
	ListChildren(ctx context.Context, id uuid.UUID) ([]model.ProductionRecord, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type recordRepo struct{ db *gorm.DB }

func NewRecordRepository(db *gorm.DB) RecordRepository { return &recordRepo{db: db} }

func (r *recordRepo) Create(ctx context.Context, rec *model.ProductionRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recordRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionRecord, error) {
	var rec model.ProductionRecord
	err := r.db.WithContext(ctx).First(&rec, id).Error
	return &rec, err
}

func (r *recordRepo) List(ctx context.Context, filter RecordFilter) ([]model.ProductionRecord, int64, error) {
	var records []model.ProductionRecord
	var total int64

	q := r.db.WithContext(ctx).Model(&model.ProductionRecord{})
	if filter.ProcessID != nil {
		q = q.Where("process_id = ?", *filter.ProcessID)
	}
	if filter.ParentID != nil {
		q = q.Where("parent_record_id = ?", *filter.ParentID)
	}
	if filter.RootsOnly {
		q = q.Where("parent_record_id IS NULL")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit
	err := q.Order("started_at DESC").Limit(limit).Offset(offset).Find(&records).Error
	return records, total, err
}

func (r *recordRepo) Update(ctx context.Context, rec *model.ProductionRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *recordRepo) UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.ProductionRecord{}).
		Where("id = ?", id).Update("parent_record_id", parentID).Error
}

func (r *recordRepo) ListChildren(ctx context.Context, id uuid.UUID) ([]model.ProductionRecord, error) {
	var children []model.ProductionRecord
	err := r.db.WithContext(ctx).Where("parent_record_id = ?", id).Find(&children).Error
	return children, err
}

func (r *recordRepo) DB() *gorm.DB { return r.db }
