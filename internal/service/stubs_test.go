package service_test

import (
	"context"
	"errors"
	"sort"

	"prodtrace/internal/model"
	"prodtrace/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory RecordRepository stub ──────────────────────────────────────────

type stubRecordRepo struct {
	records map[uuid.UUID]*model.ProductionRecord
}

func newStubRecordRepo() *stubRecordRepo {
	return &stubRecordRepo{records: make(map[uuid.UUID]*model.ProductionRecord)}
}

func (r *stubRecordRepo) Create(_ context.Context, rec *model.ProductionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *stubRecordRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductionRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rec, nil
}

func (r *stubRecordRepo) List(_ context.Context, filter repository.RecordFilter) ([]model.ProductionRecord, int64, error) {
	var result []model.ProductionRecord
	for _, rec := range r.records {
		if filter.ProcessID != nil && rec.ProcessID != *filter.ProcessID {
			continue
		}
		if filter.RootsOnly && rec.ParentRecordID != nil {
			continue
		}
		if filter.ParentID != nil && (rec.ParentRecordID == nil || *rec.ParentRecordID != *filter.ParentID) {
			continue
		}
		result = append(result, *rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, int64(len(result)), nil
}

func (r *stubRecordRepo) Update(_ context.Context, rec *model.ProductionRecord) error {
	if _, ok := r.records[rec.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *stubRecordRepo) UpdateParent(_ context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	rec, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rec.ParentRecordID = parentID
	return nil
}

func (r *stubRecordRepo) ListChildren(_ context.Context, id uuid.UUID) ([]model.ProductionRecord, error) {
	var children []model.ProductionRecord
	for _, rec := range r.records {
		if rec.ParentRecordID != nil && *rec.ParentRecordID == id {
			children = append(children, *rec)
		}
	}
	return children, nil
}

func (r *stubRecordRepo) DB() *gorm.DB { return nil }

// ── In-memory PalletRepository stub ──────────────────────────────────────────

type stubPalletRepo struct {
	pallets map[uuid.UUID]*model.Pallet
	boxes   map[uuid.UUID]*model.StockBox
}

func newStubPalletRepo() *stubPalletRepo {
	return &stubPalletRepo{
		pallets: make(map[uuid.UUID]*model.Pallet),
		boxes:   make(map[uuid.UUID]*model.StockBox),
	}
}

func (r *stubPalletRepo) addPallet(code, lot string) *model.Pallet {
	p := &model.Pallet{ID: uuid.New(), Code: code, Lot: lot}
	r.pallets[p.ID] = p
	return p
}

func (r *stubPalletRepo) addBox(p *model.Pallet, weight, gs1Code, lot string) *model.StockBox {
	b := &model.StockBox{
		ID:          uuid.New(),
		PalletID:    p.ID,
		ProductID:   uuid.New(),
		Lot:         lot,
		NetWeightKg: decimal.RequireFromString(weight),
		GS1128Code:  gs1Code,
		Available:   true,
	}
	r.boxes[b.ID] = b
	p.Boxes = append(p.Boxes, *b)
	return b
}

// refresh rebuilds the embedded Boxes slices from the box map so pallet
// reads observe availability flips.
func (r *stubPalletRepo) refresh() {
	for _, p := range r.pallets {
		for i := range p.Boxes {
			if b, ok := r.boxes[p.Boxes[i].ID]; ok {
				p.Boxes[i] = *b
			}
		}
	}
}

func (r *stubPalletRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Pallet, error) {
	r.refresh()
	p, ok := r.pallets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubPalletRepo) SearchByLot(_ context.Context, lot string) ([]model.Pallet, error) {
	r.refresh()
	var result []model.Pallet
	for _, p := range r.pallets {
		filtered := *p
		filtered.Boxes = nil
		for _, b := range p.Boxes {
			if b.Lot == lot && b.Available {
				filtered.Boxes = append(filtered.Boxes, b)
			}
		}
		if len(filtered.Boxes) > 0 {
			result = append(result, filtered)
		}
	}
	return result, nil
}

func (r *stubPalletRepo) FindBoxByID(_ context.Context, id uuid.UUID) (*model.StockBox, error) {
	b, ok := r.boxes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (r *stubPalletRepo) SetBoxAvailabilityTx(_ *gorm.DB, boxID uuid.UUID, available bool) error {
	b, ok := r.boxes[boxID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Available = available
	return nil
}

// ── In-memory InputRepository stub ───────────────────────────────────────────

type stubInputRepo struct {
	inputs  map[uuid.UUID]*model.ProductionInput
	pallets *stubPalletRepo
}

func newStubInputRepo(pallets *stubPalletRepo) *stubInputRepo {
	return &stubInputRepo{inputs: make(map[uuid.UUID]*model.ProductionInput), pallets: pallets}
}

func (r *stubInputRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductionInput, error) {
	in, ok := r.inputs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.attachBox(in)
	return in, nil
}

func (r *stubInputRepo) attachBox(in *model.ProductionInput) {
	if r.pallets != nil {
		if b, ok := r.pallets.boxes[in.StockBoxID]; ok {
			in.Box = b
		}
	}
}

func (r *stubInputRepo) ListByRecord(_ context.Context, recordID uuid.UUID) ([]model.ProductionInput, error) {
	var result []model.ProductionInput
	for _, in := range r.inputs {
		if in.ProductionRecordID == recordID {
			r.attachBox(in)
			result = append(result, *in)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

func (r *stubInputRepo) FindActiveByBox(_ context.Context, boxID uuid.UUID) (*model.ProductionInput, error) {
	for _, in := range r.inputs {
		if in.StockBoxID == boxID {
			return in, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInputRepo) CreateTx(_ *gorm.DB, in *model.ProductionInput) error {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	r.inputs[in.ID] = in
	return nil
}

func (r *stubInputRepo) UpdateTx(_ *gorm.DB, in *model.ProductionInput) error {
	if _, ok := r.inputs[in.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.inputs[in.ID] = in
	return nil
}

func (r *stubInputRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.inputs, id)
	return nil
}

func (r *stubInputRepo) DB() *gorm.DB { return nil }

// ── In-memory ConsumptionRepository stub ─────────────────────────────────────

type stubConsumptionRepo struct {
	consumptions map[uuid.UUID]*model.ProductionOutputConsumption
}

func newStubConsumptionRepo() *stubConsumptionRepo {
	return &stubConsumptionRepo{consumptions: make(map[uuid.UUID]*model.ProductionOutputConsumption)}
}

func (r *stubConsumptionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductionOutputConsumption, error) {
	c, ok := r.consumptions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *stubConsumptionRepo) ListByRecord(_ context.Context, recordID uuid.UUID) ([]model.ProductionOutputConsumption, error) {
	var result []model.ProductionOutputConsumption
	for _, c := range r.consumptions {
		if c.ProductionRecordID == recordID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

func (r *stubConsumptionRepo) ListByOutput(_ context.Context, outputID uuid.UUID) ([]model.ProductionOutputConsumption, error) {
	var result []model.ProductionOutputConsumption
	for _, c := range r.consumptions {
		if c.OutputID == outputID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *stubConsumptionRepo) CreateTx(_ *gorm.DB, c *model.ProductionOutputConsumption) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.consumptions[c.ID] = c
	return nil
}

func (r *stubConsumptionRepo) UpdateTx(_ *gorm.DB, c *model.ProductionOutputConsumption) error {
	if _, ok := r.consumptions[c.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.consumptions[c.ID] = c
	return nil
}

func (r *stubConsumptionRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.consumptions, id)
	return nil
}

func (r *stubConsumptionRepo) DB() *gorm.DB { return nil }

// ── In-memory OutputRepository stub ──────────────────────────────────────────

type stubOutputRepo struct {
	outputs map[uuid.UUID]*model.ProductionOutput
	sources map[uuid.UUID][]model.OutputSource // by output id
}

func newStubOutputRepo() *stubOutputRepo {
	return &stubOutputRepo{
		outputs: make(map[uuid.UUID]*model.ProductionOutput),
		sources: make(map[uuid.UUID][]model.OutputSource),
	}
}

func (r *stubOutputRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductionOutput, error) {
	o, ok := r.outputs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *o
	copied.Sources = append([]model.OutputSource(nil), r.sources[id]...)
	return &copied, nil
}

func (r *stubOutputRepo) ListByRecord(_ context.Context, recordID uuid.UUID) ([]model.ProductionOutput, error) {
	var result []model.ProductionOutput
	for _, o := range r.outputs {
		if o.ProductionRecordID != recordID {
			continue
		}
		copied := *o
		copied.Sources = append([]model.OutputSource(nil), r.sources[o.ID]...)
		result = append(result, copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

func (r *stubOutputRepo) ListSourcesByOrigin(_ context.Context, originID uuid.UUID) ([]model.OutputSource, error) {
	var result []model.OutputSource
	for _, sources := range r.sources {
		for _, src := range sources {
			if src.OriginID() == originID {
				result = append(result, src)
			}
		}
	}
	return result, nil
}

func (r *stubOutputRepo) CreateTx(_ *gorm.DB, o *model.ProductionOutput) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.outputs[o.ID] = o
	return nil
}

func (r *stubOutputRepo) UpdateTx(_ *gorm.DB, o *model.ProductionOutput) error {
	if _, ok := r.outputs[o.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.outputs[o.ID] = o
	return nil
}

func (r *stubOutputRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.outputs, id)
	delete(r.sources, id)
	return nil
}

func (r *stubOutputRepo) ReplaceSourcesTx(_ *gorm.DB, outputID uuid.UUID, sources []model.OutputSource) error {
	for i := range sources {
		if sources[i].ID == uuid.Nil {
			sources[i].ID = uuid.New()
		}
		sources[i].OutputID = outputID
	}
	r.sources[outputID] = sources
	return nil
}

func (r *stubOutputRepo) DB() *gorm.DB { return nil }

// ── In-memory ProductRepository stub ─────────────────────────────────────────

type stubProductRepo struct {
	products map[uuid.UUID]model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]model.Product)}
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &p, nil
}

func (r *stubProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	byID := make(map[uuid.UUID]model.Product)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			byID[id] = p
		}
	}
	return byID, nil
}
