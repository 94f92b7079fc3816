package service

import (
	"context"
	"fmt"

	"prodtrace/internal/dto"
	"prodtrace/internal/gs1"
	"prodtrace/internal/model"
	"prodtrace/internal/repository"
	"prodtrace/internal/selection"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// defaultWeightToleranceKg bounds weight-based box lookups when the caller
// does not supply a tolerance of their own.
var defaultWeightToleranceKg = decimal.RequireFromString("0.5")

// SelectionService locates stock boxes on a pallet: by scanned GS1-128
// barcode, by approximate weight, and by greedy subset selection toward a
// target weight. All lookups are scoped to a single pallet and consider
// only boxes still marked available.
type SelectionService interface {
	GetPallet(ctx context.Context, id uuid.UUID) (*dto.PalletResponse, error)
	SearchPalletsByLot(ctx context.Context, lot string) ([]dto.PalletResponse, error)
	ScanBox(ctx context.Context, req *dto.ScanRequest) (*dto.BoxResponse, error)
	SearchByWeight(ctx context.Context, req *dto.WeightSearchRequest) ([]dto.BoxResponse, error)
	SelectByTargetWeight(ctx context.Context, req *dto.TargetWeightRequest) (*dto.SelectionResponse, error)
}

type selectionService struct {
	pallets repository.PalletRepository
}

func NewSelectionService(pallets repository.PalletRepository) SelectionService {
	return &selectionService{pallets: pallets}
}

func (s *selectionService) GetPallet(ctx context.Context, id uuid.UUID) (*dto.PalletResponse, error) {
	pallet, err := s.pallets.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := palletToResponse(pallet)
	return &resp, nil
}

func (s *selectionService) SearchPalletsByLot(ctx context.Context, lot string) ([]dto.PalletResponse, error) {
	pallets, err := s.pallets.SearchByLot(ctx, lot)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PalletResponse, 0, len(pallets))
	for i := range pallets {
		out = append(out, palletToResponse(&pallets[i]))
	}
	return out, nil
}

// ScanBox resolves a scanned barcode against the pallet's available boxes.
// Matching is canonical-form equality, so scanner output and stored codes
// may differ in AI framing and still match. Exactly one hit is required:
// zero hits is gs1.ErrNotFound, two or more is gs1.ErrAmbiguous.
func (s *selectionService) ScanBox(ctx context.Context, req *dto.ScanRequest) (*dto.BoxResponse, error) {
	palletID, err := uuid.Parse(req.PalletID)
	if err != nil {
		return nil, fmt.Errorf("pallet_id: %w", err)
	}
	pallet, err := s.pallets.FindByID(ctx, palletID)
	if err != nil {
		return nil, err
	}

	boxes := availableBoxes(pallet)
	stored := make([]string, len(boxes))
	for i := range boxes {
		stored[i] = boxes[i].GS1128Code
	}
	idx, err := gs1.Match(req.Code, stored)
	if err != nil {
		return nil, err
	}
	resp := boxToResponse(&boxes[idx])
	return &resp, nil
}

func (s *selectionService) SearchByWeight(ctx context.Context, req *dto.WeightSearchRequest) ([]dto.BoxResponse, error) {
	palletID, err := uuid.Parse(req.PalletID)
	if err != nil {
		return nil, fmt.Errorf("pallet_id: %w", err)
	}
	pallet, err := s.pallets.FindByID(ctx, palletID)
	if err != nil {
		return nil, err
	}

	tolerance := req.ToleranceKg
	if tolerance.IsZero() {
		tolerance = defaultWeightToleranceKg
	}

	boxes := availableBoxes(pallet)
	byID := make(map[uuid.UUID]*model.StockBox, len(boxes))
	pool := make([]selection.Item, 0, len(boxes))
	for i := range boxes {
		byID[boxes[i].ID] = &boxes[i]
		pool = append(pool, selection.Item{ID: boxes[i].ID, WeightKg: boxes[i].NetWeightKg})
	}

	hits := selection.SearchByWeight(pool, req.WeightKg, tolerance)
	out := make([]dto.BoxResponse, 0, len(hits))
	for _, item := range hits {
		out = append(out, boxToResponse(byID[item.ID]))
	}
	return out, nil
}

// SelectByTargetWeight picks a subset of the pallet's available boxes whose
// combined weight is as close to the target as possible without exceeding
// it. Boxes in exclude_box_ids are left out of the pool, so callers can
// re-run the selection after rejecting part of a previous suggestion.
func (s *selectionService) SelectByTargetWeight(ctx context.Context, req *dto.TargetWeightRequest) (*dto.SelectionResponse, error) {
	palletID, err := uuid.Parse(req.PalletID)
	if err != nil {
		return nil, fmt.Errorf("pallet_id: %w", err)
	}
	pallet, err := s.pallets.FindByID(ctx, palletID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[uuid.UUID]bool, len(req.ExcludeBoxIDs))
	for _, raw := range req.ExcludeBoxIDs {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("exclude_box_ids: %w", parseErr)
		}
		excluded[id] = true
	}

	boxes := availableBoxes(pallet)
	byID := make(map[uuid.UUID]*model.StockBox, len(boxes))
	pool := make([]selection.Item, 0, len(boxes))
	for i := range boxes {
		if excluded[boxes[i].ID] {
			continue
		}
		byID[boxes[i].ID] = &boxes[i]
		pool = append(pool, selection.Item{ID: boxes[i].ID, WeightKg: boxes[i].NetWeightKg})
	}

	picked, err := selection.SelectByTarget(pool, req.TargetKg)
	if err != nil {
		return nil, err
	}

	resp := &dto.SelectionResponse{Boxes: make([]dto.BoxResponse, 0, len(picked))}
	for _, item := range picked {
		resp.Boxes = append(resp.Boxes, boxToResponse(byID[item.ID]))
		resp.TotalWeightKg = resp.TotalWeightKg.Add(item.WeightKg)
	}
	return resp, nil
}

func availableBoxes(pallet *model.Pallet) []model.StockBox {
	out := make([]model.StockBox, 0, len(pallet.Boxes))
	for _, box := range pallet.Boxes {
		if box.Available {
			out = append(out, box)
		}
	}
	return out
}

func boxToResponse(box *model.StockBox) dto.BoxResponse {
	return dto.BoxResponse{
		ID:          box.ID.String(),
		PalletID:    box.PalletID.String(),
		ProductID:   box.ProductID.String(),
		Lot:         box.Lot,
		NetWeightKg: box.NetWeightKg,
		GS1128Code:  box.GS1128Code,
		Available:   box.Available,
	}
}

func palletToResponse(pallet *model.Pallet) dto.PalletResponse {
	resp := dto.PalletResponse{
		ID:    pallet.ID.String(),
		Code:  pallet.Code,
		Lot:   pallet.Lot,
		Boxes: make([]dto.BoxResponse, 0, len(pallet.Boxes)),
	}
	for i := range pallet.Boxes {
		box := &pallet.Boxes[i]
		resp.Boxes = append(resp.Boxes, boxToResponse(box))
		if box.Available {
			resp.AvailableBoxes++
			resp.TotalWeightKg = resp.TotalWeightKg.Add(box.NetWeightKg)
		}
	}
	return resp
}
