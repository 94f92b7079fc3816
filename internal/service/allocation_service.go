package service

import (
	"context"
	"fmt"
	"sort"

	"prodtrace/internal/dto"
	"prodtrace/internal/model"
	"prodtrace/internal/repository"
	"prodtrace/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// weightTolerance absorbs rounding drift when comparing weight sums (kg).
var weightTolerance = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// AllocationService keeps each output's source list consistent with the
// output's declared weight, the remaining availability of every referenced
// origin, and the weight/percentage duality. The stored value is always
// the weight; percentages are derived on the way out.
type AllocationService interface {
	ListOutputs(ctx context.Context, recordID uuid.UUID) ([]dto.OutputResponse, error)

	// SyncOutputs replaces the record's complete output set (outputs plus
	// their sources), auto-filling unconfigured origins and rejecting any
	// set that would overdraw an origin or overfill an output.
	SyncOutputs(ctx context.Context, recordID uuid.UUID, req dto.SyncOutputsRequest) (*dto.SyncResponse, error)

	// NormalizeSource reconciles one in-flight weight or percentage edit
	// against the origin's remaining availability without persisting:
	// the returned weight is clamped to that availability and the
	// percentage recomputed from the clamped weight.
	NormalizeSource(ctx context.Context, req dto.NormalizeSourceRequest) (*dto.SourceResponse, error)
}

type allocationService struct {
	outputs      repository.OutputRepository
	inputs       repository.InputRepository
	consumptions repository.ConsumptionRepository
	pallets      repository.PalletRepository
	products     repository.ProductRepository
	dispatcher   *worker.Dispatcher
}

func NewAllocationService(
	outputs repository.OutputRepository,
	inputs repository.InputRepository,
	consumptions repository.ConsumptionRepository,
	pallets repository.PalletRepository,
	products repository.ProductRepository,
	dispatcher *worker.Dispatcher,
) AllocationService {
	return &allocationService{
		outputs:      outputs,
		inputs:       inputs,
		consumptions: consumptions,
		pallets:      pallets,
		products:     products,
		dispatcher:   dispatcher,
	}
}

// origin is a resolved allocation target: one ledger entry and its total
// weight, the cap for every source that references it.
type origin struct {
	sourceType    string
	id            uuid.UUID
	totalWeightKg decimal.Decimal
}

func (s *allocationService) ListOutputs(ctx context.Context, recordID uuid.UUID) ([]dto.OutputResponse, error) {
	outputs, err := s.outputs.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.OutputResponse, 0, len(outputs))
	ids := make([]uuid.UUID, 0, len(outputs))
	for i := range outputs {
		resp = append(resp, *outputToResponse(&outputs[i]))
		ids = append(ids, outputs[i].ProductID)
	}
	// Product labels come from the catalog, not from a preload.
	if len(ids) > 0 {
		byID, err := s.products.FindByIDs(ctx, ids)
		if err == nil {
			for i := range outputs {
				if p, ok := byID[outputs[i].ProductID]; ok {
					resp[i].Product = p.Name
				}
			}
		}
	}
	return resp, nil
}

func (s *allocationService) SyncOutputs(ctx context.Context, recordID uuid.UUID, req dto.SyncOutputsRequest) (*dto.SyncResponse, error) {
	origins, err := s.recordOrigins(ctx, recordID)
	if err != nil {
		return nil, err
	}

	// Resolve every desired output's sources up front: percentage→weight
	// conversion, proportional auto-fill, then the per-origin cumulative
	// cap over the whole desired set. Nothing persists if this fails.
	resolved := make([][]model.OutputSource, len(req.Items))
	for i := range req.Items {
		sources, err := s.resolveSources(&req.Items[i], origins)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i+1, err)
		}
		resolved[i] = sources
	}
	if err := validateOriginCaps(resolved, origins); err != nil {
		return nil, err
	}

	current, err := s.outputs.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	currentByID := make(map[uuid.UUID]*model.ProductionOutput, len(current))
	for i := range current {
		currentByID[current[i].ID] = &current[i]
	}

	resp := &dto.SyncResponse{}
	var touched []uuid.UUID
	desiredIDs := make(map[uuid.UUID]bool)

	txErr := runTx(ctx, s.outputs.DB(), func(tx *gorm.DB) error {
		for i := range req.Items {
			item := &req.Items[i]
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				return fmt.Errorf("invalid product_id: %w", err)
			}

			var out *model.ProductionOutput
			action := "create"
			if item.ID != nil {
				id, err := uuid.Parse(*item.ID)
				if err != nil {
					return fmt.Errorf("invalid output id %q: %w", *item.ID, err)
				}
				existing, ok := currentByID[id]
				if !ok {
					return fmt.Errorf("output %s does not belong to record %s", id, recordID)
				}
				desiredIDs[id] = true
				action = "update"
				out = existing
				out.ProductID = productID
				out.LotID = item.LotID
				out.Boxes = item.Boxes
				out.WeightKg = item.WeightKg
				out.Sources = nil
				if err := s.outputs.UpdateTx(tx, out); err != nil {
					return err
				}
			} else {
				out = &model.ProductionOutput{
					ProductionRecordID: recordID,
					ProductID:          productID,
					LotID:              item.LotID,
					Boxes:              item.Boxes,
					WeightKg:           item.WeightKg,
				}
				if err := s.outputs.CreateTx(tx, out); err != nil {
					return err
				}
			}

			if err := s.outputs.ReplaceSourcesTx(tx, out.ID, resolved[i]); err != nil {
				return err
			}
			touched = append(touched, out.ID)
			resp.Results = append(resp.Results, dto.SyncResultRow{
				ID: out.ID.String(), Action: action, Status: "applied",
			})
			resp.Applied++
		}

		for i := range current {
			if desiredIDs[current[i].ID] {
				continue
			}
			if err := s.outputs.DeleteTx(tx, current[i].ID); err != nil {
				return err
			}
			resp.Results = append(resp.Results, dto.SyncResultRow{
				ID: current[i].ID.String(), Action: "delete", Status: "applied",
			})
			resp.Applied++
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Cost figures for the touched outputs are stale now — refresh them in
	// the background, best effort.
	if s.dispatcher != nil {
		for _, id := range touched {
			_ = s.dispatcher.EnqueueCostRefresh(ctx, worker.CostRefreshPayload{OutputID: id.String()})
		}
	}
	return resp, nil
}

func (s *allocationService) NormalizeSource(ctx context.Context, req dto.NormalizeSourceRequest) (*dto.SourceResponse, error) {
	org, err := s.resolveOriginRef(ctx, req.SourceType, req.ProductionInputID, req.ConsumptionID)
	if err != nil {
		return nil, err
	}

	// Remaining availability: the origin's total minus what every stored
	// source on other outputs already takes from it. Sources on the output
	// being edited are the caller's own and are excluded.
	remaining := org.totalWeightKg
	stored, err := s.outputs.ListSourcesByOrigin(ctx, org.id)
	if err != nil {
		return nil, err
	}
	var editingOutput *uuid.UUID
	if req.OutputID != nil {
		id, err := uuid.Parse(*req.OutputID)
		if err != nil {
			return nil, fmt.Errorf("invalid output_id: %w", err)
		}
		editingOutput = &id
	}
	for i := range stored {
		if editingOutput != nil && stored[i].OutputID == *editingOutput {
			continue
		}
		remaining = remaining.Sub(stored[i].ContributedWeightKg)
	}
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	var desired decimal.Decimal
	switch {
	case req.ContributedWeightKg != nil:
		desired = *req.ContributedWeightKg
	case req.ContributionPercentage != nil:
		desired = req.ContributionPercentage.Div(oneHundred).Mul(req.OutputWeightKg)
	default:
		return nil, fmt.Errorf("either contributed_weight_kg or contribution_percentage is required")
	}
	if desired.IsNegative() {
		desired = decimal.Zero
	}
	// Clamp to availability, then recompute the percentage from the
	// clamped weight so the caller gets a corrected pair instead of a
	// silent overshoot.
	clamped := decimal.Min(desired, remaining).Round(3)

	resp := &dto.SourceResponse{
		SourceType:          req.SourceType,
		ProductionInputID:   req.ProductionInputID,
		ConsumptionID:       req.ConsumptionID,
		ContributedWeightKg: clamped,
	}
	if !req.OutputWeightKg.IsZero() {
		pct := clamped.Div(req.OutputWeightKg).Mul(oneHundred).Round(2)
		resp.ContributionPercentage = &pct
	}
	return resp, nil
}

// ── Source resolution ────────────────────────────────────────────────────────

// resolveSources turns one desired output's source items into model rows:
// explicit weights are taken as given, percentages become weights, and the
// output's unallocated weight is spread across the unconfigured origins in
// proportion to each origin's own total weight. An output with no sources
// at all draws from every origin of the record. The resolved weights may
// never sum past the output's own declared weight, regardless of what the
// origins could supply.
func (s *allocationService) resolveSources(item *dto.OutputItem, origins map[uuid.UUID]origin) ([]model.OutputSource, error) {
	type pending struct {
		org    origin
		weight *decimal.Decimal
	}
	var rows []pending

	if len(item.Sources) == 0 {
		for _, org := range sortedOrigins(origins) {
			rows = append(rows, pending{org: org})
		}
	} else {
		for i := range item.Sources {
			src := &item.Sources[i]
			org, err := originFromItem(src, origins)
			if err != nil {
				return nil, err
			}
			switch {
			case src.ContributedWeightKg != nil:
				w := *src.ContributedWeightKg
				if w.IsNegative() {
					return nil, fmt.Errorf("source %d: negative weight", i+1)
				}
				rows = append(rows, pending{org: org, weight: &w})
			case src.ContributionPercentage != nil:
				w := src.ContributionPercentage.Div(oneHundred).Mul(item.WeightKg).Round(3)
				if w.IsNegative() {
					return nil, fmt.Errorf("source %d: negative percentage", i+1)
				}
				rows = append(rows, pending{org: org, weight: &w})
			default:
				rows = append(rows, pending{org: org})
			}
		}
	}

	// Proportional auto-fill of the unconfigured rows.
	allocated := decimal.Zero
	var unconfigured []int
	for i := range rows {
		if rows[i].weight != nil {
			allocated = allocated.Add(*rows[i].weight)
		} else {
			unconfigured = append(unconfigured, i)
		}
	}
	if len(unconfigured) > 0 {
		remaining := item.WeightKg.Sub(allocated)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		poolTotal := decimal.Zero
		for _, i := range unconfigured {
			poolTotal = poolTotal.Add(rows[i].org.totalWeightKg)
		}
		assigned := decimal.Zero
		for n, i := range unconfigured {
			var share decimal.Decimal
			if n == len(unconfigured)-1 {
				// Last share takes the exact remainder so the filled
				// weights sum to the output weight without rounding drift.
				share = remaining.Sub(assigned)
			} else if poolTotal.IsPositive() {
				share = remaining.Mul(rows[i].org.totalWeightKg).Div(poolTotal).Round(3)
			}
			if share.IsNegative() {
				share = decimal.Zero
			}
			rows[i].weight = &share
			assigned = assigned.Add(share)
		}
	}

	total := decimal.Zero
	for i := range rows {
		total = total.Add(*rows[i].weight)
	}
	if total.Sub(item.WeightKg).GreaterThan(weightTolerance) {
		return nil, fmt.Errorf("%w: sources allocate %s kg of a %s kg output",
			ErrAllocationExceedsAvailability, total, item.WeightKg)
	}

	sources := make([]model.OutputSource, 0, len(rows))
	for i := range rows {
		src := model.OutputSource{
			SourceType:          rows[i].org.sourceType,
			ContributedWeightKg: *rows[i].weight,
		}
		id := rows[i].org.id
		if rows[i].org.sourceType == model.SourceTypeStockBox {
			src.ProductionInputID = &id
		} else {
			src.ConsumptionID = &id
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// validateOriginCaps rejects the desired set when any origin's cumulative
// allocation across all outputs exceeds that origin's total weight.
func validateOriginCaps(resolved [][]model.OutputSource, origins map[uuid.UUID]origin) error {
	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, sources := range resolved {
		for i := range sources {
			id := sources[i].OriginID()
			sums[id] = sums[id].Add(sources[i].ContributedWeightKg)
		}
	}
	for id, sum := range sums {
		org := origins[id]
		if sum.Sub(org.totalWeightKg).GreaterThan(weightTolerance) {
			return fmt.Errorf("%w: origin %s allocated %s kg of %s kg",
				ErrAllocationExceedsAvailability, id, sum, org.totalWeightKg)
		}
	}
	return nil
}

// recordOrigins loads every allocation target of the record: one origin
// per input (capped by its box weight) and one per consumption (capped by
// the consumed weight).
func (s *allocationService) recordOrigins(ctx context.Context, recordID uuid.UUID) (map[uuid.UUID]origin, error) {
	origins := make(map[uuid.UUID]origin)

	inputs, err := s.inputs.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	for i := range inputs {
		in := &inputs[i]
		total := decimal.Zero
		if in.Box != nil {
			total = in.Box.NetWeightKg
		} else {
			box, err := s.pallets.FindBoxByID(ctx, in.StockBoxID)
			if err != nil {
				return nil, fmt.Errorf("stock box %s: %w", in.StockBoxID, err)
			}
			total = box.NetWeightKg
		}
		origins[in.ID] = origin{sourceType: model.SourceTypeStockBox, id: in.ID, totalWeightKg: total}
	}

	consumptions, err := s.consumptions.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	for i := range consumptions {
		c := &consumptions[i]
		origins[c.ID] = origin{sourceType: model.SourceTypeParentOutput, id: c.ID, totalWeightKg: c.ConsumedWeightKg}
	}
	return origins, nil
}

func (s *allocationService) resolveOriginRef(ctx context.Context, sourceType string, inputID, consumptionID *string) (origin, error) {
	switch sourceType {
	case model.SourceTypeStockBox:
		if inputID == nil {
			return origin{}, fmt.Errorf("production_input_id is required for stock_box sources")
		}
		id, err := uuid.Parse(*inputID)
		if err != nil {
			return origin{}, fmt.Errorf("invalid production_input_id: %w", err)
		}
		in, err := s.inputs.FindByID(ctx, id)
		if err != nil {
			return origin{}, fmt.Errorf("input %s: %w", id, err)
		}
		total := decimal.Zero
		if in.Box != nil {
			total = in.Box.NetWeightKg
		} else {
			box, err := s.pallets.FindBoxByID(ctx, in.StockBoxID)
			if err != nil {
				return origin{}, fmt.Errorf("stock box %s: %w", in.StockBoxID, err)
			}
			total = box.NetWeightKg
		}
		return origin{sourceType: sourceType, id: id, totalWeightKg: total}, nil

	case model.SourceTypeParentOutput:
		if consumptionID == nil {
			return origin{}, fmt.Errorf("consumption_id is required for parent_output sources")
		}
		id, err := uuid.Parse(*consumptionID)
		if err != nil {
			return origin{}, fmt.Errorf("invalid consumption_id: %w", err)
		}
		c, err := s.consumptions.FindByID(ctx, id)
		if err != nil {
			return origin{}, fmt.Errorf("consumption %s: %w", id, err)
		}
		return origin{sourceType: sourceType, id: id, totalWeightKg: c.ConsumedWeightKg}, nil

	default:
		return origin{}, fmt.Errorf("unknown source_type %q", sourceType)
	}
}

func originFromItem(src *dto.SourceItem, origins map[uuid.UUID]origin) (origin, error) {
	var ref *string
	switch src.SourceType {
	case model.SourceTypeStockBox:
		ref = src.ProductionInputID
	case model.SourceTypeParentOutput:
		ref = src.ConsumptionID
	default:
		return origin{}, fmt.Errorf("unknown source_type %q", src.SourceType)
	}
	if ref == nil {
		return origin{}, fmt.Errorf("missing origin reference for %s source", src.SourceType)
	}
	id, err := uuid.Parse(*ref)
	if err != nil {
		return origin{}, fmt.Errorf("invalid origin id %q: %w", *ref, err)
	}
	org, ok := origins[id]
	if !ok {
		return origin{}, fmt.Errorf("origin %s is not a ledger entry of this record", id)
	}
	return org, nil
}

// sortedOrigins gives a deterministic iteration order (by id) for
// implicit source lists.
func sortedOrigins(origins map[uuid.UUID]origin) []origin {
	out := make([]origin, 0, len(origins))
	for _, o := range origins {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id.String() < out[j].id.String() })
	return out
}

func outputToResponse(o *model.ProductionOutput) *dto.OutputResponse {
	resp := &dto.OutputResponse{
		ID:        o.ID.String(),
		ProductID: o.ProductID.String(),
		LotID:     o.LotID,
		Boxes:     o.Boxes,
		WeightKg:  o.WeightKg,
		Sources:   make([]dto.SourceResponse, 0, len(o.Sources)),
	}
	if o.Product != nil {
		resp.Product = o.Product.Name
	}
	for i := range o.Sources {
		src := &o.Sources[i]
		row := dto.SourceResponse{
			ID:                     src.ID.String(),
			SourceType:             src.SourceType,
			ContributedWeightKg:    src.ContributedWeightKg,
			ContributionPercentage: src.Percentage(o.WeightKg),
		}
		if src.ProductionInputID != nil {
			s := src.ProductionInputID.String()
			row.ProductionInputID = &s
		}
		if src.ConsumptionID != nil {
			s := src.ConsumptionID.String()
			row.ConsumptionID = &s
		}
		resp.Sources = append(resp.Sources, row)
	}
	return resp
}
