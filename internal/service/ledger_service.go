package service

import (
	"context"
	"errors"
	"fmt"

	"prodtrace/internal/dto"
	"prodtrace/internal/model"
	"prodtrace/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService tracks what a record consumes: stock boxes (inputs) and
// parent-record outputs (consumptions), with their available-vs-consumed
// balances. Bulk edits are full-state replacements — the caller always
// submits the complete desired set and the service reconciles it against
// storage (create missing, update by id, delete omitted).
type LedgerService interface {
	ListInputs(ctx context.Context, recordID uuid.UUID) ([]dto.InputResponse, error)
	SyncInputs(ctx context.Context, recordID uuid.UUID, req dto.SyncInputsRequest) (*dto.SyncResponse, error)

	ListConsumptions(ctx context.Context, recordID uuid.UUID) ([]dto.ConsumptionResponse, error)
	SyncConsumptions(ctx context.Context, recordID uuid.UUID, req dto.SyncConsumptionsRequest) (*dto.SyncResponse, error)

	// OutputAvailableWeight is the parent output's declared weight minus all
	// its consumptions, excluding the one being edited (so a caller editing
	// an existing consumption sees headroom equal to global available plus
	// the amount it is currently replacing).
	OutputAvailableWeight(ctx context.Context, outputID uuid.UUID, excludeConsumptionID *uuid.UUID) (decimal.Decimal, error)
}

type ledgerService struct {
	inputs       repository.InputRepository
	consumptions repository.ConsumptionRepository
	outputs      repository.OutputRepository
	pallets      repository.PalletRepository
}

func NewLedgerService(
	inputs repository.InputRepository,
	consumptions repository.ConsumptionRepository,
	outputs repository.OutputRepository,
	pallets repository.PalletRepository,
) LedgerService {
	return &ledgerService{
		inputs:       inputs,
		consumptions: consumptions,
		outputs:      outputs,
		pallets:      pallets,
	}
}

// runTx executes fn inside a GORM transaction when db is available, or
// calls fn(nil) directly when db is nil (unit test / degraded mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Inputs ───────────────────────────────────────────────────────────────────

func (s *ledgerService) ListInputs(ctx context.Context, recordID uuid.UUID) ([]dto.InputResponse, error) {
	inputs, err := s.inputs.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InputResponse, 0, len(inputs))
	for i := range inputs {
		out = append(out, *inputToResponse(&inputs[i]))
	}
	return out, nil
}

// SyncInputs reconciles the complete desired input set of a record:
//  1. items without id are created (box must be available),
//  2. items with a known id are updated in place (replacing the box
//     releases the old one),
//  3. stored inputs absent from the desired set are deleted.
//
// Creating an input flips its box unavailable; deleting flips it back.
// With a live DB the whole reconciliation runs in one transaction and the
// first failure aborts it. Without one (degraded mode) items are applied
// sequentially, nothing is rolled back, and ErrSyncPartialFailure is
// returned alongside the per-item result list.
func (s *ledgerService) SyncInputs(ctx context.Context, recordID uuid.UUID, req dto.SyncInputsRequest) (*dto.SyncResponse, error) {
	current, err := s.inputs.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	currentByID := make(map[uuid.UUID]*model.ProductionInput, len(current))
	for i := range current {
		currentByID[current[i].ID] = &current[i]
	}

	type plannedOp struct {
		action   string
		item     *dto.InputItem
		existing *model.ProductionInput
	}
	var plan []plannedOp
	desiredIDs := make(map[uuid.UUID]bool)

	for i := range req.Items {
		item := &req.Items[i]
		if item.ID == nil {
			plan = append(plan, plannedOp{action: "create", item: item})
			continue
		}
		id, err := uuid.Parse(*item.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid input id %q: %w", *item.ID, err)
		}
		existing, ok := currentByID[id]
		if !ok {
			return nil, fmt.Errorf("input %s does not belong to record %s", id, recordID)
		}
		desiredIDs[id] = true
		plan = append(plan, plannedOp{action: "update", item: item, existing: existing})
	}
	for i := range current {
		if !desiredIDs[current[i].ID] {
			plan = append(plan, plannedOp{action: "delete", existing: &current[i]})
		}
	}

	apply := func(tx *gorm.DB, op plannedOp) (string, error) {
		switch op.action {
		case "create":
			boxID, err := uuid.Parse(op.item.StockBoxID)
			if err != nil {
				return "", fmt.Errorf("invalid stock_box_id: %w", err)
			}
			if err := s.checkBoxFree(ctx, boxID, nil); err != nil {
				return "", err
			}
			in := &model.ProductionInput{ProductionRecordID: recordID, StockBoxID: boxID}
			if err := s.inputs.CreateTx(tx, in); err != nil {
				return "", err
			}
			if err := s.pallets.SetBoxAvailabilityTx(tx, boxID, false); err != nil {
				return "", err
			}
			return in.ID.String(), nil

		case "update":
			boxID, err := uuid.Parse(op.item.StockBoxID)
			if err != nil {
				return "", fmt.Errorf("invalid stock_box_id: %w", err)
			}
			if boxID == op.existing.StockBoxID {
				return op.existing.ID.String(), nil // no-op keep
			}
			if err := s.checkBoxFree(ctx, boxID, &op.existing.ID); err != nil {
				return "", err
			}
			oldBox := op.existing.StockBoxID
			op.existing.StockBoxID = boxID
			op.existing.Box = nil
			if err := s.inputs.UpdateTx(tx, op.existing); err != nil {
				return "", err
			}
			if err := s.pallets.SetBoxAvailabilityTx(tx, oldBox, true); err != nil {
				return "", err
			}
			if err := s.pallets.SetBoxAvailabilityTx(tx, boxID, false); err != nil {
				return "", err
			}
			return op.existing.ID.String(), nil

		default: // delete
			if err := s.inputs.DeleteTx(tx, op.existing.ID); err != nil {
				return "", err
			}
			if err := s.pallets.SetBoxAvailabilityTx(tx, op.existing.StockBoxID, true); err != nil {
				return "", err
			}
			return op.existing.ID.String(), nil
		}
	}

	return s.applyPlan(ctx, s.inputs.DB(), len(plan), func(tx *gorm.DB, i int) (string, string, error) {
		id, err := apply(tx, plan[i])
		return plan[i].action, id, err
	})
}

// checkBoxFree rejects a box already held by another active input. The
// input being edited (if any) is excluded so re-submitting the same box is
// always accepted.
func (s *ledgerService) checkBoxFree(ctx context.Context, boxID uuid.UUID, editingInputID *uuid.UUID) error {
	box, err := s.pallets.FindBoxByID(ctx, boxID)
	if err != nil {
		return fmt.Errorf("stock box %s: %w", boxID, err)
	}
	if box.Available {
		return nil
	}
	holder, err := s.inputs.FindActiveByBox(ctx, boxID)
	if err != nil {
		// Unavailable without an active input: the stock subsystem retired
		// the box some other way, treat as consumed.
		return fmt.Errorf("%w: box %s", ErrBoxUnavailable, boxID)
	}
	if editingInputID != nil && holder.ID == *editingInputID {
		return nil
	}
	return fmt.Errorf("%w: box %s is consumed by another input", ErrBoxUnavailable, boxID)
}

// ── Consumptions ─────────────────────────────────────────────────────────────

func (s *ledgerService) ListConsumptions(ctx context.Context, recordID uuid.UUID) ([]dto.ConsumptionResponse, error) {
	consumptions, err := s.consumptions.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ConsumptionResponse, 0, len(consumptions))
	for i := range consumptions {
		c := &consumptions[i]
		avail, err := s.OutputAvailableWeight(ctx, c.OutputID, &c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *consumptionToResponse(c, avail))
	}
	return out, nil
}

// SyncConsumptions reconciles the complete desired consumption set of a
// record against storage, with the same create/update/delete semantics as
// SyncInputs. Every created or updated item is checked against the parent
// output's remaining weight. That remainder is snapshotted per output
// before anything applies, with all of this record's own rows excluded
// (the desired set replaces them wholesale), and a running total of the
// batch's own draws is charged against it — so two items in one batch
// cannot both spend the same headroom, whether the plan runs inside a
// transaction or sequentially.
func (s *ledgerService) SyncConsumptions(ctx context.Context, recordID uuid.UUID, req dto.SyncConsumptionsRequest) (*dto.SyncResponse, error) {
	current, err := s.consumptions.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	currentByID := make(map[uuid.UUID]*model.ProductionOutputConsumption, len(current))
	for i := range current {
		currentByID[current[i].ID] = &current[i]
	}

	type plannedOp struct {
		action   string
		item     *dto.ConsumptionItem
		outputID uuid.UUID
		existing *model.ProductionOutputConsumption
	}
	var plan []plannedOp
	desiredIDs := make(map[uuid.UUID]bool)

	for i := range req.Items {
		item := &req.Items[i]
		outputID, err := uuid.Parse(item.OutputID)
		if err != nil {
			return nil, fmt.Errorf("invalid output_id: %w", err)
		}
		if item.ID == nil {
			plan = append(plan, plannedOp{action: "create", item: item, outputID: outputID})
			continue
		}
		id, err := uuid.Parse(*item.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid consumption id %q: %w", *item.ID, err)
		}
		existing, ok := currentByID[id]
		if !ok {
			return nil, fmt.Errorf("consumption %s does not belong to record %s", id, recordID)
		}
		desiredIDs[id] = true
		plan = append(plan, plannedOp{action: "update", item: item, outputID: outputID, existing: existing})
	}
	for i := range current {
		if !desiredIDs[current[i].ID] {
			plan = append(plan, plannedOp{action: "delete", existing: &current[i]})
		}
	}

	// Per-output headroom, read once before anything is written. Rows that
	// already belong to this record are excluded; their replacements count
	// through `running` as the plan applies.
	baseAvail := make(map[uuid.UUID]decimal.Decimal)
	running := make(map[uuid.UUID]decimal.Decimal)
	for i := range plan {
		op := &plan[i]
		if op.action == "delete" {
			continue
		}
		if _, ok := baseAvail[op.outputID]; ok {
			continue
		}
		output, err := s.outputs.FindByID(ctx, op.outputID)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", op.outputID, err)
		}
		stored, err := s.consumptions.ListByOutput(ctx, op.outputID)
		if err != nil {
			return nil, err
		}
		avail := output.WeightKg
		for j := range stored {
			if _, ours := currentByID[stored[j].ID]; ours {
				continue
			}
			avail = avail.Sub(stored[j].ConsumedWeightKg)
		}
		baseAvail[op.outputID] = avail
	}

	apply := func(tx *gorm.DB, op plannedOp) (string, error) {
		switch op.action {
		case "create", "update":
			if op.item.ConsumedWeightKg.IsNegative() {
				return "", errors.New("consumed_weight_kg must not be negative")
			}

			avail := baseAvail[op.outputID].Sub(running[op.outputID])
			if op.item.ConsumedWeightKg.GreaterThan(avail) {
				return "", fmt.Errorf("%w: output %s has %s kg available, requested %s kg",
					ErrAllocationExceedsAvailability, op.outputID, avail, op.item.ConsumedWeightKg)
			}

			if op.action == "create" {
				c := &model.ProductionOutputConsumption{
					ProductionRecordID: recordID,
					OutputID:           op.outputID,
					ConsumedWeightKg:   op.item.ConsumedWeightKg,
					ConsumedBoxes:      op.item.ConsumedBoxes,
					Notes:              op.item.Notes,
				}
				if err := s.consumptions.CreateTx(tx, c); err != nil {
					return "", err
				}
				running[op.outputID] = running[op.outputID].Add(op.item.ConsumedWeightKg)
				return c.ID.String(), nil
			}
			op.existing.OutputID = op.outputID
			op.existing.ConsumedWeightKg = op.item.ConsumedWeightKg
			op.existing.ConsumedBoxes = op.item.ConsumedBoxes
			op.existing.Notes = op.item.Notes
			op.existing.Output = nil
			if err := s.consumptions.UpdateTx(tx, op.existing); err != nil {
				return "", err
			}
			running[op.outputID] = running[op.outputID].Add(op.item.ConsumedWeightKg)
			return op.existing.ID.String(), nil

		default: // delete
			if err := s.consumptions.DeleteTx(tx, op.existing.ID); err != nil {
				return "", err
			}
			return op.existing.ID.String(), nil
		}
	}

	return s.applyPlan(ctx, s.consumptions.DB(), len(plan), func(tx *gorm.DB, i int) (string, string, error) {
		id, err := apply(tx, plan[i])
		return plan[i].action, id, err
	})
}

func (s *ledgerService) OutputAvailableWeight(ctx context.Context, outputID uuid.UUID, excludeConsumptionID *uuid.UUID) (decimal.Decimal, error) {
	output, err := s.outputs.FindByID(ctx, outputID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("output %s: %w", outputID, err)
	}
	consumptions, err := s.consumptions.ListByOutput(ctx, outputID)
	if err != nil {
		return decimal.Zero, err
	}
	avail := output.WeightKg
	for i := range consumptions {
		if excludeConsumptionID != nil && consumptions[i].ID == *excludeConsumptionID {
			continue
		}
		avail = avail.Sub(consumptions[i].ConsumedWeightKg)
	}
	return avail, nil
}

// ── Shared plan application ──────────────────────────────────────────────────

// applyPlan runs n planned operations either inside one transaction (any
// failure aborts and rolls back the batch) or, when no DB is available,
// sequentially with per-item outcomes and ErrSyncPartialFailure on any
// failure. step reports (action, applied id, error) for operation i.
func (s *ledgerService) applyPlan(ctx context.Context, db *gorm.DB, n int, step func(tx *gorm.DB, i int) (string, string, error)) (*dto.SyncResponse, error) {
	resp := &dto.SyncResponse{Results: make([]dto.SyncResultRow, 0, n)}

	if db != nil {
		err := runTx(ctx, db, func(tx *gorm.DB) error {
			for i := 0; i < n; i++ {
				action, id, err := step(tx, i)
				if err != nil {
					resp.Results = append(resp.Results, dto.SyncResultRow{
						Action: action, Status: "failed", Error: err.Error(),
					})
					resp.Failed++
					return err
				}
				resp.Results = append(resp.Results, dto.SyncResultRow{
					ID: id, Action: action, Status: "applied",
				})
				resp.Applied++
			}
			return nil
		})
		if err != nil {
			// Rolled back: nothing reported as applied actually persisted.
			for i := range resp.Results {
				resp.Results[i].Status = "failed"
			}
			resp.Failed = len(resp.Results)
			resp.Applied = 0
			return resp, err
		}
		return resp, nil
	}

	for i := 0; i < n; i++ {
		action, id, err := step(nil, i)
		if err != nil {
			resp.Results = append(resp.Results, dto.SyncResultRow{
				Action: action, Status: "failed", Error: err.Error(),
			})
			resp.Failed++
			continue
		}
		resp.Results = append(resp.Results, dto.SyncResultRow{
			ID: id, Action: action, Status: "applied",
		})
		resp.Applied++
	}
	if resp.Failed > 0 {
		return resp, ErrSyncPartialFailure
	}
	return resp, nil
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func inputToResponse(in *model.ProductionInput) *dto.InputResponse {
	resp := &dto.InputResponse{
		ID:         in.ID.String(),
		StockBoxID: in.StockBoxID.String(),
	}
	if in.Box != nil {
		resp.BoxCode = in.Box.GS1128Code
		resp.Lot = in.Box.Lot
		resp.NetWeightKg = in.Box.NetWeightKg
	}
	return resp
}

func consumptionToResponse(c *model.ProductionOutputConsumption, avail decimal.Decimal) *dto.ConsumptionResponse {
	return &dto.ConsumptionResponse{
		ID:                c.ID.String(),
		OutputID:          c.OutputID.String(),
		ConsumedWeightKg:  c.ConsumedWeightKg,
		ConsumedBoxes:     c.ConsumedBoxes,
		Notes:             c.Notes,
		AvailableWeightKg: avail,
	}
}
