package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"prodtrace/internal/dto"
	"prodtrace/internal/infra"
	"prodtrace/internal/model"
	"prodtrace/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Cost categories reported in breakdowns. Boxes normally declare
// "materials"; process categories arrive through upstream cost trees.
const (
	CostCategoryMaterials   = "materials"
	CostCategoryProduction  = "production"
	CostCategoryLabor       = "labor"
	CostCategoryOperational = "operational"
	CostCategoryPackaging   = "packaging"
)

// CostService derives an output's total cost, cost per kg and categorized
// breakdown by walking its sources. Per-unit costs come from the costing
// sidecar (read-through cached in Redis); this service only computes
// derived figures and mutates nothing.
type CostService interface {
	OutputCost(ctx context.Context, outputID uuid.UUID) (*dto.CostBreakdownResponse, error)
	// RefreshOutputCost drops the cached figures and recomputes them.
	// Called by the worker pool after an output's sources change.
	RefreshOutputCost(ctx context.Context, outputID uuid.UUID) error
}

type costService struct {
	outputs      repository.OutputRepository
	inputs       repository.InputRepository
	consumptions repository.ConsumptionRepository
	pallets      repository.PalletRepository
	costs        *infra.CostClient
	cb           *infra.CircuitBreaker
	rdb          *redis.Client
	cacheTTL     time.Duration
}

func NewCostService(
	outputs repository.OutputRepository,
	inputs repository.InputRepository,
	consumptions repository.ConsumptionRepository,
	pallets repository.PalletRepository,
	costs *infra.CostClient,
	cb *infra.CircuitBreaker,
	rdb *redis.Client,
	cacheTTL time.Duration,
) CostService {
	return &costService{
		outputs:      outputs,
		inputs:       inputs,
		consumptions: consumptions,
		pallets:      pallets,
		costs:        costs,
		cb:           cb,
		rdb:          rdb,
		cacheTTL:     cacheTTL,
	}
}

func (s *costService) OutputCost(ctx context.Context, outputID uuid.UUID) (*dto.CostBreakdownResponse, error) {
	cacheKey := "cost:output:" + outputID.String()

	// Redis is optional (nil in unit tests) — the cache is best effort.
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var resp dto.CostBreakdownResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				return &resp, nil
			}
		}
	}

	resp, err := s.computeOutputCost(ctx, outputID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			_ = s.rdb.Set(context.Background(), cacheKey, b, s.cacheTTL).Err()
		}
	}
	return resp, nil
}

func (s *costService) RefreshOutputCost(ctx context.Context, outputID uuid.UUID) error {
	if s.rdb != nil {
		_ = s.rdb.Del(ctx, "cost:output:"+outputID.String()).Err()
	}
	resp, err := s.computeOutputCost(ctx, outputID)
	if err != nil {
		return err
	}
	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			return s.rdb.Set(ctx, "cost:output:"+outputID.String(), b, s.cacheTTL).Err()
		}
	}
	return nil
}

// computeOutputCost walks the output's sources:
//
//	totalCost   = Σ contributedWeightKg × costPerKg(origin)
//	costPerKg   = totalCost / weightKg      (null when weightKg is zero)
//
// and groups the same sum by cost category: a box contributes its whole
// cost under its declared category, a parent-output consumption spreads
// its contribution across the upstream tree's category split.
func (s *costService) computeOutputCost(ctx context.Context, outputID uuid.UUID) (*dto.CostBreakdownResponse, error) {
	output, err := s.outputs.FindByID(ctx, outputID)
	if err != nil {
		return nil, fmt.Errorf("output %s: %w", outputID, err)
	}

	resp := &dto.CostBreakdownResponse{
		OutputID: outputID.String(),
		WeightKg: output.WeightKg,
	}
	perCategory := make(map[string]decimal.Decimal)

	for i := range output.Sources {
		src := &output.Sources[i]
		w := src.ContributedWeightKg

		var (
			costPerKg  decimal.Decimal
			categories []infra.CategoryCostPerKg
		)
		switch src.SourceType {
		case model.SourceTypeStockBox:
			if src.ProductionInputID == nil {
				return nil, fmt.Errorf("source %s: missing input reference", src.ID)
			}
			costPerKg, categories, err = s.boxCostPerKg(ctx, *src.ProductionInputID)
		case model.SourceTypeParentOutput:
			if src.ConsumptionID == nil {
				return nil, fmt.Errorf("source %s: missing consumption reference", src.ID)
			}
			costPerKg, categories, err = s.consumptionCostPerKg(ctx, *src.ConsumptionID)
		default:
			err = fmt.Errorf("source %s: unknown source_type %q", src.ID, src.SourceType)
		}
		if err != nil {
			return nil, err
		}

		cost := w.Mul(costPerKg).Round(4)
		resp.TotalCost = resp.TotalCost.Add(cost)

		for _, cat := range categories {
			perCategory[cat.Category] = perCategory[cat.Category].Add(w.Mul(cat.CostPerKg).Round(4))
		}

		contribution := dto.OriginContribution{
			SourceType: src.SourceType,
			OriginID:   src.OriginID().String(),
			WeightKg:   w,
			WeightPct:  src.Percentage(output.WeightKg),
			CostPerKg:  costPerKg,
			Cost:       cost,
		}
		resp.Origins = append(resp.Origins, contribution)
	}

	if !output.WeightKg.IsZero() {
		perKg := resp.TotalCost.Div(output.WeightKg).Round(4)
		resp.CostPerKg = &perKg
	}

	names := make([]string, 0, len(perCategory))
	for name := range perCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row := dto.CategoryCost{Category: name, Cost: perCategory[name]}
		if !output.WeightKg.IsZero() {
			perKg := perCategory[name].Div(output.WeightKg).Round(4)
			row.CostPerKg = &perKg
		}
		resp.Categories = append(resp.Categories, row)
	}
	return resp, nil
}

// boxCostPerKg resolves a stock_box origin's per-kg cost: the sidecar's
// declared figure (cached) with the box row's own cost as fallback when
// the sidecar is unreachable.
func (s *costService) boxCostPerKg(ctx context.Context, inputID uuid.UUID) (decimal.Decimal, []infra.CategoryCostPerKg, error) {
	in, err := s.inputs.FindByID(ctx, inputID)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("input %s: %w", inputID, err)
	}
	box := in.Box
	if box == nil {
		box, err = s.pallets.FindBoxByID(ctx, in.StockBoxID)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("stock box %s: %w", in.StockBoxID, err)
		}
	}

	boxCost, err := s.fetchBoxCost(ctx, box.ID)
	if err != nil {
		// Degrade to the stock row's declared cost rather than failing the
		// whole breakdown.
		return box.UnitCostPerKg, []infra.CategoryCostPerKg{
			{Category: CostCategoryMaterials, CostPerKg: box.UnitCostPerKg},
		}, nil
	}
	category := boxCost.Category
	if category == "" {
		category = CostCategoryMaterials
	}
	return boxCost.CostPerKg, []infra.CategoryCostPerKg{
		{Category: category, CostPerKg: boxCost.CostPerKg},
	}, nil
}

// consumptionCostPerKg resolves a parent_output origin's per-kg cost from
// the upstream cost tree supplied by the sidecar.
func (s *costService) consumptionCostPerKg(ctx context.Context, consumptionID uuid.UUID) (decimal.Decimal, []infra.CategoryCostPerKg, error) {
	c, err := s.consumptions.FindByID(ctx, consumptionID)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("consumption %s: %w", consumptionID, err)
	}
	tree, err := s.fetchOutputCost(ctx, c.OutputID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return tree.CostPerKg, tree.Categories, nil
}

func (s *costService) fetchBoxCost(ctx context.Context, boxID uuid.UUID) (*infra.BoxCost, error) {
	cacheKey := "cost:box:" + boxID.String()
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var out infra.BoxCost
			if json.Unmarshal(cached, &out) == nil {
				return &out, nil
			}
		}
	}
	if s.costs == nil {
		return nil, fmt.Errorf("costapi: client not configured")
	}

	var out *infra.BoxCost
	err := s.cb.Execute(func() error {
		var callErr error
		out, callErr = s.costs.GetBoxCost(ctx, boxID.String())
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if s.rdb != nil {
		if b, jsonErr := json.Marshal(out); jsonErr == nil {
			_ = s.rdb.Set(context.Background(), cacheKey, b, s.cacheTTL).Err()
		}
	}
	return out, nil
}

func (s *costService) fetchOutputCost(ctx context.Context, outputID uuid.UUID) (*infra.OutputCostTree, error) {
	cacheKey := "cost:tree:" + outputID.String()
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var out infra.OutputCostTree
			if json.Unmarshal(cached, &out) == nil {
				return &out, nil
			}
		}
	}
	if s.costs == nil {
		return nil, fmt.Errorf("costapi: client not configured")
	}

	var out *infra.OutputCostTree
	err := s.cb.Execute(func() error {
		var callErr error
		out, callErr = s.costs.GetOutputCost(ctx, outputID.String())
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if s.rdb != nil {
		if b, jsonErr := json.Marshal(out); jsonErr == nil {
			_ = s.rdb.Set(context.Background(), cacheKey, b, s.cacheTTL).Err()
		}
	}
	return out, nil
}
