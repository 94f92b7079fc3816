package dto

import "github.com/shopspring/decimal"

// SourceItem declares one contribution of an output. Weight and percentage
// are alternative ways to express the same value; when both are nil the
// origin is auto-filled proportionally from the output's unallocated weight.
type SourceItem struct {
	ID                     *string          `json:"id" validate:"omitempty,uuid4"`
	SourceType             string           `json:"source_type" validate:"required,oneof=stock_box parent_output"`
	ProductionInputID      *string          `json:"production_input_id" validate:"omitempty,uuid4"`
	ConsumptionID          *string          `json:"consumption_id" validate:"omitempty,uuid4"`
	ContributedWeightKg    *decimal.Decimal `json:"contributed_weight_kg"`
	ContributionPercentage *decimal.Decimal `json:"contribution_percentage"`
}

type OutputItem struct {
	ID        *string         `json:"id" validate:"omitempty,uuid4"`
	ProductID string          `json:"product_id" validate:"required,uuid4"`
	LotID     *string         `json:"lot_id"`
	Boxes     int             `json:"boxes" validate:"min=0"`
	WeightKg  decimal.Decimal `json:"weight_kg" validate:"required"`
	Sources   []SourceItem    `json:"sources" validate:"dive"`
}

type SyncOutputsRequest struct {
	Items []OutputItem `json:"items" validate:"dive"`
}

// NormalizeSourceRequest asks the allocator to reconcile one in-flight
// weight or percentage edit against the origin's remaining availability,
// without persisting anything. Exactly one of the two values is set.
type NormalizeSourceRequest struct {
	OutputID               *string          `json:"output_id" validate:"omitempty,uuid4"` // set when editing an existing output
	OutputWeightKg         decimal.Decimal  `json:"output_weight_kg"`
	SourceType             string           `json:"source_type" validate:"required,oneof=stock_box parent_output"`
	ProductionInputID      *string          `json:"production_input_id" validate:"omitempty,uuid4"`
	ConsumptionID          *string          `json:"consumption_id" validate:"omitempty,uuid4"`
	ContributedWeightKg    *decimal.Decimal `json:"contributed_weight_kg"`
	ContributionPercentage *decimal.Decimal `json:"contribution_percentage"`
}

type SourceResponse struct {
	ID                     string           `json:"id"`
	SourceType             string           `json:"source_type"`
	ProductionInputID      *string          `json:"production_input_id"`
	ConsumptionID          *string          `json:"consumption_id"`
	ContributedWeightKg    decimal.Decimal  `json:"contributed_weight_kg"`
	ContributionPercentage *decimal.Decimal `json:"contribution_percentage"`
}

type OutputResponse struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Product   string           `json:"product,omitempty"`
	LotID     *string          `json:"lot_id"`
	Boxes     int              `json:"boxes"`
	WeightKg  decimal.Decimal  `json:"weight_kg"`
	Sources   []SourceResponse `json:"sources"`
}
