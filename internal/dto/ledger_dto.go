package dto

import "github.com/shopspring/decimal"

// InputItem is one desired line in a full-state input sync. An item with an
// id means keep/update; an item without one means create.
type InputItem struct {
	ID         *string `json:"id" validate:"omitempty,uuid4"`
	StockBoxID string  `json:"stock_box_id" validate:"required,uuid4"`
}

type SyncInputsRequest struct {
	Items []InputItem `json:"items" validate:"dive"`
}

// ConsumptionItem is one desired line in a full-state consumption sync.
type ConsumptionItem struct {
	ID               *string         `json:"id" validate:"omitempty,uuid4"`
	OutputID         string          `json:"output_id" validate:"required,uuid4"`
	ConsumedWeightKg decimal.Decimal `json:"consumed_weight_kg" validate:"required"`
	ConsumedBoxes    *int            `json:"consumed_boxes" validate:"omitempty,min=0"`
	Notes            *string         `json:"notes"`
}

type SyncConsumptionsRequest struct {
	Items []ConsumptionItem `json:"items" validate:"dive"`
}

// SyncResultRow reports the outcome of one item in a bulk reconciliation.
// Applied items are not rolled back when a later item fails in degraded
// (non-transactional) mode, so callers get the full per-item picture.
type SyncResultRow struct {
	ID     string `json:"id"`
	Action string `json:"action"` // "create" | "update" | "delete"
	Status string `json:"status"` // "applied" | "failed"
	Error  string `json:"error,omitempty"`
}

type SyncResponse struct {
	Results []SyncResultRow `json:"results"`
	Applied int             `json:"applied"`
	Failed  int             `json:"failed"`
}

type InputResponse struct {
	ID          string          `json:"id"`
	StockBoxID  string          `json:"stock_box_id"`
	BoxCode     string          `json:"box_code"`
	Lot         string          `json:"lot"`
	NetWeightKg decimal.Decimal `json:"net_weight_kg"`
}

type ConsumptionResponse struct {
	ID                string          `json:"id"`
	OutputID          string          `json:"output_id"`
	ConsumedWeightKg  decimal.Decimal `json:"consumed_weight_kg"`
	ConsumedBoxes     *int            `json:"consumed_boxes"`
	Notes             *string         `json:"notes"`
	AvailableWeightKg decimal.Decimal `json:"available_weight_kg"` // remaining headroom on the parent output
}
