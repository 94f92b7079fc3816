package dto

import "github.com/shopspring/decimal"

type BoxResponse struct {
	ID          string          `json:"id"`
	PalletID    string          `json:"pallet_id"`
	ProductID   string          `json:"product_id"`
	Lot         string          `json:"lot"`
	NetWeightKg decimal.Decimal `json:"net_weight_kg"`
	GS1128Code  string          `json:"gs1_128_code"`
	Available   bool            `json:"available"`
}

type PalletResponse struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Lot            string          `json:"lot"`
	Boxes          []BoxResponse   `json:"boxes"`
	AvailableBoxes int             `json:"available_boxes"`
	TotalWeightKg  decimal.Decimal `json:"total_weight_kg"`
}

type ScanRequest struct {
	PalletID string `json:"pallet_id" validate:"required,uuid4"`
	Code     string `json:"code" validate:"required"`
}

type WeightSearchRequest struct {
	PalletID    string          `json:"pallet_id" validate:"required,uuid4"`
	WeightKg    decimal.Decimal `json:"weight_kg" validate:"required"`
	ToleranceKg decimal.Decimal `json:"tolerance_kg"`
}

type TargetWeightRequest struct {
	PalletID      string          `json:"pallet_id" validate:"required,uuid4"`
	TargetKg      decimal.Decimal `json:"target_kg" validate:"required"`
	ExcludeBoxIDs []string        `json:"exclude_box_ids" validate:"dive,uuid4"`
}

type SelectionResponse struct {
	Boxes         []BoxResponse   `json:"boxes"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
}
