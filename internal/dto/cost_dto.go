package dto

import "github.com/shopspring/decimal"

// CategoryCost is one slice of the categorized breakdown: materials plus
// the process categories (production, labor, operational, packaging).
type CategoryCost struct {
	Category  string           `json:"category"`
	Cost      decimal.Decimal  `json:"cost"`
	CostPerKg *decimal.Decimal `json:"cost_per_kg"`
}

// OriginContribution reports one origin's share of an output: its
// contributed weight, that weight as a percentage of the output's total,
// and the cost it carries.
type OriginContribution struct {
	SourceType string           `json:"source_type"`
	OriginID   string           `json:"origin_id"`
	WeightKg   decimal.Decimal  `json:"weight_kg"`
	WeightPct  *decimal.Decimal `json:"weight_pct"`
	CostPerKg  decimal.Decimal  `json:"cost_per_kg"`
	Cost       decimal.Decimal  `json:"cost"`
}

// CostBreakdownResponse is a pure read model derived from an output's
// source list — requesting it mutates nothing.
type CostBreakdownResponse struct {
	OutputID   string               `json:"output_id"`
	WeightKg   decimal.Decimal      `json:"weight_kg"`
	TotalCost  decimal.Decimal      `json:"total_cost"`
	CostPerKg  *decimal.Decimal     `json:"cost_per_kg"` // null when the output weight is zero
	Categories []CategoryCost       `json:"categories"`
	Origins    []OriginContribution `json:"origins"`
}
