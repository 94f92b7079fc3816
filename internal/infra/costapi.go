package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// BoxCost is the per-unit cost the costing sidecar declares for one stock
// box, with its cost category (normally "materials").
type BoxCost struct {
	CostPerKg decimal.Decimal `json:"cost_per_kg"`
	Category  string          `json:"category"`
}

// CategoryCostPerKg is one slice of an upstream output's cost tree.
type CategoryCostPerKg struct {
	Category  string          `json:"category"`
	CostPerKg decimal.Decimal `json:"cost_per_kg"`
}

// OutputCostTree is the nested cost tree the sidecar returns for a parent
// output: the blended per-kg cost plus its per-category split. The core
// only derives figures from it — the sidecar owns the source of truth.
type OutputCostTree struct {
	CostPerKg  decimal.Decimal     `json:"cost_per_kg"`
	Categories []CategoryCostPerKg `json:"categories"`
}

// CostClient is an HTTP client for the costing sidecar. Keeping cost
// accounting in a separate service isolates its failures from the
// traceability core; callers wrap requests in the circuit breaker.
type CostClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCostClient(baseURL string) *CostClient {
	return &CostClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetBoxCost fetches the declared cost of one stock box.
func (c *CostClient) GetBoxCost(ctx context.Context, boxID string) (*BoxCost, error) {
	var out BoxCost
	if err := c.get(ctx, "/costs/boxes/"+boxID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOutputCost fetches the nested cost tree of a parent output.
func (c *CostClient) GetOutputCost(ctx context.Context, outputID string) (*OutputCostTree, error) {
	var out OutputCostTree
	if err := c.get(ctx, "/costs/outputs/"+outputID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *CostClient) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("costapi: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("costapi: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Propagate the collaborator's message when it supplies one.
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("costapi: %s (status %d)", apiErr.Detail, resp.StatusCode)
		}
		return fmt.Errorf("costapi: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("costapi: decode response: %w", err)
	}
	return nil
}
