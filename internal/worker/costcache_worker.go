package worker

// costcache_worker.go
// Processes cost-cache refresh jobs from QueueCostRefresh. After an
// output's sources change, its cached cost rollup (and everything derived
// downstream) is stale; this worker recomputes it off the request path.

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const costRefreshMaxAttempts = 3

// CostRefresher recomputes and re-caches an output's cost figures.
// Satisfied by the cost service; kept as an interface so the worker does
// not depend on the service layer.
type CostRefresher interface {
	RefreshOutputCost(ctx context.Context, outputID uuid.UUID) error
}

// CostRefreshWorker processes cost refresh jobs with a bounded in-place
// retry; jobs that keep failing land in the DLQ for manual inspection.
type CostRefreshWorker struct {
	refresher CostRefresher
}

func NewCostRefreshWorker(refresher CostRefresher) *CostRefreshWorker {
	return &CostRefreshWorker{refresher: refresher}
}

// Process recomputes the cost figures for one output.
func (w *CostRefreshWorker) Process(ctx context.Context, rdb *redis.Client, queue string, raw json.RawMessage) {
	var payload CostRefreshPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("cost_refresh: invalid payload")
		return
	}
	outputID, err := uuid.Parse(payload.OutputID)
	if err != nil {
		log.Error().Str("output_id", payload.OutputID).Msg("cost_refresh: invalid output id")
		return
	}

	var lastErr error
	for attempt := 1; attempt <= costRefreshMaxAttempts; attempt++ {
		if lastErr = w.refresher.RefreshOutputCost(ctx, outputID); lastErr == nil {
			log.Info().Str("output_id", payload.OutputID).Msg("cost_refresh: cache refreshed")
			return
		}
		log.Warn().
			Str("output_id", payload.OutputID).
			Int("attempt", attempt).
			Err(lastErr).
			Msg("cost_refresh: attempt failed")
	}

	SendToDLQ(ctx, rdb, queue, "cost_refresh", raw, lastErr.Error(), costRefreshMaxAttempts)
}
