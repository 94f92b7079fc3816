package worker

// retry_cron.go
// Background goroutine that periodically re-drives cost refresh jobs out
// of the DLQ and back onto their original queue. Failures there are almost
// always a downed costing sidecar, so the cron only runs while the circuit
// breaker is closed.

import (
	"context"
	"encoding/json"
	"time"

	"prodtrace/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// RetryCronConfig holds the dependencies for the re-drive goroutine.
type RetryCronConfig struct {
	RDB *redis.Client
	CB  *infra.CircuitBreaker
}

// StartRetryCron launches a background goroutine that ticks every 30s and
// re-enqueues a bounded batch of DLQed jobs. It respects the context for
// graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				redriveDLQ(ctx, cfg)
			}
		}
	}()
}

func redriveDLQ(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open the sidecar is still down — re-driving now would just
	// bounce the jobs straight back to the DLQ.
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	dlqKey := DLQPrefix + QueueCostRefresh
	for i := 0; i < retryBatchSize; i++ {
		raw, err := cfg.RDB.RPop(ctx, dlqKey).Result()
		if err == redis.Nil {
			return
		}
		if err != nil {
			log.Error().Err(err).Str("dlq_key", dlqKey).Msg("retry_cron: failed to pop DLQ entry")
			return
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Msg("retry_cron: corrupt DLQ entry, dropping")
			continue
		}

		job := Job{Type: entry.JobType, Payload: entry.Payload}
		encoded, err := json.Marshal(job)
		if err != nil {
			log.Error().Err(err).Msg("retry_cron: failed to re-encode job")
			continue
		}

		if err := cfg.RDB.LPush(ctx, entry.OriginalQueue, encoded).Err(); err != nil {
			log.Error().Err(err).Str("queue", entry.OriginalQueue).Msg("retry_cron: failed to re-enqueue job")
			// Put the entry back so it is not lost.
			_ = cfg.RDB.RPush(ctx, dlqKey, raw).Err()
			return
		}

		log.Info().
			Str("queue", entry.OriginalQueue).
			Str("job_type", entry.JobType).
			Int("previous_attempts", entry.Attempts).
			Msg("retry_cron: job re-driven from DLQ")
	}
}
