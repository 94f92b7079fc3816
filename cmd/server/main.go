package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prodtrace/internal/config"
	"prodtrace/internal/infra"
	"prodtrace/internal/repository"
	"prodtrace/internal/router"
	"prodtrace/internal/service"
	"prodtrace/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Circuit breaker guarding the costing sidecar — shared between the HTTP
	// layer and the worker pool so both see the same state.
	costCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	// Start goroutine worker pool for async tasks (cost cache refresh).
	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	costClient := infra.NewCostClient(cfg.CostServiceURL)
	costCacheTTL := time.Duration(cfg.CostCacheTTLMinutes) * time.Minute

	outputRepo := repository.NewOutputRepository(db)
	inputRepo := repository.NewInputRepository(db)
	consumptionRepo := repository.NewConsumptionRepository(db)
	palletRepo := repository.NewPalletRepository(db)

	costSvc := service.NewCostService(outputRepo, inputRepo, consumptionRepo, palletRepo, costClient, costCB, rdb, costCacheTTL)

	workerHandlers := &worker.WorkerHandlers{
		CostRefresh: worker.NewCostRefreshWorker(costSvc),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)
	worker.StartRetryCron(ctx, worker.RetryCronConfig{RDB: rdb, CB: costCB})

	r := router.New(cfg, db, rdb, costCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("prodtrace backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
