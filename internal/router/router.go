package router

import (
	"time"

	"prodtrace/internal/config"
	"prodtrace/internal/handler"
	"prodtrace/internal/infra"
	"prodtrace/internal/middleware"
	"prodtrace/internal/repository"
	"prodtrace/internal/service"
	"prodtrace/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, costCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	costClient := infra.NewCostClient(cfg.CostServiceURL)
	costCacheTTL := time.Duration(cfg.CostCacheTTLMinutes) * time.Minute

	// ── Repositories ─────────────────────────────────────────────────────────
	recordRepo := repository.NewRecordRepository(db)
	palletRepo := repository.NewPalletRepository(db)
	productRepo := repository.NewProductRepository(db)
	inputRepo := repository.NewInputRepository(db)
	consumptionRepo := repository.NewConsumptionRepository(db)
	outputRepo := repository.NewOutputRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	recordSvc := service.NewRecordService(recordRepo)
	selectionSvc := service.NewSelectionService(palletRepo)
	ledgerSvc := service.NewLedgerService(inputRepo, consumptionRepo, outputRepo, palletRepo)
	allocationSvc := service.NewAllocationService(outputRepo, inputRepo, consumptionRepo, palletRepo, productRepo, dispatcher)
	costSvc := service.NewCostService(outputRepo, inputRepo, consumptionRepo, palletRepo, costClient, costCB, rdb, costCacheTTL)

	// ── Handlers ─────────────────────────────────────────────────────────────
	recordsH := handler.NewRecordsHandler(recordSvc)
	palletsH := handler.NewPalletsHandler(selectionSvc)
	ledgerH := handler.NewLedgerHandler(ledgerSvc)
	outputsH := handler.NewOutputsHandler(allocationSvc)
	costsH := handler.NewCostsHandler(costSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, costCB))

	v1 := r.Group("/v1")
	{
		records := v1.Group("/records")
		{
			records.POST("", recordsH.Create)
			records.GET("", recordsH.List)
			records.GET("/:id", recordsH.Get)
			records.PUT("/:id", recordsH.Update)
			records.PUT("/:id/parent", recordsH.SetParent)
			records.GET("/:id/ancestors", recordsH.Ancestors)

			records.GET("/:id/inputs", ledgerH.ListInputs)
			records.POST("/:id/inputs/sync", ledgerH.SyncInputs)
			records.GET("/:id/consumptions", ledgerH.ListConsumptions)
			records.POST("/:id/consumptions/sync", ledgerH.SyncConsumptions)

			records.GET("/:id/outputs", outputsH.List)
			records.POST("/:id/outputs/sync", outputsH.Sync)
		}

		pallets := v1.Group("/pallets")
		{
			pallets.GET("", palletsH.SearchByLot)
			pallets.GET("/:id", palletsH.Get)
			pallets.POST("/scan", palletsH.ScanBox)
			pallets.POST("/search-weight", palletsH.SearchByWeight)
			pallets.POST("/select", palletsH.SelectByTargetWeight)
		}

		outputs := v1.Group("/outputs")
		{
			outputs.GET("/:id/availability", ledgerH.OutputAvailability)
			outputs.GET("/:id/cost", costsH.OutputCost)
		}

		v1.POST("/sources/normalize", outputsH.NormalizeSource)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
