package infra

import (
	"fmt"

	"prodtrace/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies any idempotent SQL patches that GORM
// cannot express (partial indexes, check constraints).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations creates / updates the schema. Also used by integration tests
// against a throwaway database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Pallet{},
		&model.StockBox{},
		&model.ProductionRecord{},
		&model.ProductionInput{},
		&model.ProductionOutput{},
		&model.ProductionOutputConsumption{},
		&model.OutputSource{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM AutoMigrate cannot express.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Partial index for the hot path: every pallet lookup filters on
		// available boxes.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_stock_boxes_available') THEN
		    CREATE INDEX idx_stock_boxes_available
		        ON stock_boxes (pallet_id)
		        WHERE available;
		  END IF;
		END $$`,
		// Origin lookups scan output_sources by either origin column.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_output_sources_input') THEN
		    CREATE INDEX idx_output_sources_input
		        ON output_sources (production_input_id)
		        WHERE production_input_id IS NOT NULL;
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_output_sources_consumption') THEN
		    CREATE INDEX idx_output_sources_consumption
		        ON output_sources (consumption_id)
		        WHERE consumption_id IS NOT NULL;
		  END IF;
		END $$`,
		// A source row must reference exactly one origin.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_output_sources_one_origin') THEN
		    ALTER TABLE output_sources
		      ADD CONSTRAINT chk_output_sources_one_origin
		      CHECK ((production_input_id IS NULL) <> (consumption_id IS NULL));
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
