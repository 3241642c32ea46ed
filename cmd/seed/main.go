// Package main creates the demo schema and seeds it through the admin engine.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"adminkit/internal/config"
	"adminkit/internal/demo"
	"adminkit/internal/domain/crud"
	"adminkit/internal/infrastructure/storage/postgres"
	"adminkit/internal/metadata"
	"adminkit/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.URL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := createSchema(ctx, pool); err != nil {
		log.Fatalw("failed to create schema", "error", err)
	}
	log.Info("schema ready")

	registry := metadata.NewRegistry(demo.Source())
	if err := registry.Load(); err != nil {
		log.Fatalw("failed to load entity schema", "error", err)
	}

	txManager := postgres.NewTxManager(pool)
	engine := crud.NewEngine(crud.Config{
		Registry:  registry,
		Executor:  postgres.NewQueryExecutor(txManager),
		Store:     postgres.NewEntityStore(registry, txManager),
		TxManager: txManager,
	})
	if cfg.Admin.Audit.Enabled {
		auditLog, err := postgres.NewAuditLog(txManager, cfg.Admin.Audit.CompressThreshold)
		if err != nil {
			log.Fatalw("failed to create audit log", "error", err)
		}
		auditLog.Register(engine.Hooks())
	}

	if err := seedRows(ctx, engine, log); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}
	if err := advanceSequences(ctx, pool); err != nil {
		log.Fatalw("failed to advance sequences", "error", err)
	}

	log.Info("seeding completed successfully")
}

func createSchema(ctx context.Context, pool *postgres.Pool) error {
	statements := append(append([]string{}, demo.Schema...), postgres.AuditTableDDL)
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

func seedRows(ctx context.Context, engine *crud.Engine, log *logger.Logger) error {
	counts := map[string]int{}
	for _, row := range demo.Rows(time.Now().UTC()) {
		saved, err := engine.Save(ctx, row)
		if err != nil {
			return err
		}
		if def, ok := engine.Registry().GetByValue(saved); ok {
			counts[def.Key]++
		}
	}
	for key, n := range counts {
		log.Infow("seeded", "entity", key, "rows", n)
	}
	return nil
}

// advanceSequences moves identity sequences past explicitly seeded ids.
func advanceSequences(ctx context.Context, pool *postgres.Pool) error {
	for _, seq := range demo.Sequences {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', '%[2]s'), COALESCE((SELECT MAX(%[2]s) FROM %[1]s), 1))",
			seq.Table, seq.Column)
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("advance %s.%s: %w", seq.Table, seq.Column, err)
		}
	}
	return nil
}
