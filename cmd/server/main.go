// Package main is the entry point for the adminkit API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"adminkit/internal/config"
	"adminkit/internal/demo"
	"adminkit/internal/domain/admin"
	"adminkit/internal/domain/crud"
	"adminkit/internal/domain/projection"
	"adminkit/internal/domain/relation"
	v1 "adminkit/internal/infrastructure/http/v1"
	"adminkit/internal/infrastructure/http/v1/handlers"
	"adminkit/internal/infrastructure/storage/postgres"
	"adminkit/internal/metadata"
	"adminkit/pkg/logger"
)

const version = "0.1.0"

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting adminkit server", "version", version)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	pool.LogStats(ctx)

	// --- Schema registry ---
	registry := metadata.NewRegistry(demo.Source())
	if err := registry.Load(); err != nil {
		log.Fatalw("failed to load entity schema", "error", err)
	}
	log.Infow("entity schema loaded", "entities", len(registry.All()))

	// --- Engine ---
	txManager := postgres.NewTxManager(pool)
	store := postgres.NewEntityStore(registry, txManager)
	engine := crud.NewEngine(crud.Config{
		Registry:  registry,
		Executor:  postgres.NewQueryExecutor(txManager),
		Store:     store,
		TxManager: txManager,
	})

	var history handlers.HistoryReader
	if cfg.Admin.Audit.Enabled {
		auditLog, err := postgres.NewAuditLog(txManager, cfg.Admin.Audit.CompressThreshold)
		if err != nil {
			log.Fatalw("failed to create audit log", "error", err)
		}
		auditLog.Register(engine.Hooks())
		history = auditLog
		log.Info("audit log enabled")
	}

	projector := projection.NewProjector(registry, engine, cfg.Admin.BasePath).WithLogger(log)
	sublister := relation.NewSublister(relation.WithNullOrder(relation.ParseNullOrder(cfg.Admin.NullOrder)))
	service := admin.NewService(engine, projector, sublister, admin.Settings{
		BasePath:        cfg.Admin.BasePath,
		Title:           cfg.Admin.Title,
		DefaultPageSize: cfg.Admin.Pagination.DefaultSize,
		MaxPageSize:     cfg.Admin.Pagination.MaxSize,
		PreviewLimit:    cfg.Admin.EffectivePreviewLimit(),
	})

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Admin:          service,
		Database:       pool,
		History:        history,
		Logger:         log,
		AdminEnabled:   cfg.Admin.Enabled,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Debug:          cfg.Log.Development,
		AppName:        "adminkit",
		Version:        version,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr, "admin", cfg.Admin.BasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
