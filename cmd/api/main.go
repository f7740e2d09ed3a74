package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/wattanaa/ecopoint/internal/api"
	"github.com/wattanaa/ecopoint/internal/api/ws"
	"github.com/wattanaa/ecopoint/internal/config"
	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/observability"
	"github.com/wattanaa/ecopoint/internal/queue"
	"github.com/wattanaa/ecopoint/internal/scan"
	"github.com/wattanaa/ecopoint/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting EcoPoint API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitSchema(context.Background()); err != nil {
		slog.Error("init schema", "error", err)
		os.Exit(1)
	}

	// Seed rates and tiers on first run so the points engine is never
	// without configuration.
	if err := db.EnsureSettings(context.Background()); err != nil {
		slog.Error("ensure settings", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Session registry fed by the scan update stream
	registry := scan.NewRegistry()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create scan consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeScanUpdates(ctx, "api-scans", func(ctx context.Context, msg jetstream.Msg) error {
		var update models.ScanUpdate
		if err := json.Unmarshal(msg.Data(), &update); err != nil {
			return err
		}

		registry.Record(update)
		hub.BroadcastScanUpdate(&update)
		return nil
	})
	if err != nil {
		slog.Warn("start scan update consumer", "error", err)
	}

	// Sweep registry entries for sessions that stopped or were abandoned
	// without confirming; those never call Forget.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := registry.PruneOlderThan(30 * time.Minute); removed > 0 {
					slog.Debug("pruned stale scan registry entries", "removed", removed)
				}
			}
		}
	}()

	ledger := loyalty.NewLedger(db)

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		AdminKey: cfg.Server.AdminKey,
		DB:       db,
		MinIO:    minioStore,
		Producer: producer,
		Hub:      hub,
		Registry: registry,
		Ledger:   ledger,
		Vision:   cfg.Vision,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
