// Detection event worker: flushes the Redis detections stream into the
// store and prunes expired reports.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/cache"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/config"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/gocommon"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/logger"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/worker"
)

func main() {
	// Load .env file (ignore error if file doesn't exist - use system env vars)
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg, err := logger.FromStrings(cfg.LogLevel, cfg.LogFormat)
	log := logger.Init(logCfg)
	if err != nil {
		log.Warn("Invalid logging configuration, using defaults", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Error("Failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	metrics := gocommon.NewMetrics("detector-worker", prometheus.DefaultRegisterer)

	pruner, err := worker.NewPruner(st, cfg.Retention(), cfg.PruneSchedule, logger.ForComponent("pruner"))
	if err != nil {
		log.Error("Invalid prune configuration", "error", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pruner.Run(ctx)
	}()

	if cfg.RedisEnabled {
		redisCache, err := cache.New(cfg)
		if err != nil {
			log.Error("Failed to connect to Redis", "addr", cfg.RedisAddr(), "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()

		flusher := worker.NewFlusher(redisCache, st, cfg.WorkerBatchSize, cfg.WorkerFlushInterval,
			metrics.EventsFlushed, logger.ForComponent("flusher"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			flusher.Start(ctx)
		}()
	} else {
		log.Info("Redis disabled, detection events are written by the API directly; only pruning runs")
	}

	// Metrics endpoint
	metricsServer := &http.Server{
		Addr:              cfg.Host + ":" + cfg.WorkerMetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server error", "error", err)
		}
	}()

	log.Info("Worker started", "store", cfg.StoreDriver, "prune_schedule", cfg.PruneSchedule)
	<-ctx.Done()
	log.Info("Shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	wg.Wait()
	log.Info("Worker stopped")
}
