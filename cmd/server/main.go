// AI Content Detector API server.
//
// To run:
//
//	go run ./cmd/server
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/api"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/auth"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/cache"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/circuitbreaker"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/config"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/gocommon"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/logger"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/services"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/tuning"
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
	if cfg.BaseURL, err = services.NormalizeBaseURL(cfg.BaseURL); err != nil {
		log.Error("Invalid BASE_URL", "error", err)
		os.Exit(1)
	}

	log.Info("Starting AI Content Detector",
		"addr", cfg.Addr(),
		"store", cfg.StoreDriver,
		"redis", cfg.RedisEnabled,
		"inference_delay", cfg.InferenceDelayEnabled,
		"model_version", detector.ModelVersion,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tuning profile
	var initial *detector.Tuning
	if cfg.TuningFile != "" {
		initial, err = tuning.Load(cfg.TuningFile)
		if err != nil {
			log.Error("Failed to load tuning file", "path", cfg.TuningFile, "error", err)
			os.Exit(1)
		}
		log.Info("Loaded tuning profile", "path", cfg.TuningFile)
	}
	provider := tuning.NewProvider(initial)
	if cfg.TuningFile != "" && cfg.TuningWatch {
		w := tuning.NewWatcher(cfg.TuningFile, provider, tuning.DefaultDebounce, logger.ForComponent("tuning"))
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error("Tuning watcher failed", "error", err)
			}
		}()
	}

	// Storage
	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Error("Failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var redisCache *cache.RedisCache
	if cfg.RedisEnabled {
		redisCache, err = cache.New(cfg)
		if err != nil {
			log.Error("Failed to connect to Redis", "addr", cfg.RedisAddr(), "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		log.Info("Connected to Redis", "addr", cfg.RedisAddr())
	}

	metrics := gocommon.NewMetrics("detector-api", prometheus.DefaultRegisterer)
	breakers := circuitbreaker.NewRegistry(circuitbreaker.Settings{
		FailureThreshold: cfg.CBFailureThreshold,
		SuccessThreshold: cfg.CBSuccessThreshold,
		RecoveryTimeout:  cfg.CBRecoveryTimeout,
	}, metrics.CircuitBreakerState)

	delayMin, delayMax := cfg.InferenceDelay()
	det := detector.New(
		detector.WithTuning(provider),
		detector.WithDelay(cfg.InferenceDelayEnabled, delayMin, delayMax),
	)

	deps := api.Deps{
		Config:   cfg,
		Detector: det,
		Store:    st,
		Cache:    redisCache,
		Breakers: breakers,
		Metrics:  metrics,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logger.ForComponent("api"),
	}
	if cfg.Auth0Domain != "" && cfg.Auth0Audience != "" {
		v, err := auth.NewValidator(cfg.Auth0Domain, cfg.Auth0Audience)
		if err != nil {
			log.Error("Failed to configure Auth0", "error", err)
			os.Exit(1)
		}
		deps.Auth = auth.Middleware(v, logger.ForComponent("auth"))
		log.Info("Auth0 enabled for /v1", "domain", cfg.Auth0Domain)
	}

	server := api.New(deps)

	go func() {
		if err := server.App.Listen(cfg.Addr()); err != nil {
			log.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown initiated")
	server.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.App.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Shutdown complete")
}
