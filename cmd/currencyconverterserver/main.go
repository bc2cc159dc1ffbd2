package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SnizhanaK/Currency-Converter/internals/adapter/cache"
	"github.com/SnizhanaK/Currency-Converter/internals/adapter/cache/schedular"
	"github.com/SnizhanaK/Currency-Converter/internals/adapter/nbgapi"
	"github.com/SnizhanaK/Currency-Converter/internals/adapter/prefstore"
	"github.com/SnizhanaK/Currency-Converter/internals/api"
	"github.com/SnizhanaK/Currency-Converter/internals/config"
	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"
	"github.com/SnizhanaK/Currency-Converter/internals/helpers"
	"github.com/SnizhanaK/Currency-Converter/internals/observability"
	"github.com/SnizhanaK/Currency-Converter/internals/repository"
	"github.com/SnizhanaK/Currency-Converter/internals/service"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	logger.Info("starting currency converter service",
		zap.String("port", cfg.ServerPort),
		zap.String("nbg_api_url", cfg.NBGAPIURL),
		zap.Bool("preferences_enabled", cfg.PreferencesEnabled),
		zap.String("preferences_backend", cfg.PreferencesBackend),
	)

	observability.Init()

	prefStore, closeStore, err := newPreferenceStore(cfg)
	if err != nil {
		logger.Fatal("failed to init preference store", zap.Error(err))
	}
	defer closeStore()

	apiClient := nbgapi.NewClient(helpers.NewNBGAPI(cfg.NBGAPIURL, cfg.HTTPTimeout))
	rateRepo := repository.NewCachedRateRepository(apiClient, cache.NewMemoryCache())
	rateService := service.NewRateService(rateRepo)
	sessions := service.NewSessionManager(rateRepo, time.Now)
	preferences := service.NewPreferenceService(prefStore, domain.Preferences{
		FromCurrency: domain.Currency(cfg.DefaultFrom),
		ToCurrency:   domain.Currency(cfg.DefaultTo),
		Theme:        domain.ThemeLight,
	})
	apiHandler := api.NewHandler(rateService, sessions, preferences, time.Now)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go schedular.StartBackgroundWarmup(workerCtx, cfg.WarmupInterval, rateRepo, time.Now)

	app := fiber.New(fiber.Config{
		AppName:      "Currency Converter Service",
		ErrorHandler: api.ErrorHandler,
	})

	api.SetupRouter(app, apiHandler)

	go func() {
		logger.Info("http server starting", zap.String("port", cfg.ServerPort))
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	stopWorker()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}

// newPreferenceStore picks the backend for saved preferences. With persistence
// disabled every read misses and writes are dropped.
func newPreferenceStore(cfg *config.Config) (prefstore.Store, func(), error) {
	noop := func() {}
	if !cfg.PreferencesEnabled {
		return prefstore.NewNoopStore(), noop, nil
	}
	if cfg.PreferencesBackend != "redis" {
		return prefstore.NewMemoryStore(), noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, noop, fmt.Errorf("redis ping: %w", err)
	}
	return prefstore.NewRedisStore(client, "default"), func() { client.Close() }, nil
}
