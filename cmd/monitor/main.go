package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"price-peak-monitor/internal/api"
	"price-peak-monitor/internal/config"
	"price-peak-monitor/internal/extractor"
	"price-peak-monitor/internal/fetcher"
	redisCache "price-peak-monitor/internal/infrastructure/cache/redis"
	"price-peak-monitor/internal/metrics"
	"price-peak-monitor/internal/monitor"
	"price-peak-monitor/internal/notifier"
	"price-peak-monitor/internal/storage"
	storageFactory "price-peak-monitor/internal/storage/factory"
	"price-peak-monitor/pkg/logger"
	"price-peak-monitor/pkg/utils"
)

func main() {
	envFile := flag.String("config", ".env", "path to .env file")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	if err := logger.InitGlobal(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Debug); err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer logger.GetLogger().Close()

	printHeader("PRICE PEAK MONITOR")
	cfg.PrintSummary()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis опционален: без него максимум держится только в памяти процесса
	var cache storage.MaximumCache
	var redisService *redisCache.RedisService
	if cfg.Redis.Enabled {
		redisService = redisCache.NewRedisService(cfg)
		if err := redisService.Start(ctx); err != nil {
			logger.Warn("⚠️  Redis unavailable, continuing without cache: %v", err)
			redisService = nil
		} else {
			cache = redisService.Cache()
		}
	}

	store, err := storageFactory.NewSnapshotStore(ctx, storageFactory.StoreDependencies{
		Config: cfg,
		Cache:  cache,
	})
	if err != nil {
		log.Fatalf("Не удалось создать хранилище: %v", err)
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		log.Fatalf("Не удалось инициализировать схему: %v", err)
	}

	appMetrics := metrics.New()
	alerts := notifier.NewFromConfig(cfg)

	priceMonitor, err := monitor.NewPriceMonitor(monitor.Dependencies{
		Config:    cfg,
		Fetcher:   fetcher.NewFetcher(cfg),
		Extractor: extractor.New(extractorOptions(cfg.Extractor)...),
		Store:     store,
		Notifier:  alerts,
		Metrics:   appMetrics,
	})
	if err != nil {
		log.Fatalf("Не удалось создать монитор: %v", err)
	}

	var server *api.Server
	if cfg.HTTP.Enabled {
		server = api.NewServer(cfg.HTTP.Port, priceMonitor, store, appMetrics.Handler()).
			WithNotificationStats(alerts)
		server.Start()
	}

	logger.Info("📡 Channels: %s", strings.Join(alerts.Channels(), ", "))

	if err := priceMonitor.Run(ctx); err != nil {
		logger.Error("monitor stopped with error: %v", err)
	}

	// Корректное завершение
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("⚠️  Status server shutdown: %v", err)
		}
	}
	if redisService != nil {
		if err := redisService.Stop(); err != nil {
			logger.Warn("⚠️  Redis shutdown: %v", err)
		}
	}

	status := priceMonitor.Status()
	stats := alerts.GetStats()
	logger.Info("✅ Stopped after %d cycles, uptime %s", status.Cycles, utils.FormatDuration(time.Since(status.StartedAt)))
	logger.Info("📊 Alerts: %d sent, %d delivered, %d failed", stats.TotalSent, stats.Successful, stats.Failed)
}

func extractorOptions(cfg config.ExtractorConfig) []extractor.Option {
	opts := []extractor.Option{extractor.WithSelectors(cfg.TitleSelector, cfg.PriceSelector)}
	if cfg.AllowMissingDiscount {
		opts = append(opts, extractor.WithOptionalDiscount())
	}
	return opts
}

func printHeader(text string) {
	width := 80
	padding := (width - len(text)) / 2
	if padding < 0 {
		padding = 0
	}

	fmt.Println(strings.Repeat("=", width))
	fmt.Printf("%s%s\n", strings.Repeat(" ", padding), text)
	fmt.Println(strings.Repeat("=", width))
}
