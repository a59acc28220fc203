package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/config"
	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/repository/mongodb"
	"github.com/mamadbah2/tirecost/internal/repository/rediscache"
	"github.com/mamadbah2/tirecost/internal/repository/sheets"
	"github.com/mamadbah2/tirecost/internal/scheduler"
	"github.com/mamadbah2/tirecost/internal/server/handlers"
	"github.com/mamadbah2/tirecost/internal/server/router"
	"github.com/mamadbah2/tirecost/internal/service/metricbus"
	reportingsvc "github.com/mamadbah2/tirecost/internal/service/reporting"
	"github.com/mamadbah2/tirecost/pkg/clients/webhook"
	"github.com/mamadbah2/tirecost/pkg/logger"
)

var metricKeys = []string{
	models.MetricAverageCostPerUnit,
	models.MetricAverageProfitPerUnit,
	models.MetricOverallProfitMargin,
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
	}
	source := sheets.NewSnapshotSource(sheetsRepo, sheets.DefaultRanges(), logger.Named(baseLogger, "repo.sheets"))

	store, closeStore := openMetricStore(cfg.Metrics, baseLogger)
	defer closeStore()

	bus := metricbus.New(store, logger.Named(baseLogger, "metricbus"))
	if cfg.Metrics.WebhookURL != "" {
		notifier := webhook.NewNotifier(cfg.Metrics.WebhookURL, logger.Named(baseLogger, "client.webhook"))
		defer notifier.Close()
		for _, key := range metricKeys {
			bus.Subscribe(key, notifier.Handle)
		}
		baseLogger.Info("metric webhook enabled")
	}

	reportingSvc := reportingsvc.NewService(source, bus, cfg.Costing.Options(), cfg.Reporting.SaleCategory, logger.Named(baseLogger, "svc.reporting"))

	dashboardHandler := handlers.NewDashboardHandler(reportingSvc, logger.Named(baseLogger, "handlers.dashboard"))
	engine := router.New(dashboardHandler, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openMetricStore connects the configured metric backend. The memory store
// needs no cleanup.
func openMetricStore(cfg config.MetricsConfig, baseLogger *zap.Logger) (metricbus.Store, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Store {
	case config.StoreMongo:
		store, err := mongodb.NewMetricStore(ctx, cfg.MongoURI, cfg.MongoDB, logger.Named(baseLogger, "repo.mongodb"))
		if err != nil {
			baseLogger.Fatal("failed to init mongodb metric store", zap.Error(err))
		}
		return store, func() {
			if err := store.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}
	case config.StoreRedis:
		store, err := rediscache.NewMetricStore(ctx, cfg.RedisURL, logger.Named(baseLogger, "repo.redis"))
		if err != nil {
			baseLogger.Fatal("failed to init redis metric store", zap.Error(err))
		}
		return store, func() {
			if err := store.Close(); err != nil {
				baseLogger.Error("failed to close redis connection", zap.Error(err))
			}
		}
	default:
		return metricbus.NewMemoryStore(), func() {}
	}
}
