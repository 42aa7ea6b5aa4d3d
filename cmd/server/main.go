package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appfulfillment "github.com/jeffects/shipstation-endpoint/internal/application/fulfillment"
	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/cache"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/config"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/logger"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/persistence"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/scheduler"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/shipstation"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/telemetry"
	"github.com/jeffects/shipstation-endpoint/internal/interfaces/http/handler"
	"github.com/jeffects/shipstation-endpoint/internal/interfaces/http/middleware"
	"github.com/jeffects/shipstation-endpoint/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.ForService(baseLog, cfg.App)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ShipStation endpoint",
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
		zap.String("lookup_strategy", cfg.Lookup.Strategy),
		zap.String("watermark", cfg.Poll.Watermark),
	)

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	metrics := telemetry.NewMetrics()

	serviceOpts := []appfulfillment.ServiceOption{
		appfulfillment.WithErrorReporter(telemetry.NewErrorReporter(log, metrics)),
		appfulfillment.WithSyncObserver(metrics),
	}
	system := handler.NewSystemHandler(cfg.App.Name, version)

	// Sync record store
	var (
		records   fulfillment.SyncRecordRepository
		retention *scheduler.RetentionScheduler
	)
	if cfg.Records.Enabled {
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
		db, err := persistence.NewDatabaseWithLogger(cfg.Records, &cfg.Database, gormLog)
		if err != nil {
			log.Fatal("Failed to open sync record store", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing sync record store", zap.Error(err))
			}
		}()
		dbSystem := cfg.Records.Driver
		if dbSystem == "postgres" {
			dbSystem = "postgresql"
		}
		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			Enabled:  tracerProvider.IsEnabled(),
			DBSystem: dbSystem,
		}, log); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
		if err := db.Migrate(); err != nil {
			log.Fatal("Failed to migrate sync record store", zap.Error(err))
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			if err := metrics.RegisterDB(sqlDB); err != nil {
				log.Warn("Failed to register database metrics", zap.Error(err))
			}
		}
		log.Info("Sync record store ready", zap.String("driver", cfg.Records.Driver))

		records = persistence.NewSyncRecordRepository(db.DB)
		serviceOpts = append(serviceOpts, appfulfillment.WithSyncRecords(records))
		system.AddCheck("records", func(context.Context) error { return db.Ping() })

		schedulerCfg := scheduler.DefaultRetentionSchedulerConfig(cfg.Records.Retention)
		schedulerCfg.Interval = cfg.Records.CleanupInterval
		retention, err = scheduler.NewRetentionScheduler(records, log, schedulerCfg)
		if err != nil {
			log.Fatal("Failed to create retention scheduler", zap.Error(err))
		}
	}

	// Carrier and service lookups
	lookupCache, err := cache.NewLookupCacheFactory(cfg.Lookup, cfg.Redis, cache.WithLogger(log)).CreateCache()
	if err != nil {
		log.Fatal("Failed to create lookup cache", zap.Error(err))
	}
	var sharedCache fulfillment.LookupCache
	if lookupCache != nil {
		sharedCache = lookupCache
		defer func() {
			_ = lookupCache.Close()
		}()
	}
	lookups, err := appfulfillment.NewLookupFactory(fulfillment.LookupStrategy(cfg.Lookup.Strategy), sharedCache)
	if err != nil {
		log.Fatal("Failed to configure lookups", zap.Error(err))
	}

	watermark, err := fulfillment.NewWatermarkTracker(fulfillment.WatermarkKind(cfg.Poll.Watermark), cfg.Poll.UTCOffset)
	if err != nil {
		log.Fatal("Failed to configure poll watermark", zap.Error(err))
	}

	syncService := appfulfillment.NewSyncService(lookups, watermark, log, serviceOpts...)

	// ShipStation client
	client, err := shipstation.NewClient(&shipstation.Config{
		BaseURL:           cfg.API.BaseURL,
		Username:          cfg.API.Username,
		Password:          cfg.API.Password,
		TimeoutSeconds:    cfg.API.TimeoutSeconds,
		MaxPages:          cfg.API.MaxPages,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
	},
		shipstation.WithLogger(log.Named("shipstation")),
		shipstation.WithTracer(tracerProvider.Tracer("shipstation")),
	)
	if err != nil {
		log.Fatal("Failed to create ShipStation client", zap.Error(err))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Tracing - Server span per request
	// 3. Logger - Request scoped logger and access log
	// 4. Recovery - Catch panics
	// 5. Metrics - Request counters by route
	// 6. BodyLimit - Limit request body size
	quiet := []string{router.HealthPath, router.MetricsPath}
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
		Filter: func(r *http.Request) bool {
			return r.URL.Path != router.HealthPath && r.URL.Path != router.MetricsPath
		},
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log, quiet...))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.HTTPMetrics(metrics))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	channel := fulfillment.ChannelConfig{StoreID: cfg.Channel.StoreID, MarketplaceID: cfg.Channel.MarketplaceID}
	r := router.NewRouter(engine).
		Register(router.HubRoutes(handler.NewHubHandler(syncService, client, channel))).
		Register(router.SystemRoutes(system, metrics.Handler()))
	if records != nil {
		r.Register(router.SyncRecordRoutes(handler.NewSyncRecordHandler(records)))
	}
	r.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if retention != nil {
		if err := retention.Start(ctx); err != nil {
			log.Fatal("Failed to start retention scheduler", zap.Error(err))
		}
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if retention != nil && retention.IsRunning() {
		if err := retention.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping retention scheduler", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
