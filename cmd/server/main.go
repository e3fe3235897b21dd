package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appcap "github.com/tourops/backend/internal/application/capacity"
	"github.com/tourops/backend/internal/domain/capacity"
	"github.com/tourops/backend/internal/infrastructure/cache"
	"github.com/tourops/backend/internal/infrastructure/config"
	"github.com/tourops/backend/internal/infrastructure/event"
	"github.com/tourops/backend/internal/infrastructure/logger"
	"github.com/tourops/backend/internal/infrastructure/migration"
	"github.com/tourops/backend/internal/infrastructure/persistence"
	"github.com/tourops/backend/internal/infrastructure/scheduler"
	"github.com/tourops/backend/internal/infrastructure/telemetry"
	"github.com/tourops/backend/internal/interfaces/http/handler"
	"github.com/tourops/backend/internal/interfaces/http/middleware"
	"github.com/tourops/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const maxRequestBody = 1 << 20

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.ForEnvironment(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// OpenTelemetry logs; the bridged logger tees entries to the collector
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize OTEL logs", zap.Error(err))
	}
	defer shutdown(log, "logger provider", logProvider.Shutdown)
	logsLevel, err := logger.ParseLevel(cfg.Telemetry.LogsLevel)
	if err != nil {
		log.Fatal("Invalid telemetry.logs_level", zap.Error(err))
	}
	log = logProvider.Bridge(log, logsLevel)

	log.Info("Starting capacity service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Tracing and metrics
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:           cfg.Telemetry.Enabled && (cfg.Telemetry.HTTPTraceEnabled || cfg.Telemetry.DBTraceEnabled),
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	capacityMetrics, err := telemetry.NewCapacityMetrics(meterProvider.Meter("tourops/capacity"))
	if err != nil {
		log.Fatal("Failed to create capacity metrics", zap.Error(err))
	}
	httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter("tourops/http"))
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.App.Env != "production",
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        telemetry.DBSystemFor(cfg.Database.Driver),
		}, log)
		if err := plugin.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	if cfg.Database.AutoMigrate {
		if err := migrateSchema(ctx, cfg, db, log); err != nil {
			log.Fatal("Failed to migrate database schema", zap.Error(err))
		}
	}

	// Event bus and idempotency keys; with Redis both are shared across instances
	eventBus := event.NewInMemoryEventBus(log)
	var idempotencyStore cache.IdempotencyStore
	if cfg.Redis.Enabled {
		redisClient, err := event.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		bridge := event.NewRedisBridge(redisClient, cfg.Redis.ChannelPrefix, log)
		eventBus.Subscribe(bridge, bridge.EventTypes()...)
		idempotencyStore = cache.NewRedisIdempotencyStore(redisClient, cfg.Redis.ChannelPrefix+":idempotency:")
		log.Info("Redis event bridge enabled",
			zap.String("addr", cfg.Redis.Addr()),
			zap.String("channel_prefix", cfg.Redis.ChannelPrefix))
	}
	if idempotencyStore == nil {
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer shutdown(log, "event bus", eventBus.Stop)

	// Capacity engine
	engine := appcap.NewEngine(
		persistence.NewGormTransactionScope(db.DB),
		eventBus,
		log,
		engineConfig(cfg.Capacity),
		appcap.WithMetrics(capacityMetrics),
	)

	// Scheduled reconciliation
	if cfg.Scheduler.Enabled {
		syncScheduler, err := scheduler.NewSyncScheduler(scheduler.SchedulerConfig{
			Enabled:    true,
			Workers:    cfg.Scheduler.Workers,
			JobTimeout: cfg.Scheduler.JobTimeout,
		}, engine.Sync, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer shutdown(log, "sync scheduler", syncScheduler.Stop)

		tenants, err := tenantProvider(cfg.Scheduler.Tenants, persistence.NewGormInventoryItemRepository(db.DB))
		if err != nil {
			log.Fatal("Invalid scheduler.tenants", zap.Error(err))
		}
		trigger := scheduler.NewIntervalTrigger(cfg.Scheduler.Interval, syncScheduler, tenants, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
		// the trigger must stop before the scheduler it submits to
		defer shutdown(log, "sync trigger", trigger.Stop)

		log.Info("Sync scheduler started",
			zap.Duration("interval", cfg.Scheduler.Interval),
			zap.Int("workers", cfg.Scheduler.Workers),
			zap.Int("static_tenants", len(cfg.Scheduler.Tenants)),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: recovery first so panics anywhere are caught, request id
	// before logging and tracing so both can report it
	r.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled && cfg.Telemetry.HTTPTraceEnabled,
		}),
		httpMetrics,
		middleware.Secure(),
		middleware.BodyLimit(maxRequestBody),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	systemHandler.RegisterProbes(r)

	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.Logger = log
	router.NewRouter(r).
		Register(
			router.NewDomainGroup("capacity", "/capacity").
				Use(
					middleware.Tenant(tenantCfg),
					middleware.SpanEnricher(),
					middleware.Idempotency(middleware.IdempotencyConfig{
						Store:  idempotencyStore,
						TTL:    cfg.HTTP.IdempotencyTTL,
						Logger: log,
					}),
				).
				Mount(handler.NewCapacityHandler(engine)),
			router.NewDomainGroup("system", "/system").
				Mount(systemHandler),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// engineConfig maps the capacity configuration section onto the engine
func engineConfig(c config.CapacityConfig) appcap.Config {
	cfg := appcap.DefaultConfig()
	cfg.ConflictRetention = c.ConflictRetention
	cfg.ConflictHistoryLimit = c.ConflictHistoryLimit
	cfg.SeverityThreshold = c.SeverityThreshold
	cfg.OperationTimeout = c.OperationTimeout
	cfg.ItemTimeout = c.ItemTimeout
	cfg.Retry.MaxRetries = c.MaxRetries
	cfg.Retry.InitialInterval = c.RetryInitialInterval
	cfg.Policy = capacity.ActivePolicy{PendingHoldsCapacity: c.PendingHoldsCapacity}
	return cfg
}

// tenantProvider returns the configured tenant list, or every tenant with an
// active item when none is configured
func tenantProvider(configured []string, repo scheduler.TenantProvider) (scheduler.TenantProvider, error) {
	if len(configured) == 0 {
		return repo, nil
	}
	tenants := make(scheduler.StaticTenants, 0, len(configured))
	for _, raw := range configured {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, nil
}

// migrateSchema brings the schema up to date: SQL migrations on postgres,
// GORM auto-migration on sqlite
func migrateSchema(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		return db.AutoMigrate()
	}

	m, err := migration.NewFromURL(cfg.Database.DSN(), cfg.Database.MigrationsPath, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	if err := m.Up(ctx); err != nil {
		return err
	}
	v, _, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("Database schema migrated", zap.Uint("version", v))
	return nil
}

func shutdown(log *zap.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Error("Error stopping "+name, zap.Error(err))
	}
}
