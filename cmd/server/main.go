// Package main is the entry point for the Clinicware backend server.
//
//	@title						Clinicware Backend API
//	@version					1.0
//	@description				Purchase invoice ingestion and ledger posting service for clinics and pharmacies
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token, prefixed with "Bearer "
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	_ "github.com/clinicware/backend/docs"
	appingestion "github.com/clinicware/backend/internal/application/ingestion"
	appledger "github.com/clinicware/backend/internal/application/ledger"
	appprocurement "github.com/clinicware/backend/internal/application/procurement"
	"github.com/clinicware/backend/internal/infrastructure/auth"
	"github.com/clinicware/backend/internal/infrastructure/cache"
	"github.com/clinicware/backend/internal/infrastructure/config"
	"github.com/clinicware/backend/internal/infrastructure/event"
	"github.com/clinicware/backend/internal/infrastructure/extraction"
	"github.com/clinicware/backend/internal/infrastructure/logger"
	"github.com/clinicware/backend/internal/infrastructure/persistence"
	"github.com/clinicware/backend/internal/infrastructure/storage"
	"github.com/clinicware/backend/internal/infrastructure/telemetry"
	"github.com/clinicware/backend/internal/interfaces/http/handler"
	"github.com/clinicware/backend/internal/interfaces/http/middleware"
	"github.com/clinicware/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Telemetry providers are optional; a disabled config yields no-op
	// tracers and meters so the instrumented code paths stay cheap.
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer provider shutdown failed", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(rootCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("meter provider shutdown failed", zap.Error(err))
		}
	}()

	logsProvider, err := telemetry.NewLoggerProvider(rootCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := logsProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("logger provider shutdown failed", zap.Error(err))
		}
	}()
	if logsProvider.IsEnabled() {
		// From here on every record is teed to the collector
		log = telemetry.NewBridgedLogger(log.Core(), telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: logsProvider,
			Level:          zapcore.InfoLevel,
		}))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Telemetry.ProfilingEnabled,
		ServerAddress:       cfg.Telemetry.ProfilingServerAddr,
		ApplicationName:     cfg.Telemetry.ServiceName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("profiler shutdown failed", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("span profiles unavailable", zap.Error(err))
		}
	}

	// Connect to the database with GORM logging routed through zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("database close failed", zap.Error(err))
		}
	}()

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("failed to register database tracing", zap.Error(err))
		}
	}

	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.Enabled && cfg.Telemetry.DBMetricsEnabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Warn("failed to register database metrics", zap.Error(err))
	} else if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(rootCtx)
		defer dbMetrics.Stop()
	}

	// Repositories
	uploadRepo := persistence.NewGormUploadRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	purchaseRepo := persistence.NewGormPurchaseRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	entryRepo := persistence.NewGormEntryRepository(db.DB)
	payableRepo := persistence.NewGormPayableRepository(db.DB)

	// Transaction scopes bind the receive/return/payment flows to a
	// single database transaction each.
	procurementScope := persistence.NewGormProcurementTransactionScope(db.DB)
	ledgerScope := persistence.NewGormLedgerTransactionScope(db.DB)

	// Idempotency store: Redis when reachable, in-memory otherwise
	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis, cache.StoreOptions{
		Logger:       log,
		RequireRedis: cfg.App.Env == "production",
	})
	if err != nil {
		log.Fatal("failed to create idempotency store", zap.Error(err))
	}

	// Invoice document storage
	documentStore, err := storage.NewDocumentStore(&cfg.Storage, log)
	if err != nil {
		log.Fatal("failed to initialize document storage", zap.Error(err))
	}

	// Vision extraction providers; the secondary is optional
	primaryExtractor, err := buildExtractionProvider(cfg.Extraction.Primary, log)
	if err != nil {
		log.Fatal("failed to initialize primary extraction provider", zap.Error(err))
	}
	var secondaryExtractor appingestion.InvoiceExtractor
	if cfg.Extraction.Secondary.APIKey != "" {
		secondaryExtractor, err = buildExtractionProvider(cfg.Extraction.Secondary, log)
		if err != nil {
			log.Fatal("failed to initialize secondary extraction provider", zap.Error(err))
		}
	}
	extractor := appingestion.NewFallbackExtractor(primaryExtractor, secondaryExtractor, log)

	// Event bus and subscribers
	eventBus := event.NewInMemoryEventBus(log)

	// Application services
	purchaseService := appprocurement.NewPurchaseService(procurementScope, purchaseRepo, supplierRepo, productRepo, log)
	purchaseService.SetEventPublisher(eventBus)
	purchaseService.SetIdempotencyStore(idempotencyStore)
	purchaseService.SetUnlinkedItemPolicy(appprocurement.UnlinkedItemPolicy(cfg.Ingestion.UnlinkedItemPolicy))

	supplierService := appprocurement.NewSupplierService(supplierRepo, log)
	paymentService := appledger.NewPaymentService(ledgerScope, payableRepo, idempotencyStore, log)
	journalService := appledger.NewJournalService(ledgerScope, log)
	queryService := appledger.NewQueryService(entryRepo)

	// A received purchase opens a supplier payable; the idempotent
	// wrapper guards against event redelivery.
	payableHandler := appledger.NewPurchaseReceivedHandler(payableRepo, log)
	eventBus.Subscribe(
		event.NewIdempotentHandler(payableHandler, idempotencyStore, log),
		payableHandler.EventTypes()...,
	)
	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Warn("event bus stop failed", zap.Error(err))
		}
	}()

	// Background parse worker
	parseWorker := appingestion.NewParseWorker(
		uploadRepo, documentStore, extractor, supplierRepo, purchaseService, eventBus, log,
		appingestion.WithConcurrency(cfg.Ingestion.WorkerConcurrency),
		appingestion.WithQueueSize(cfg.Ingestion.QueueSize),
	)
	parseWorker.Start(rootCtx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Ingestion.ShutdownTimeout)
		defer cancel()
		if err := parseWorker.Stop(stopCtx); err != nil {
			log.Warn("parse worker drain incomplete", zap.Error(err))
		}
	}()

	uploadService := appingestion.NewUploadService(uploadRepo, documentStore, parseWorker, log)
	uploadService.SetDraftCreator(purchaseService)

	// Business metrics run on the shared meter; periodic collection
	// keeps stock and payable health gauges fresh.
	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:          meterProvider.Meter("clinicware.business"),
		Logger:         log,
		HealthProvider: telemetry.NewGormStockHealthProvider(db.DB),
	})
	if err != nil {
		log.Warn("business metrics unavailable", zap.Error(err))
	} else {
		businessMetrics.StartPeriodicCollection(rootCtx, tenantProviderFunc(func(ctx context.Context) ([]uuid.UUID, error) {
			return activeTenantIDs(ctx, db.DB)
		}), 5*time.Minute)
		defer businessMetrics.Stop()
	}

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	tokenBlacklist := buildTokenBlacklist(cfg, log)

	// HTTP engine and middleware stack
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("clinicware.http"), true))
	}
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	// Health endpoint stays outside the authenticated API surface
	engine.GET("/health", healthHandler(db, log))

	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:       jwtService,
		TokenBlacklist:   tokenBlacklist,
		SkipPaths:        []string{"/health", "/api/v1/system/ping"},
		SkipPathPrefixes: []string{"/swagger"},
		Logger:           log,
	})

	if cfg.Swagger.Enabled {
		swaggerGroup := engine.Group("/swagger")
		swaggerGroup.Use(middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, jwtMiddleware))
		swaggerGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(jwtMiddleware)
	r.Use(middleware.TenantMiddlewareWithConfig(middleware.TenantMiddlewareConfig{
		JWTEnabled: true,
		Required:   true,
		SkipPaths:  []string{"/api/v1/system/ping"},
		Logger:     log,
	}))

	uploadHandler := handler.NewUploadHandler(uploadService, purchaseService, cfg.Ingestion.MaxUploadBytes)
	purchaseHandler := handler.NewPurchaseHandler(purchaseService)
	supplierHandler := handler.NewSupplierHandler(supplierService)
	ledgerHandler := handler.NewLedgerHandler(paymentService, journalService, queryService)
	systemHandler := handler.NewSystemHandler()

	ingestionGroup := router.NewDomainGroup("ingestion", "/ingestion").
		POST("/uploads", middleware.RequireCapability("uploads:create"), uploadHandler.Intake).
		GET("/uploads", middleware.RequireCapability("uploads:read"), uploadHandler.List).
		GET("/uploads/:id", middleware.RequireCapability("uploads:read"), uploadHandler.Get).
		POST("/uploads/:id/cancel", middleware.RequireCapability("uploads:update"), uploadHandler.Cancel).
		POST("/uploads/:id/confirm", middleware.RequireCapability("purchases:create"), uploadHandler.Confirm)

	procurementGroup := router.NewDomainGroup("procurement", "/procurement").
		POST("/purchases", middleware.RequireCapability("purchases:create"), purchaseHandler.Create).
		GET("/purchases", middleware.RequireCapability("purchases:read"), purchaseHandler.List).
		GET("/purchases/:id", middleware.RequireCapability("purchases:read"), purchaseHandler.Get).
		PUT("/purchases/:id/items", middleware.RequireCapability("purchases:update"), purchaseHandler.ReplaceItems).
		POST("/purchases/:id/confirm", middleware.RequireCapability("purchases:update"), purchaseHandler.Confirm).
		DELETE("/purchases/:id", middleware.RequireCapability("purchases:delete"), purchaseHandler.Delete).
		POST("/purchases/:id/receive", middleware.RequireCapability("purchases:receive"), purchaseHandler.Receive).
		POST("/purchases/:id/return", middleware.RequireCapability("purchases:receive"), purchaseHandler.Return).
		POST("/suppliers", middleware.RequireCapability("suppliers:create"), supplierHandler.Create).
		GET("/suppliers", middleware.RequireCapability("suppliers:read"), supplierHandler.List).
		GET("/suppliers/:id", middleware.RequireCapability("suppliers:read"), supplierHandler.Get).
		PUT("/suppliers/:id", middleware.RequireCapability("suppliers:update"), supplierHandler.Update)

	ledgerGroup := router.NewDomainGroup("ledger", "/ledger").
		POST("/payments", middleware.RequireCapability("ledger:write"), ledgerHandler.Pay).
		GET("/payables", middleware.RequireCapability("ledger:read"), ledgerHandler.ListPayables).
		POST("/journal-entries", middleware.RequireCapability("ledger:write"), ledgerHandler.PostJournal).
		GET("/entries", middleware.RequireCapability("ledger:read"), ledgerHandler.ListEntries).
		GET("/summary", middleware.RequireCapability("ledger:read"), ledgerHandler.Summary).
		GET("/export", middleware.RequireCapability("ledger:read"), ledgerHandler.Export)

	systemGroup := router.NewDomainGroup("system", "/system").
		GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping)

	r.Register(ingestionGroup)
	r.Register(procurementGroup)
	r.Register(ledgerGroup)
	r.Register(systemGroup)
	r.Setup()

	// HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	rootCancel()
	log.Info("server stopped")
}

// buildExtractionProvider maps one provider config block to its concrete
// vision client.
func buildExtractionProvider(cfg config.ProviderConfig, log *zap.Logger) (appingestion.InvoiceExtractor, error) {
	providerCfg := extraction.ProviderConfig{
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		Model:           cfg.Model,
		Timeout:         cfg.Timeout,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
	switch cfg.Provider {
	case "openai":
		return extraction.NewOpenAIVisionProvider(providerCfg, log)
	case "gemini":
		return extraction.NewGeminiVisionProvider(providerCfg, log)
	default:
		return nil, fmt.Errorf("unsupported extraction provider %q", cfg.Provider)
	}
}

// buildTokenBlacklist uses Redis when available so revocations survive
// restarts; development falls back to the in-process blacklist.
func buildTokenBlacklist(cfg *config.Config, log *zap.Logger) auth.TokenBlacklist {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, using in-memory token blacklist", zap.Error(err))
		_ = client.Close()
		return auth.NewInMemoryTokenBlacklist()
	}
	return auth.NewRedisTokenBlacklist(client)
}

// healthHandler reports liveness plus database connectivity
func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		dbStatus := "up"
		if err := db.Ping(); err != nil {
			log.Warn("health check database ping failed", zap.Error(err))
			status = "degraded"
			code = http.StatusServiceUnavailable
			dbStatus = "down"
		}
		c.JSON(code, gin.H{
			"status":   status,
			"database": dbStatus,
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// activeTenantIDs lists the tenants with at least one upload or
// purchase, for the periodic health gauges.
func activeTenantIDs(ctx context.Context, db *gorm.DB) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.WithContext(ctx).
		Raw("SELECT DISTINCT tenant_id FROM purchases UNION SELECT DISTINCT tenant_id FROM invoice_uploads").
		Scan(&ids).Error
	return ids, err
}

// tenantProviderFunc adapts a function to the telemetry TenantProvider
// interface.
type tenantProviderFunc func(ctx context.Context) ([]uuid.UUID, error)

func (f tenantProviderFunc) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return f(ctx)
}
