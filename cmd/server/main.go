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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	valuationapp "github.com/tradein/backend/internal/application/valuation"
	wizardapp "github.com/tradein/backend/internal/application/wizard"
	"github.com/tradein/backend/internal/domain/valuation"
	"github.com/tradein/backend/internal/domain/wizard"
	"github.com/tradein/backend/internal/infrastructure/accutrade"
	"github.com/tradein/backend/internal/infrastructure/config"
	"github.com/tradein/backend/internal/infrastructure/logger"
	"github.com/tradein/backend/internal/infrastructure/session"
	"github.com/tradein/backend/internal/infrastructure/telemetry"
	"github.com/tradein/backend/internal/interfaces/http/handler"
	"github.com/tradein/backend/internal/interfaces/http/middleware"
	"github.com/tradein/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
		Version:    cfg.App.Version,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting trade-in backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry: traces, metrics and continuous profiling
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = lp.Bridge(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              cfg.Profiler.Enabled,
		ServerAddress:        cfg.Profiler.ServerAddress,
		ApplicationName:      cfg.App.Name,
		BasicAuthUser:        cfg.Profiler.BasicAuthUser,
		BasicAuthPassword:    cfg.Profiler.BasicAuthPass,
		ProfileCPU:           true,
		ProfileAllocSpace:    true,
		ProfileInuseSpace:    true,
		ProfileGoroutines:    true,
		ProfileMutex:         cfg.Profiler.MutexProfileRate > 0,
		ProfileBlock:         cfg.Profiler.BlockProfileRate > 0,
		MutexProfileFraction: cfg.Profiler.MutexProfileRate,
		BlockProfileRate:     cfg.Profiler.BlockProfileRate,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Profiler.Enabled && cfg.Profiler.SpanProfiles {
		if err := tp.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link profiles to spans", zap.Error(err))
		}
	}

	// Valuation provider
	providerMetrics, err := telemetry.NewProviderMetrics(mp.Meter("valuation.provider"), telemetry.ProviderMetricsConfig{
		SlowCallThreshold: cfg.Provider.SlowCallThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to create provider metrics", zap.Error(err))
	}
	client, err := accutrade.NewClient(&accutrade.Config{
		BaseURL:          cfg.Provider.BaseURL,
		APIKeyEnv:        cfg.Provider.APIKeyEnv,
		TimeoutSeconds:   cfg.Provider.TimeoutSeconds,
		MaxResponseBytes: cfg.Provider.MaxResponseBytes,
	},
		accutrade.WithRecorder(providerMetrics),
		accutrade.WithLogger(log.Named("accutrade")),
	)
	if err != nil {
		log.Fatal("Failed to create valuation provider client", zap.Error(err))
	}
	if _, ok := os.LookupEnv(cfg.Provider.APIKeyEnv); !ok {
		// Requests fail with a configuration error until the key is set
		log.Warn("Valuation provider API key is not set", zap.String("env", cfg.Provider.APIKeyEnv))
	}

	policy, err := valuation.NewMileagePolicy(cfg.Valuation.MileagePolicy, cfg.Valuation.RatePerThousand, cfg.Valuation.FlatAmount)
	if err != nil {
		log.Fatal("Invalid mileage policy", zap.Error(err))
	}
	gateway := valuationapp.NewGatewayService(client, policy, cfg.Valuation.DefaultAverageMileage, log.Named("valuation"))

	// Wizard sessions
	store, err := session.NewStoreFactory(cfg.Session, cfg.Redis, session.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create session store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing session store", zap.Error(err))
		}
	}()

	wizardMetrics, err := telemetry.NewWizardMetrics(mp.Meter("wizard"))
	if err != nil {
		log.Fatal("Failed to create wizard metrics", zap.Error(err))
	}
	sessions, err := wizardapp.NewSessionService(store, gateway, wizardapp.Config{
		SessionTTL: cfg.Session.TTL,
		Report: wizard.ReportConfig{
			TaxRate:    decimal.NewFromFloat(cfg.Report.TaxRate),
			RangeFloor: decimal.NewFromFloat(cfg.Report.RangeFloor),
		},
		Locale:   cfg.Report.Locale,
		Currency: cfg.Report.Currency,
	},
		wizardapp.WithMetrics(wizardMetrics),
		wizardapp.WithLogger(log.Named("wizard")),
	)
	if err != nil {
		log.Fatal("Failed to create wizard session service", zap.Error(err))
	}

	// Initialize HTTP handlers
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version)
	vehicleHandler := handler.NewVehicleHandler(gateway)
	wizardHandler := handler.NewWizardHandler(sessions)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Tracing - Server span for the request
	// 3. Recovery - Catch panics
	// 4. Logger - Log requests
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: mp,
		Enabled:       cfg.Telemetry.MetricsEnabled,
	}))
	engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
		Enabled:   cfg.Profiler.Enabled,
		SkipPaths: []string{"/health"},
	}))

	// Health check endpoint (outside the API base path)
	engine.GET("/health", systemHandler.Health)

	router.NewRouter(engine, router.WithBasePath(router.DefaultBasePath)).
		Register(systemHandler.Routes(), vehicleHandler.Routes(), wizardHandler.Routes()).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("mileage_policy", gateway.PolicyName()),
			zap.String("session_store", cfg.Session.Store),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if rateLimiter != nil {
		rateLimiter.Stop()
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
