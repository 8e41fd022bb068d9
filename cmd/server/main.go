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
	"go.uber.org/zap"

	"github.com/agencydesk/backend/internal/application/automation"
	appbilling "github.com/agencydesk/backend/internal/application/billing"
	"github.com/agencydesk/backend/internal/domain/notification"
	"github.com/agencydesk/backend/internal/infrastructure/auth"
	"github.com/agencydesk/backend/internal/infrastructure/cache"
	"github.com/agencydesk/backend/internal/infrastructure/config"
	"github.com/agencydesk/backend/internal/infrastructure/logger"
	"github.com/agencydesk/backend/internal/infrastructure/mail"
	"github.com/agencydesk/backend/internal/infrastructure/persistence"
	"github.com/agencydesk/backend/internal/infrastructure/scheduler"
	"github.com/agencydesk/backend/internal/infrastructure/telemetry"
	"github.com/agencydesk/backend/internal/interfaces/http/handler"
	"github.com/agencydesk/backend/internal/interfaces/http/middleware"
	"github.com/agencydesk/backend/internal/interfaces/http/router"
)

//	@title			AgencyDesk Backend API
//	@version		1.0
//	@description	Installment lifecycle automation for the education-placement back office

//	@contact.name	API Support
//	@contact.email	support@agencydesk.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

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
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting AgencyDesk Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing (no-op provider when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Register otelgorm so repository queries show up as child spans
	dbTracingConfig := telemetry.DefaultDBTracingConfig()
	dbTracingConfig.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing := telemetry.NewDBTracingPlugin(dbTracingConfig, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Initialize repositories
	agencyRepo := persistence.NewGormAgencyRepository(db.DB)
	installmentRepo := persistence.NewGormInstallmentRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	jobRunRepo := persistence.NewGormJobRunRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Agency settings cache: Redis when configured, in-memory otherwise
	var settingsCache cache.SettingsCache
	if cfg.Redis.Host != "" {
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		redisCache, err := cache.NewRedisSettingsCache(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		settingsCache = redisCache
		log.Info("Agency settings cache backed by Redis", zap.String("addr", redisAddr))
	} else {
		settingsCache = cache.NewInMemorySettingsCache()
		log.Info("Agency settings cache running in-memory")
	}
	defer func() {
		if err := settingsCache.Close(); err != nil {
			log.Error("Error closing settings cache", zap.Error(err))
		}
	}()
	settingsProvider := cache.NewAgencySettingsProvider(
		agencyRepo, settingsCache, cfg.Automation.SettingsCacheTTL, log)

	// Payment recording service
	paymentService := appbilling.NewPaymentService(txScope, settingsProvider, log)

	// Outbound mail transport: the HTTP provider when configured, the
	// logging stub otherwise
	mailTransport, err := buildMailTransport(cfg.Mailer, log)
	if err != nil {
		log.Fatal("Failed to initialize mail transport", zap.Error(err))
	}

	// Reminder delivery with retry policy from config
	executor := automation.NewDeliveryExecutor(mailTransport, log).
		WithRetryPolicy(cfg.Automation.DeliveryMaxRetries, cfg.Automation.DeliveryBaseDelay)

	// Installment lifecycle pipeline
	pipeline := automation.NewPipelineService(
		agencyRepo, installmentRepo, notificationRepo, jobRunRepo, executor, log)

	// Daily cron scheduler for the pipeline
	schedulerConfig := scheduler.DefaultPipelineCronSchedulerConfig()
	schedulerConfig.Enabled = cfg.Automation.Enabled
	if cfg.Automation.DailyCronSchedule != "" {
		hour, minute, err := scheduler.ParseCronSchedule(cfg.Automation.DailyCronSchedule)
		if err != nil {
			log.Fatal("Invalid automation cron schedule",
				zap.String("schedule", cfg.Automation.DailyCronSchedule), zap.Error(err))
		}
		schedulerConfig.CronHour = hour
		schedulerConfig.CronMinute = minute
	}
	pipelineScheduler := scheduler.NewPipelineCronScheduler(schedulerConfig, pipeline, log)
	if schedulerConfig.Enabled {
		if err := pipelineScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start pipeline scheduler", zap.Error(err))
		}
		defer func() {
			if err := pipelineScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping pipeline scheduler", zap.Error(err))
			}
		}()
		log.Info("Pipeline scheduler started",
			zap.Int("cron_hour", schedulerConfig.CronHour),
			zap.Int("cron_minute", schedulerConfig.CronMinute),
		)
	}

	// Token validation for operator endpoints
	jwtService := auth.NewJWTService(cfg.JWT)
	var tokenBlacklist auth.TokenBlacklist
	if cfg.Redis.Host != "" {
		blacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect token blacklist to Redis", zap.Error(err))
		}
		defer blacklist.Close()
		tokenBlacklist = blacklist
	} else {
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	}

	// Initialize HTTP handlers
	paymentHandler := handler.NewPaymentHandler(paymentService)
	automationHandler := handler.NewAutomationHandler(pipeline, jobRunRepo, pipelineScheduler)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - OpenTelemetry spans (no-op when disabled)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes. Automation
	// endpoints authenticate with an API key instead of operator tokens.
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/automation",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	if cfg.Telemetry.Enabled {
		// re-enrich the request span now that JWT claims are available
		r.Use(middleware.TracingAttributeInjector())
	}

	// Billing domain (installment payments)
	billingRoutes := router.NewDomainGroup("/installments")
	billingRoutes.POST("/:id/payments", paymentHandler.RecordPayment)

	// Automation domain (pipeline trigger and status), API-key protected
	automationRoutes := router.NewDomainGroup("/automation")
	automationRoutes.Use(middleware.APIKeyAuth(cfg.Automation.TriggerAPIKey, log))
	automationRoutes.POST("/installments/run", automationHandler.TriggerRun)
	automationRoutes.GET("/installments/status", automationHandler.GetStatus)

	// System routes
	systemRoutes := router.NewDomainGroup("/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(billingRoutes).
		Register(automationRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
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
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// buildMailTransport selects the outbound mail transport. An empty
// endpoint selects the logging stub, useful in development.
func buildMailTransport(cfg config.MailerConfig, log *zap.Logger) (notification.Transport, error) {
	if cfg.Endpoint == "" {
		log.Info("Mail endpoint not configured, using stub transport")
		return mail.NewStubTransport(log), nil
	}
	return mail.NewHTTPTransport(mail.Config{
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
		Timeout:     cfg.Timeout,
	}, log)
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		}
		if stats, err := db.Stats(); err == nil {
			body["db_pool"] = gin.H{
				"open":   stats.OpenConnections,
				"in_use": stats.InUse,
				"idle":   stats.Idle,
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
