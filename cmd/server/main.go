package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/escalateai/api/internal/app"
	"github.com/escalateai/api/internal/config"
	"github.com/escalateai/api/internal/database"
	"github.com/escalateai/api/internal/eventbus"
	"github.com/escalateai/api/internal/generation"
	"github.com/escalateai/api/internal/handlers"
	"github.com/escalateai/api/internal/middleware"
	"github.com/escalateai/api/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/escalateai/api/docs" // Swagger docs
)

// @title EscalateAI API
// @version 0.1.0
// @description Turns a structured complaint into ready-to-send messages, emails and follow-ups.
// @BasePath /
// @schemes http https
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zapConfig := zap.NewProductionConfig()
	if !cfg.IsProduction() {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("EscalateAI API starting...",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Environment),
		zap.String("primary_model", cfg.BackendPrimary().Model),
		zap.String("fallback_model", cfg.BackendFallback().Model),
	)

	shutdownTelemetry, err := telemetry.InitTracer(ctx, "escalateai-api", cfg.OTLPEndpoint)
	if err != nil {
		// Tracing is optional; the collector might be down
		logger.Error("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}

	metrics, err := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	var svcOpts []generation.ServiceOption
	deps := map[string]handlers.Pinger{"redis": nil, "nats": nil}

	if cfg.NATSURL != "" {
		bus, err := eventbus.Connect(cfg.NATSURL, cfg.EventSubject, logger)
		if err != nil {
			logger.Error("failed to connect to NATS, events disabled", zap.Error(err))
		} else {
			defer bus.Close()
			svcOpts = append(svcOpts, generation.WithPublisher(bus))
			deps["nats"] = bus
			logger.Info("connected to NATS", zap.String("subject", bus.Subject()))
		}
	}

	var limiter middleware.Limiter = middleware.NewPerMinuteLimiter(cfg.RateLimitPerMinute)
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis, using in-memory rate limiting", zap.Error(err))
		} else {
			defer rdb.Close()
			limiter = middleware.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute)
			deps["redis"] = rdb
			logger.Info("connected to redis")
		}
	}

	svc, err := app.NewService(ctx, cfg, logger, []generation.Option{generation.WithRecorder(metrics)}, svcOpts...)
	if err != nil {
		logger.Fatal("failed to build generation service", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	primary, fallback := cfg.BackendPrimary(), cfg.BackendFallback()
	healthHandler := handlers.NewHealthHandler(
		handlers.BackendInfo{Model: primary.Model, Configured: primary.Configured()},
		handlers.BackendInfo{Model: fallback.Model, Configured: fallback.Configured()},
		deps,
	)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/deep", healthHandler.DeepHealth)

	breaker := middleware.NewCircuitBreakerWithConfig(cfg.CircuitFailureThreshold, 1, cfg.CircuitOpenTimeout)
	breaker.OnStateChange = func(from, to middleware.CircuitState) {
		logger.Warn("generation circuit changed state",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	generationHandler := handlers.NewGenerationHandler(svc, logger)
	router.POST("/generate",
		middleware.RateLimitMiddleware(limiter, logger),
		middleware.CircuitBreakerMiddleware(breaker),
		generationHandler.Generate,
	)

	// Worst case for one request is every attempt timing out plus backoff
	writeTimeout := time.Duration(2*cfg.MaxAttempts)*cfg.AttemptTimeout + time.Duration(2*cfg.MaxAttempts)*cfg.BackoffMax + 5*time.Second

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}
