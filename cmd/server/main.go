package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"boardchat/internal/core/services"
	httphandlers "boardchat/internal/handlers/http"
	"boardchat/internal/infrastructure/middleware"
	"boardchat/internal/infrastructure/monitoring"
	"boardchat/internal/infrastructure/reliability"
	"boardchat/internal/infrastructure/repositories"
	"boardchat/internal/infrastructure/signal"
	"boardchat/pkg/circuitbreaker"
	"boardchat/pkg/config"
	"boardchat/pkg/logger"
	"boardchat/pkg/retry"
	"boardchat/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"config.yaml",
	}
	if p := os.Getenv("BOARDCHAT_CONFIG"); p != "" {
		configPaths = append([]string{p}, configPaths...)
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()
	if err != nil {
		log.Warnw("Config could not be loaded, using defaults", "error", err)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "boardchat",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("Failed to initialize tracing", "error", err)
	}

	// Repositories
	repoFactory := repositories.NewRepositoryFactory(ctx, cfg, log)
	repos := repoFactory.Create()
	if err := repositories.Seed(ctx, repos, cfg.Seed, log); err != nil {
		log.Fatalw("Failed to seed repositories", "error", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := monitoring.NewPrometheusCollector(registry)

	// Store gateway behind retry + circuit breaker
	gateway := services.NewStoreGateway(
		repos.Users,
		repos.Boards,
		repos.Channels,
		repos.Messages,
		cfg.Store.CreatorCacheTTL,
		cfg.Store.Timeout,
		log,
	)

	retryConfig := retry.DefaultConfig()
	retryConfig.Enabled = cfg.Store.Retry.Enabled
	retryConfig.MaxAttempts = cfg.Store.Retry.MaxAttempts
	retryConfig.InitialDelay = cfg.Store.Retry.InitialDelay
	retryConfig.MaxDelay = cfg.Store.Retry.MaxDelay

	cbConfig := circuitbreaker.DefaultConfig()
	cbConfig.FailureThreshold = cfg.Store.CircuitBreaker.FailureThreshold
	cbConfig.SuccessThreshold = cfg.Store.CircuitBreaker.SuccessThreshold
	cbConfig.Timeout = cfg.Store.CircuitBreaker.Timeout

	store := reliability.NewStoreWrapper(gateway, retryConfig, cbConfig, log)

	// Services
	roomRegistry := services.NewRoomRegistry(collector, log)
	exchange := services.NewMessageExchange(store, roomRegistry, collector, log)
	notifier := services.NewTopologyNotifier(store, roomRegistry, log)
	channelService := services.NewChannelService(store, repos.Boards, repos.Channels, repos.Messages, notifier, cfg.Store.Timeout)
	authService := services.NewAuthService(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.VerifyTimeout,
		repos.Users,
	)

	wsServer := signal.NewWebSocketServer(
		authService,
		roomRegistry,
		exchange,
		channelService,
		notifier,
		collector,
		signal.OptionsFromConfig(cfg),
		log,
	)

	// Health checks
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddRepositoryCheck(repos.Channels, cfg.Monitoring.HealthCheckInterval, cfg.Monitoring.HealthCheckTimeout)
	healthChecker.AddCircuitBreakerCheck(store.BreakerState, cfg.Monitoring.HealthCheckInterval, cfg.Monitoring.HealthCheckTimeout)
	if repoFactory.UsesRedis() {
		healthChecker.AddRedisCheck(repoFactory.RedisClient(), cfg.Monitoring.HealthCheckInterval, cfg.Monitoring.HealthCheckTimeout)
	}
	if cfg.Monitoring.HealthCheckInterval > 0 {
		healthChecker.StartBackgroundChecks(ctx, func(name string, err error) {
			log.Warnw("Health check failed", "check", name, "error", err)
		})
	}

	// HTTP
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(),
		middleware.ErrorHandlerMiddleware(log),
	)

	// The websocket route sits outside the rate-limited group: the
	// concurrency limiter would otherwise hold a slot per live connection.
	router.GET(cfg.Signal.Path, gin.WrapF(wsServer.HandleWebSocket))

	api := router.Group("/api/v1", middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Auth.IssueEnabled {
		httphandlers.NewAuthHandler(authService, repos.Users, cfg.Auth.AccessTokenTTL).SetupRoutes(api)
		log.Warn("Token issuance endpoint enabled")
	}
	secured := api.Group("", middleware.AuthMiddleware(authService))
	httphandlers.NewMessageHandler(exchange, channelService, cfg.Store.HistoryLimit).SetupRoutes(secured)
	httphandlers.NewChannelHandler(channelService).SetupRoutes(secured)

	router.GET("/health", func(c *gin.Context) {
		stats := roomRegistry.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
			"sessions":  stats.Sessions,
			"rooms":     stats.Rooms,
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx := c.Request.Context()
		status := healthChecker.CheckAll(ctx)
		code := http.StatusOK
		if !healthChecker.IsReady(ctx) {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
		log.Info("Prometheus metrics enabled")
	}

	// ReadTimeout/WriteTimeout do not apply to hijacked websocket
	// connections; those manage their own deadlines.
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting boardchat server",
			"address", cfg.Server.Address,
			"ws_path", cfg.Signal.Path,
			"redis", repoFactory.UsesRedis(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Errorw("Server failed", "error", err)
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	}

	log.Info("Shutting down boardchat server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	}

	wsCtx, wsCancel := context.WithTimeout(shutdownCtx, cfg.Signal.ShutdownTimeout)
	defer wsCancel()
	if err := wsServer.Shutdown(wsCtx); err != nil {
		log.Warnw("Websocket sessions did not drain", "error", err, "remaining", wsServer.ConnectedSessions())
	}

	gateway.Close()
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}

	log.Info("boardchat server stopped")
}
