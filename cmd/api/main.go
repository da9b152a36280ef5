package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/paywall-purchases/internal/application/listener"
	"github.com/bivex/paywall-purchases/internal/application/middleware"
	"github.com/bivex/paywall-purchases/internal/application/query"
	"github.com/bivex/paywall-purchases/internal/domain/bridge"
	"github.com/bivex/paywall-purchases/internal/domain/event"
	"github.com/bivex/paywall-purchases/internal/domain/service"
	"github.com/bivex/paywall-purchases/internal/infrastructure/cache"
	"github.com/bivex/paywall-purchases/internal/infrastructure/config"
	"github.com/bivex/paywall-purchases/internal/infrastructure/logging"
	"github.com/bivex/paywall-purchases/internal/infrastructure/metrics"
	"github.com/bivex/paywall-purchases/internal/infrastructure/nativebridge"
	"github.com/bivex/paywall-purchases/internal/interfaces/http/handlers"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logging.Init(&cfg.Sentry); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	logging.Logger.Info("Starting purchases API server",
		zap.Int("port", cfg.Server.Port),
		zap.String("platform", cfg.Purchases.Platform.String()),
		zap.String("environment", cfg.Sentry.Environment),
		zap.Bool("redis", cfg.Redis.Enabled()),
	)

	ctx := context.Background()

	var promMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		promMetrics = metrics.NewMetrics(prometheus.DefaultRegisterer, cfg.Metrics.Namespace)
	}

	// Native module
	module := nativebridge.NewMemoryModule(
		nativebridge.WithDefaultCatalog(),
		nativebridge.WithPlatform(cfg.Purchases.Platform),
		nativebridge.WithLogger(logging.WithComponent("native_module")),
	)

	// Event source: Redis pub/sub when configured, otherwise in-process
	var (
		source      bridge.EventSource = module
		redisClient *redis.Client
		redisSource *nativebridge.RedisEventSource
		store       listener.SnapshotStore
	)
	if cfg.Redis.Enabled() {
		redisClient, err = newRedisClient(cfg.Redis)
		if err != nil {
			logging.Logger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Logger.Fatal("Failed to ping Redis", zap.Error(err))
		}

		publisher := nativebridge.NewRedisPublisher(redisClient, cfg.Redis.ChannelPrefix, logging.WithComponent("redis_publisher"))
		if err := module.Attach(publisher); err != nil {
			logging.Logger.Fatal("Failed to attach Redis publisher", zap.Error(err))
		}
		redisSource = nativebridge.NewRedisEventSource(redisClient, cfg.Redis.ChannelPrefix, logging.WithComponent("redis_source"))
		defer redisSource.Close()
		source = redisSource

		store = cache.NewRedisPurchaserInfoStore(redisClient, cfg.Redis.ChannelPrefix, cfg.Redis.SnapshotTTL, logging.WithComponent("purchaser_info_store"))
	}

	// Listener registry
	registryOpts := []event.RegistryOption{
		event.WithLogger(logging.WithComponent("listener_registry")),
		event.WithPanicReporter(func(class bridge.EventClass, recovered any) {
			logging.ReportPanic("listener:"+string(class), recovered)
		}),
	}
	if promMetrics != nil {
		registryOpts = append(registryOpts, event.WithMetrics(promMetrics))
	}
	registry := event.NewRegistry(module, source, registryOpts...)

	// Services
	purchases := service.NewPurchasesService(module, registry, cfg.Purchases.Platform, logging.WithComponent("purchases"))

	// Application listeners
	infoCache := listener.NewPurchaserInfoCache(store, logging.WithComponent("purchaser_info_cache"))
	inbox := listener.NewPromoPurchaseInbox(logging.WithComponent("promo_inbox"))
	if err := purchases.AddPurchaserInfoUpdateListener(infoCache); err != nil {
		logging.Logger.Fatal("Failed to add purchaser info listener", zap.Error(err))
	}
	if err := purchases.AddShouldPurchasePromoProductListener(inbox); err != nil {
		logging.Logger.Fatal("Failed to add promo listener", zap.Error(err))
	}

	if err := configurePurchases(ctx, purchases, cfg.Purchases); err != nil {
		logging.Logger.Fatal("Failed to configure purchases", zap.Error(err))
	}

	// Queries
	checkAccessQuery := query.NewCheckAccessQuery(infoCache, purchases)

	// Initialize handlers
	purchasesHandler := handlers.NewPurchasesHandler(purchases, infoCache, inbox, checkAccessQuery)
	healthHandler := handlers.NewHealthHandler(registry, cfg.Purchases.Platform, redisClient)

	var purchaseLimit gin.HandlerFunc
	if redisClient != nil {
		rateLimiter := middleware.NewRateLimiter(redisClient, cfg.Redis.ChannelPrefix, true, logging.WithComponent("rate_limiter")) // fail open
		purchaseLimit = rateLimiter.Middleware(middleware.ByAppUserIDAndRoute, middleware.PerMinute(cfg.Redis.RateLimit))
	}

	// Setup Gin router
	if cfg.Sentry.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		logging.RecoveryMiddleware(),
		logging.RequestMiddleware(logging.Logger),
	)
	if promMetrics != nil {
		router.Use(promMetrics.Middleware())
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	handlers.RegisterRoutes(router, purchasesHandler, healthHandler, purchaseLimit)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		logging.Logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("Server exited")
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PoolTimeout = cfg.PoolTimeout
	return redis.NewClient(opts), nil
}

func configurePurchases(ctx context.Context, purchases *service.PurchasesService, cfg config.PurchasesConfig) error {
	opts := []service.SetupOption{service.WithObserverMode(cfg.ObserverMode)}
	if cfg.AppUserID != "" {
		opts = append(opts, service.WithAppUserID(cfg.AppUserID))
	}
	if err := purchases.Setup(ctx, cfg.APIKey, opts...); err != nil {
		return err
	}
	if err := purchases.SetDebugLogsEnabled(ctx, cfg.DebugLogs); err != nil {
		return fmt.Errorf("failed to set debug logs: %w", err)
	}
	if err := purchases.SetAllowSharingStoreAccount(ctx, cfg.AllowSharingStoreAccount); err != nil {
		return fmt.Errorf("failed to set allow sharing store account: %w", err)
	}
	if err := purchases.SetFinishTransactions(ctx, cfg.FinishTransactions); err != nil {
		return fmt.Errorf("failed to set finish transactions: %w", err)
	}
	return nil
}
