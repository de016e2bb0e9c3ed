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
	"time"

	"fleetdispatch/internal/config"
	handlers "fleetdispatch/internal/handlers/dispatch"
	"fleetdispatch/internal/middleware"
	"fleetdispatch/internal/repositories/mongodb"
	"fleetdispatch/internal/services"
	"fleetdispatch/internal/utils"
	"fleetdispatch/pkg/cache"
	"fleetdispatch/pkg/database"
	"fleetdispatch/pkg/events"
	"fleetdispatch/pkg/logger"
	"fleetdispatch/pkg/maps"
	"fleetdispatch/pkg/metrics"
	"fleetdispatch/pkg/push"
	"fleetdispatch/routes"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Caller:  cfg.Log.Caller,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Database
	mongoDB, err := database.NewMongoDB(cfg.Database.Client())
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongoDB.Close()

	if cfg.Database.RunMigrations {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.NewMigrator(mongoDB.Database, appLogger).Up(ctx)
		cancel()
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to run migrations")
		}
	}

	// Redis is optional; without it preferences are read straight from
	// MongoDB and trip locks stay in process.
	var (
		redisCache *cache.RedisCache
		prefCache  mongodb.Cache
	)
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(cfg.Redis.Client())
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisCache.Close()
		prefCache = redisCache
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// Repositories
	driverRepo := mongodb.NewDriverRepository(mongoDB.Database)
	tripRepo := mongodb.NewTripRepository(mongoDB.Database)
	preferenceRepo := mongodb.NewDriverPreferenceRepository(mongoDB.Database, prefCache, cfg.Redis.PreferenceTTL)

	// Matching
	var eta services.ETAEstimator
	if cfg.Maps.RoadETAEnabled() {
		provider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize Google Maps")
		}
		eta = services.NewRoadETA(provider)
	}

	matching := cfg.Matching
	selector := services.NewMatchSelector(
		services.NewCandidateLocator(driverRepo, matching.MaxCandidates),
		preferenceRepo,
		services.NewMatchScorer(utils.LoadLocation(matching.Timezone)),
		eta,
		services.MatchSelectorConfig{
			DefaultLimit:    matching.DefaultLimit,
			DefaultRadiusKM: matching.DefaultRadiusKM,
			DefaultMinScore: matching.DefaultMinScore,
			ScoringWorkers:  matching.ScoringWorkers,
			CitySpeedKMH:    matching.CitySpeedKMH,
			ETATimeout:      cfg.Maps.Timeout,
		},
		appLogger,
		appMetrics,
	)

	var locker services.TripLocker = services.NewMemoryTripLocker(matching.LockTTL)
	if matching.LockBackend == config.LockBackendRedis {
		locker = services.NewRedisTripLocker(redisCache, matching.LockTTL)
	}

	coordinator := services.NewAssignmentCoordinator(
		tripRepo,
		selector,
		locker,
		services.AssignmentConfig{
			Timeout:       matching.AssignTimeout,
			BatchInterval: matching.BatchInterval,
			BatchBurst:    matching.BatchBurst,
		},
		appLogger,
		appMetrics,
	)
	preferenceService := services.NewPreferenceService(preferenceRepo, appLogger)

	// Notifications
	var notifiers services.MultiNotifier
	if cfg.Push.Enabled {
		fcm, err := push.NewFCMProvider(context.Background(), cfg.Push.FCM.Credentials)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize FCM")
		}
		router := push.NewPlatformRouter(fcm)
		if apnsCfg := cfg.Push.APNS; apnsCfg.Enabled() {
			apns, err := push.NewAPNSProvider(apnsCfg.KeyFile, apnsCfg.KeyID, apnsCfg.TeamID, apnsCfg.Topic, apnsCfg.Production)
			if err != nil {
				appLogger.WithError(err).Fatal("Failed to initialize APNS")
			}
			router.Register(push.PlatformIOS, apns)
		}
		notifiers = append(notifiers, services.NewPushNotifier(router))
	}
	if cfg.Events.Enabled {
		publisher := events.NewKafkaPublisher(cfg.Events.Publisher())
		defer publisher.Close()
		notifiers = append(notifiers, services.NewEventNotifier(publisher))
	}
	var notifier services.AssignmentNotifier
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	// Initialize handlers
	matchingHandler := handlers.NewMatchingHandler(
		tripRepo,
		selector,
		coordinator,
		preferenceService,
		notifier,
		matching.NotifyTimeout,
		appLogger,
	)

	// Initialize Gin router
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		appLogger.WithError(err).Fatal("Invalid trusted proxies")
	}

	// Global middleware
	router.Use(middleware.RecoveryMiddleware(appLogger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.MetricsMiddleware(appMetrics))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))

	// API routes
	v1 := router.Group("/api/v1")
	{
		routes.SetupMatchingRoutes(v1, matchingHandler)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, health := http.StatusOK, "healthy"
		checks := gin.H{"mongodb": "ok"}
		if err := mongoDB.Client.Ping(ctx, nil); err != nil {
			status, health = http.StatusServiceUnavailable, "unhealthy"
			checks["mongodb"] = err.Error()
		}
		if redisCache != nil {
			checks["redis"] = "ok"
			if err := redisCache.Ping(ctx); err != nil {
				status, health = http.StatusServiceUnavailable, "unhealthy"
				checks["redis"] = err.Error()
			}
		}

		c.JSON(status, gin.H{
			"status":  health,
			"version": cfg.App.Version,
			"checks":  checks,
		})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
}
