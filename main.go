package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/periodic-tables/cache"
	"github.com/yeremiapane/periodic-tables/config"
	"github.com/yeremiapane/periodic-tables/database"
	"github.com/yeremiapane/periodic-tables/events"
	"github.com/yeremiapane/periodic-tables/floor"
	"github.com/yeremiapane/periodic-tables/repository"
	"github.com/yeremiapane/periodic-tables/router"
	"github.com/yeremiapane/periodic-tables/services"
	"github.com/yeremiapane/periodic-tables/utils"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load configuration: %v", err)
	}

	utils.InitLogger(cfg.Log.Level, cfg.Log.Format)
	utils.ConfigureTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := prepareDatabase(db, cfg); err != nil {
		utils.ErrorLogger.Fatal(err)
	}

	responseCache, err := newResponseCache(cfg.Cache)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up response cache: %v", err)
	}

	publisher := newPublisher(cfg.Events)
	defer publisher.Close()

	opts, err := router.NewOptions(cfg, responseCache)
	if err != nil {
		utils.ErrorLogger.Fatal(err)
	}

	monitor := services.NewChangeMonitor(db, floor.Default(), publisher)
	if cfg.Events.PollInterval > 0 {
		monitor.Interval = cfg.Events.PollInterval
	}
	monitor.Cache = responseCache
	monitor.Start()
	defer monitor.Stop()

	noShows := services.NewNoShowMonitor(repository.NewReservationRepository(db), opts.Rules, cfg.Restaurant.NoShowGrace)
	noShows.Start()
	defer noShows.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router.SetupRouter(db, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Infof("Listening on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.InfoLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}
}

func prepareDatabase(db *gorm.DB, cfg *config.Config) error {
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	if cfg.Seed.Enabled {
		if err := database.Seed(db, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	}
	return nil
}

// newResponseCache returns a nil interface when caching is off.
func newResponseCache(cfg config.CacheConfig) (cache.ResponseCache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return cache.NewMemoryCache(cfg.TTL), nil
	case "redis":
		client, err := config.NewRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisCache(client, cfg.Prefix), nil
	default:
		return nil, nil
	}
}

// newPublisher falls back to dropping events when RabbitMQ is not configured
// or unreachable; the floor hub still gets every change.
func newPublisher(cfg config.EventsConfig) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.NopPublisher{}
	}
	publisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.Exchange)
	if err != nil {
		utils.ErrorLogger.Warnf("RabbitMQ unavailable, events disabled: %v", err)
		return events.NopPublisher{}
	}
	return publisher
}
