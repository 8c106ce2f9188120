package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tweetube/config"
	"tweetube/database"
	"tweetube/handlers"
	"tweetube/logger"
	"tweetube/metrics"
	"tweetube/middleware"
	"tweetube/models"
	"tweetube/repositories"
	"tweetube/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Service)
	log := logger.With("main")
	log.Info().Str("config", *configPath).Msg("starting tweetube service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.InitMySQL(&cfg.Database, cfg.Log.Level); err != nil {
		log.Fatal().Err(err).Msg("init mysql failed")
	}
	defer database.Close()

	if err := database.DB.AutoMigrate(
		&models.User{},
		&models.Video{},
		&models.Comment{},
		&models.Tweet{},
		&models.Playlist{},
		&models.Subscription{},
		&models.Engagement{},
		&models.WatchHistory{},
		&models.DeletedChannel{},
	); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	log.Info().Msg("database migration completed")

	if err := database.InitRedis(ctx, &cfg.Redis); err != nil {
		log.Fatal().Err(err).Msg("init redis failed")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	repoContainer := repositories.NewGormRepositories(database.DB, database.RedisClient).BuildContainer()
	serviceContainer := services.NewContainer(repoContainer, cfg, m)
	handlers.SetServices(serviceContainer)

	services.StartCleanupWorkers(ctx)
	log.Info().Msg("cleanup workers started")

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	if m != nil {
		r.Use(m.Middleware(cfg.Metrics.Path))
		r.GET(cfg.Metrics.Path, metrics.Handler(prometheus.DefaultGatherer))
	}
	setupRoutes(r, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func dependencyChecks() []handlers.DependencyCheck {
	checkers := []handlers.DependencyCheck{{
		Name: "mysql",
		Check: func(ctx context.Context) error {
			sqlDB, err := database.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if database.RedisClient != nil {
		checkers = append(checkers, handlers.DependencyCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return database.RedisClient.Ping(ctx).Err()
			},
		})
	}
	return checkers
}

func setupRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.Health.Enabled {
		timeout := time.Duration(cfg.Health.TimeoutMs) * time.Millisecond
		r.GET(cfg.Health.Endpoint, handlers.NewHealthCheck(cfg.Log.Service, timeout, dependencyChecks()...))
	}

	api := r.Group("/api")

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/users/me", handlers.GetProfile)
		protected.DELETE("/channels/me", handlers.DeleteOwnChannel)

		protected.GET("/history", handlers.ListWatchHistory)
		protected.GET("/history/stats", handlers.GetWatchHistoryStats)
		protected.GET("/history/export", handlers.ExportWatchHistory)
		protected.DELETE("/history", handlers.ClearWatchHistory)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireAdmin())
	{
		admin.DELETE("/channels/:id", handlers.AdminDeleteChannel)

		admin.GET("/deleted-channels", handlers.ListDeletedChannels)
		admin.GET("/deleted-channels/stats", handlers.GetDeletionStatistics)
		admin.GET("/deleted-channels/:id", handlers.GetDeletedChannel)
		admin.POST("/deleted-channels/:id/recover", handlers.RecoverChannel)

		admin.POST("/history/cleanup", handlers.CleanupOrphanedHistory)
		admin.POST("/users/:id/recalculate", handlers.RecalculateUserCounters)
	}
}
