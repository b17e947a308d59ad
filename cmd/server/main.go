// backend-go/cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/api"
	"github.com/andresuchdata/demandcast/backend-go/internal/cache"
	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/andresuchdata/demandcast/backend-go/internal/forecast"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/demandcast/backend-go/internal/scheduler"
	"github.com/andresuchdata/demandcast/backend-go/internal/service"
	"github.com/andresuchdata/demandcast/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Wire the forecasting worker
	demandRepo := postgres.NewDemandRepository(db)
	forecastRepo := postgres.NewForecastRepository(db)
	forecaster := forecast.NewForecaster(demandRepo)
	sched := scheduler.New(forecastRepo, demandRepo, forecaster,
		cfg.Engine.QueueCapacity, cfg.Engine.BatchSize)
	sched.Start()

	// Wire recommendation generation
	replenishRepo := postgres.NewReplenishRepository(db)
	recCache, err := cache.NewRecommendationCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Recommendation cache unavailable, running without cache")
		recCache = cache.NewNoopRecommendationCache()
	}

	services := &api.Services{
		ForecastService:       service.NewForecastService(forecastRepo, sched),
		RecommendationService: service.NewRecommendationService(replenishRepo, recCache),
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Let the worker finish its current item before the server exits
	if err := sched.Stop(ctx); err != nil {
		logger.Log.Warn().Err(err).Msg("Forecast worker did not stop in time")
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
