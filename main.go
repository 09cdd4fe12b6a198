package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketetl/config"
	"marketetl/logger"
	"marketetl/models"
	"marketetl/routes"
	"marketetl/scheduler"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("==============================================")
	log.Println("  Market ETL Service - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	logger.Init(cfg.Environment)

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database connection
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	// Run database migrations
	log.Println("Running database migrations...")
	if err := models.MigrateMarketModels(db); err != nil {
		log.Fatalf("Market model migration failed: %v", err)
	}
	if err := models.MigrateFactModels(db); err != nil {
		log.Fatalf("Fact model migration failed: %v", err)
	}
	log.Println("Database migrations completed successfully")

	// Seed the starter instrument universe
	if err := models.SeedDefaultInstruments(db); err != nil {
		log.Printf("Warning: Could not seed instruments: %v", err)
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	// Wire pipeline services and routes
	runner, ingestSvc, normalizeSvc, indicatorSvc, signalSvc := routes.SetupRoutes(router, db, cfg)

	// Start the daily pipeline schedule
	jobScheduler := scheduler.NewScheduler(cfg, runner, ingestSvc, normalizeSvc, indicatorSvc, signalSvc)
	jobScheduler.Start()

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	jobScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
