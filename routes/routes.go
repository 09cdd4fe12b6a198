package routes

import (
	"marketetl/config"
	"marketetl/controllers"
	"marketetl/middleware"
	"marketetl/repository"
	"marketetl/services/datafetcher"
	"marketetl/services/etl"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes wires the pipeline services and registers the trigger surface.
// It returns the scheduler dependencies so main can start the cron jobs on
// the same service instances.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) (*etl.Runner, *etl.IngestService, *etl.NormalizeService, *etl.IndicatorService, *etl.SignalService) {
	// Repositories
	instrumentRepo := repository.NewInstrumentRepository(db)
	stagingRepo := repository.NewStagingRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	indicatorRepo := repository.NewIndicatorRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	runRepo := repository.NewRunRepository(db)

	// Pipeline services
	runner := etl.NewRunner(runRepo)
	ingestSvc := etl.NewIngestService(datafetcher.NewRegistry(cfg), instrumentRepo, stagingRepo, cfg.IngestLookbackDays)
	normalizeSvc := etl.NewNormalizeService(stagingRepo, instrumentRepo, calendarRepo, priceRepo, cfg.IngestLookbackDays, cfg.StagingRetentionDays)
	indicatorSvc := etl.NewIndicatorService(instrumentRepo, priceRepo, indicatorRepo)
	signalSvc := etl.NewSignalService(instrumentRepo, calendarRepo, priceRepo, indicatorRepo, signalRepo)

	etlController := controllers.NewEtlController(runner, ingestSvc, normalizeSvc, indicatorSvc, signalSvc, runRepo, cfg.IndicatorRecalcDays, cfg.IndicatorHistoryDays)

	// API v1 group, triggers require an operator token
	api := router.Group("/api/v1")
	{
		pipeline := api.Group("/etl")
		pipeline.Use(middleware.JWTAuthMiddleware())
		{
			pipeline.POST("/ingest", etlController.TriggerIngest)
			pipeline.POST("/normalize", etlController.TriggerNormalize)
			pipeline.POST("/indicators", etlController.TriggerIndicators)
			pipeline.POST("/signals", etlController.TriggerSignals)
			pipeline.GET("/runs", etlController.GetRuns)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Market ETL service is running",
		})
	})

	return runner, ingestSvc, normalizeSvc, indicatorSvc, signalSvc
}
