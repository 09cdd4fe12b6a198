package scheduler

import (
	"time"

	"marketetl/config"
	"marketetl/logger"
	"marketetl/services/etl"

	"github.com/go-co-op/gocron"
)

// Scheduler manages the cron-triggered pipeline jobs.
type Scheduler struct {
	cron       *gocron.Scheduler
	cfg        *config.Config
	runner     *etl.Runner
	ingest     *etl.IngestService
	normalize  *etl.NormalizeService
	indicators *etl.IndicatorService
	signals    *etl.SignalService
}

// NewScheduler creates a scheduler over the pipeline services.
func NewScheduler(cfg *config.Config, runner *etl.Runner, ingest *etl.IngestService, normalize *etl.NormalizeService, indicators *etl.IndicatorService, signals *etl.SignalService) *Scheduler {
	return &Scheduler{
		cron:       gocron.NewScheduler(time.UTC),
		cfg:        cfg,
		runner:     runner,
		ingest:     ingest,
		normalize:  normalize,
		indicators: indicators,
		signals:    signals,
	}
}

// Start registers the daily pipeline jobs and starts the cron loop.
// Stage order is enforced by schedule spacing, not by coupling: each stage
// is idempotent, so a missed or overlapping run converges on retry.
func (s *Scheduler) Start() {
	logger.Log.Info().Msg("starting scheduler")

	// Ingest every provider after market close
	s.cron.Every(1).Day().At("10:00").Do(func() {
		s.ingestAll()
	})

	// Reconcile staging into canonical prices
	s.cron.Every(1).Day().At("10:30").Do(func() {
		s.runNormalize()
	})

	// Recompute rolling indicators
	s.cron.Every(1).Day().At("11:00").Do(func() {
		s.runIndicators()
	})

	// Derive signals and purge aged facts
	s.cron.Every(1).Day().At("11:30").Do(func() {
		s.runSignals()
	})

	s.cron.StartAsync()
	logger.Log.Info().Msg("scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	logger.Log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) ingestAll() {
	for _, source := range etl.Sources() {
		source := source
		s.runner.Run("ingest_"+string(source), func() (int64, error) {
			res, err := s.ingest.Ingest(string(source), nil, nil)
			if err != nil {
				return 0, err
			}
			return res.Rows, nil
		})
	}
}

func (s *Scheduler) runNormalize() {
	s.runner.Run("normalize_prices", func() (int64, error) {
		res, err := s.normalize.Normalize(nil, nil)
		if err != nil {
			return 0, err
		}
		return res.Inserted + res.Updated, nil
	})
}

func (s *Scheduler) runIndicators() {
	s.runner.Run("recalc_indicators", func() (int64, error) {
		res, err := s.indicators.Recalculate(s.cfg.IndicatorRecalcDays, s.cfg.IndicatorHistoryDays, 0)
		if err != nil {
			return 0, err
		}
		return res.RowsUpdated, nil
	})
}

func (s *Scheduler) runSignals() {
	s.runner.Run("generate_signals", func() (int64, error) {
		res, err := s.signals.Generate(nil, 0)
		if err != nil {
			return 0, err
		}
		return res.Updated, nil
	})
}
