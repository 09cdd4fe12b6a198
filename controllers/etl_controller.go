package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"marketetl/repository"
	"marketetl/services/etl"

	"github.com/gin-gonic/gin"
)

// EtlController exposes the manual trigger surface for the pipeline stages.
type EtlController struct {
	runner     *etl.Runner
	ingest     *etl.IngestService
	normalize  *etl.NormalizeService
	indicators *etl.IndicatorService
	signals    *etl.SignalService
	runs       *repository.RunRepository
	recalcDays int
	histDays   int
}

func NewEtlController(runner *etl.Runner, ingest *etl.IngestService, normalize *etl.NormalizeService, indicators *etl.IndicatorService, signals *etl.SignalService, runs *repository.RunRepository, recalcDays, histDays int) *EtlController {
	return &EtlController{
		runner:     runner,
		ingest:     ingest,
		normalize:  normalize,
		indicators: indicators,
		signals:    signals,
		runs:       runs,
		recalcDays: recalcDays,
		histDays:   histDays,
	}
}

type ingestRequest struct {
	Source string `json:"source" binding:"required"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// TriggerIngest runs the ingest stage for one provider
// POST /api/v1/etl/ingest
func (ctl *EtlController) TriggerIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	from, to, ok := parseRange(c, req.From, req.To)
	if !ok {
		return
	}

	var result *etl.IngestResult
	var stageErr error
	run := ctl.runner.Run("ingest_"+req.Source, func() (int64, error) {
		var err error
		result, err = ctl.ingest.Ingest(req.Source, from, to)
		if err != nil {
			stageErr = err
			return 0, err
		}
		return result.Rows, nil
	})

	if errors.Is(stageErr, etl.ErrUnsupportedSource) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_source", "run": run})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "result": result})
}

type normalizeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TriggerNormalize runs the normalize stage
// POST /api/v1/etl/normalize
func (ctl *EtlController) TriggerNormalize(c *gin.Context) {
	var req normalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	from, to, ok := parseRange(c, req.From, req.To)
	if !ok {
		return
	}

	var result *etl.NormalizeResult
	run := ctl.runner.Run("normalize_prices", func() (int64, error) {
		var err error
		result, err = ctl.normalize.Normalize(from, to)
		if err != nil {
			return 0, err
		}
		return result.Inserted + result.Updated, nil
	})

	c.JSON(http.StatusOK, gin.H{"run": run, "result": result})
}

type indicatorRequest struct {
	DaysToRecalc    int `json:"days_to_recalc"`
	HistoryDays     int `json:"history_days"`
	InstrumentLimit int `json:"instrument_limit"`
}

// TriggerIndicators runs the indicator stage
// POST /api/v1/etl/indicators
func (ctl *EtlController) TriggerIndicators(c *gin.Context) {
	req := indicatorRequest{DaysToRecalc: ctl.recalcDays, HistoryDays: ctl.histDays}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	var result *etl.IndicatorResult
	run := ctl.runner.Run("recalc_indicators", func() (int64, error) {
		var err error
		result, err = ctl.indicators.Recalculate(req.DaysToRecalc, req.HistoryDays, req.InstrumentLimit)
		if err != nil {
			return 0, err
		}
		return result.RowsUpdated, nil
	})

	c.JSON(http.StatusOK, gin.H{"run": run, "result": result})
}

type signalRequest struct {
	TargetDate      string `json:"target_date"`
	InstrumentLimit int    `json:"instrument_limit"`
}

// TriggerSignals runs the signal stage
// POST /api/v1/etl/signals
func (ctl *EtlController) TriggerSignals(c *gin.Context) {
	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	var target *time.Time
	if req.TargetDate != "" {
		t, err := time.Parse("2006-01-02", req.TargetDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date", "message": "target_date must be YYYY-MM-DD"})
			return
		}
		target = &t
	}

	var result *etl.SignalResult
	var stageErr error
	run := ctl.runner.Run("generate_signals", func() (int64, error) {
		var err error
		result, err = ctl.signals.Generate(target, req.InstrumentLimit)
		if err != nil {
			stageErr = err
			return 0, err
		}
		return result.Updated, nil
	})

	if errors.Is(stageErr, etl.ErrNoCalendar) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_calendar", "run": run})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "result": result})
}

// GetRuns lists recent pipeline runs
// GET /api/v1/etl/runs
func (ctl *EtlController) GetRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := ctl.runs.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// parseRange parses optional from/to date strings, replying 400 on bad input.
func parseRange(c *gin.Context, fromStr, toStr string) (*time.Time, *time.Time, bool) {
	var from, to *time.Time
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date", "message": "from must be YYYY-MM-DD"})
			return nil, nil, false
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date", "message": "to must be YYYY-MM-DD"})
			return nil, nil, false
		}
		to = &t
	}
	return from, to, true
}
