package etl

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketetl/models"
)

// SignalTypeGlobalScore is the composite signal emitted by this stage.
const SignalTypeGlobalScore = "GLOBAL_SCORE"

// Signal labels.
const (
	LabelBuy     = "BUY"
	LabelHold    = "HOLD"
	LabelSell    = "SELL"
	LabelRisky   = "RISKY"
	LabelIlliqid = "ILLQ" // no usable price or indicator data
)

// factRetentionYears is the fixed retention for canonical and derived facts.
const factRetentionYears = 10

// ErrNoCalendar is returned when no trading-calendar date exists at or
// before the requested target date; there is no date to anchor the batch.
var ErrNoCalendar = errors.New("no trading calendar date at or before target")

// SignalResult summarizes one signal generation run.
type SignalResult struct {
	CalendarID       uint      `json:"calendar_id"`
	CalendarDate     time.Time `json:"calendar_date"`
	Processed        int64     `json:"processed"`
	Updated          int64     `json:"updated"`
	PurgedPrices     int64     `json:"purged_prices"`
	PurgedIndicators int64     `json:"purged_indicators"`
	PurgedSignals    int64     `json:"purged_signals"`
}

// SignalService derives composite trading signals from price and indicators.
type SignalService struct {
	instruments InstrumentStore
	calendars   CalendarStore
	prices      PriceStore
	indicators  IndicatorStore
	signals     SignalStore
}

func NewSignalService(instruments InstrumentStore, calendars CalendarStore, prices PriceStore, indicators IndicatorStore, signals SignalStore) *SignalService {
	return &SignalService{
		instruments: instruments,
		calendars:   calendars,
		prices:      prices,
		indicators:  indicators,
		signals:     signals,
	}
}

// Generate scores every active instrument at the nearest trading date <=
// targetDate (nil means today), upserts one GLOBAL_SCORE row per instrument
// and purges fact rows older than the fixed retention cutoff. Instruments
// without a usable price or indicator row get a degenerate ILLQ signal.
func (s *SignalService) Generate(targetDate *time.Time, instrumentLimit int) (*SignalResult, error) {
	target := today()
	if targetDate != nil {
		target = targetDate.UTC().Truncate(24 * time.Hour)
	}

	cal, err := s.calendars.FindLatestOnOrBefore(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve calendar: %w", err)
	}
	if cal == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCalendar, target.Format("2006-01-02"))
	}

	instruments, err := s.instruments.ListActive(instrumentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}

	priceRows, err := s.prices.FindByCalendarIDs([]uint{cal.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}
	pricesByInstrument := make(map[uint]models.PriceDaily, len(priceRows))
	for _, p := range priceRows {
		pricesByInstrument[p.InstrumentID] = p
	}

	indicatorRows, err := s.indicators.FindByCalendarID(cal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load indicators: %w", err)
	}
	indicatorsByInstrument := make(map[uint]models.IndicatorDaily, len(indicatorRows))
	for _, ind := range indicatorRows {
		indicatorsByInstrument[ind.InstrumentID] = ind
	}

	result := &SignalResult{CalendarID: cal.ID, CalendarDate: cal.Date}
	rows := make([]models.SignalDaily, 0, len(instruments))

	for _, instrument := range instruments {
		result.Processed++

		price, hasPrice := pricesByInstrument[instrument.ID]
		indicator, hasIndicator := indicatorsByInstrument[instrument.ID]

		var score int
		var label string
		var details map[string]interface{}

		if !hasPrice || !hasIndicator || !price.Close.Valid {
			score, label = 0, LabelIlliqid
			details = map[string]interface{}{"reason": "missing_price_or_indicator"}
		} else {
			close, _ := price.Close.Decimal.Float64()
			score, label, details = compositeScore(close, indicator.Sma50, indicator.Sma200, indicator.Rsi14, indicator.Volatility20)
		}

		payload, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("failed to encode signal details: %w", err)
		}

		rows = append(rows, models.SignalDaily{
			InstrumentID: instrument.ID,
			CalendarID:   cal.ID,
			SignalType:   SignalTypeGlobalScore,
			Score:        score,
			Label:        label,
			Details:      payload,
		})
	}

	if err := s.signals.BatchUpsert(rows); err != nil {
		return nil, fmt.Errorf("signal upsert failed: %w", err)
	}
	result.Updated = int64(len(rows))

	cutoff := today().AddDate(-factRetentionYears, 0, 0)
	if result.PurgedPrices, err = s.prices.DeleteOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("price purge failed: %w", err)
	}
	if result.PurgedIndicators, err = s.indicators.DeleteOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("indicator purge failed: %w", err)
	}
	if result.PurgedSignals, err = s.signals.DeleteOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("signal purge failed: %w", err)
	}

	return result, nil
}

// compositeScore combines price ratios and indicators into a 0-100 score
// and categorical label. Each adjustment is independent and skipped when
// its input is missing; the details payload records everything consulted.
func compositeScore(close float64, sma50, sma200, rsi14, vol20 *float64) (int, string, map[string]interface{}) {
	score := 50
	details := map[string]interface{}{"close": close}

	if sma200 != nil && *sma200 > 0 {
		ratio := close / *sma200
		details["sma_200"] = *sma200
		details["ratio_sma_200"] = ratio
		switch {
		case ratio > 1.05:
			score += 20
		case ratio > 1.0:
			score += 10
		case ratio < 0.95:
			score -= 20
		case ratio < 1.0:
			score -= 10
		}
	}

	if sma50 != nil && *sma50 > 0 {
		ratio := close / *sma50
		details["sma_50"] = *sma50
		details["ratio_sma_50"] = ratio
		switch {
		case ratio > 1.05:
			score += 10
		case ratio < 0.95:
			score -= 10
		}
	}

	if rsi14 != nil {
		details["rsi_14"] = *rsi14
		switch {
		case *rsi14 > 70:
			score += 5
		case *rsi14 > 60:
			score += 10
		case *rsi14 < 30:
			score -= 10
		case *rsi14 < 40:
			score -= 5
		}
	}

	if vol20 != nil {
		details["volatility_20"] = *vol20
		switch {
		case *vol20 > 0.8:
			score -= 25
		case *vol20 > 0.5:
			score -= 15
		case *vol20 < 0.2:
			score += 5
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	label := LabelSell
	switch {
	case vol20 != nil && *vol20 > 0.8:
		label = LabelRisky // high volatility overrides the score
	case score >= 70:
		label = LabelBuy
	case score >= 40:
		label = LabelHold
	}

	details["score"] = score
	return score, label, details
}
