package etl

import (
	"fmt"
	"math"

	"marketetl/models"
)

const (
	rsiPeriod        = 14
	volatilityPeriod = 20
	tradingDaysYear  = 252
)

// IndicatorResult summarizes one indicator recalculation.
type IndicatorResult struct {
	InstrumentsProcessed int64 `json:"instruments_processed"`
	RowsUpdated          int64 `json:"rows_updated"`
}

// IndicatorService computes rolling indicators from the canonical price fact.
type IndicatorService struct {
	instruments InstrumentStore
	prices      PriceStore
	indicators  IndicatorStore
}

func NewIndicatorService(instruments InstrumentStore, prices PriceStore, indicators IndicatorStore) *IndicatorService {
	return &IndicatorService{instruments: instruments, prices: prices, indicators: indicators}
}

// Recalculate recomputes SMA(20/50/200), RSI(14) and annualized 20-day
// volatility for the trailing daysToRecalc days of every active instrument.
// historyDays controls how much leading history is loaded to seed the
// rolling windows; it should comfortably exceed the largest window. A day
// whose close is null produces no indicator row at all.
func (s *IndicatorService) Recalculate(daysToRecalc, historyDays, instrumentLimit int) (*IndicatorResult, error) {
	if historyDays < daysToRecalc {
		historyDays = daysToRecalc
	}

	instruments, err := s.instruments.ListActive(instrumentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}

	from := today().AddDate(0, 0, -historyDays)
	result := &IndicatorResult{}

	for _, instrument := range instruments {
		history, err := s.prices.FindHistory(instrument.ID, from)
		if err != nil {
			return nil, fmt.Errorf("failed to load prices for %s: %w", instrument.Symbol, err)
		}
		if len(history) == 0 {
			continue
		}
		result.InstrumentsProcessed++

		closes := make([]*float64, len(history))
		for i, p := range history {
			if p.Close.Valid {
				v, _ := p.Close.Decimal.Float64()
				closes[i] = &v
			}
		}
		returns := logReturns(closes)

		tail := len(history) - daysToRecalc
		if tail < 0 {
			tail = 0
		}

		rows := make([]models.IndicatorDaily, 0, len(history)-tail)
		for i := tail; i < len(history); i++ {
			if closes[i] == nil {
				continue
			}
			rows = append(rows, models.IndicatorDaily{
				InstrumentID: instrument.ID,
				CalendarID:   history[i].CalendarID,
				Sma20:        smaAt(closes, i, 20),
				Sma50:        smaAt(closes, i, 50),
				Sma200:       smaAt(closes, i, 200),
				Rsi14:        rsiAt(closes, i),
				Volatility20: volatilityAt(returns, i),
			})
		}

		if err := s.indicators.BatchUpsert(rows); err != nil {
			return nil, fmt.Errorf("indicator upsert failed for %s: %w", instrument.Symbol, err)
		}
		result.RowsUpdated += int64(len(rows))
	}

	return result, nil
}

// logReturns computes per-day log returns ln(close_t / close_{t-1}).
// A return exists only when both closes are present and the prior close is
// positive; everything else stays nil so gaps propagate into the windows.
func logReturns(closes []*float64) []*float64 {
	returns := make([]*float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i] == nil || closes[i-1] == nil || *closes[i-1] <= 0 {
			continue
		}
		r := math.Log(*closes[i] / *closes[i-1])
		returns[i] = &r
	}
	return returns
}

// smaAt returns the mean of the window closes ending at index i, or nil
// unless every value in the window is present. No partial-window fallback.
func smaAt(closes []*float64, i, window int) *float64 {
	if i+1 < window {
		return nil
	}
	sum := 0.0
	for j := i - window + 1; j <= i; j++ {
		if closes[j] == nil {
			return nil
		}
		sum += *closes[j]
	}
	mean := sum / float64(window)
	return &mean
}

// rsiAt returns the Wilder-style RSI over the trailing 14 one-day deltas
// ending at index i. It is nil when fewer than 14 valid deltas exist or the
// series is flat (both aggregate gain and loss zero); a zero-loss series
// with positive gain saturates at 100.
func rsiAt(closes []*float64, i int) *float64 {
	if i < rsiPeriod {
		return nil
	}
	gains, losses := 0.0, 0.0
	for j := i - rsiPeriod + 1; j <= i; j++ {
		if closes[j] == nil || closes[j-1] == nil {
			return nil
		}
		delta := *closes[j] - *closes[j-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	if gains == 0 && losses == 0 {
		return nil // flat series carries no momentum signal
	}
	if losses == 0 {
		rsi := 100.0
		return &rsi
	}
	avgGain := gains / rsiPeriod
	avgLoss := losses / rsiPeriod
	rsi := 100.0 - 100.0/(1.0+avgGain/avgLoss)
	return &rsi
}

// volatilityAt returns the annualized sample standard deviation of the
// trailing 20 daily log returns ending at index i, or nil when fewer than
// 20 valid returns are available.
func volatilityAt(returns []*float64, i int) *float64 {
	if i+1 < volatilityPeriod+1 {
		// returns[0] is always nil, so a full window needs 21 closes
		return nil
	}
	sum := 0.0
	for j := i - volatilityPeriod + 1; j <= i; j++ {
		if returns[j] == nil {
			return nil
		}
		sum += *returns[j]
	}
	mean := sum / volatilityPeriod

	variance := 0.0
	for j := i - volatilityPeriod + 1; j <= i; j++ {
		d := *returns[j] - mean
		variance += d * d
	}
	variance /= volatilityPeriod - 1

	vol := math.Sqrt(variance) * math.Sqrt(tradingDaysYear)
	return &vol
}
