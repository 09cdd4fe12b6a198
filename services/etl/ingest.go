package etl

import (
	"fmt"
	"time"

	"marketetl/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// flushThreshold is how many staged rows accumulate before a write goes out.
const flushThreshold = 500

// IngestResult summarizes one ingest invocation.
type IngestResult struct {
	Source      string `json:"source"`
	Rows        int64  `json:"rows"`
	Instruments int64  `json:"instruments"`
}

// IngestService pulls daily bars from one provider and stages them.
type IngestService struct {
	sources      map[Source]RawBarSource
	instruments  InstrumentStore
	staging      StagingStore
	lookbackDays int
}

func NewIngestService(sources map[Source]RawBarSource, instruments InstrumentStore, staging StagingStore, lookbackDays int) *IngestService {
	return &IngestService{
		sources:      sources,
		instruments:  instruments,
		staging:      staging,
		lookbackDays: lookbackDays,
	}
}

// Ingest fetches bars for every symbol mapped to the given provider and
// upserts them into staging keyed by (source, source_symbol, date). A nil
// from/to defaults to the trailing lookback window ending today. An unknown
// source name fails immediately; provider fetch failures propagate.
func (s *IngestService) Ingest(sourceName string, from, to *time.Time) (*IngestResult, error) {
	source, err := ParseSource(sourceName)
	if err != nil {
		return nil, err
	}

	fetcher, ok := s.sources[source]
	if !ok {
		return nil, fmt.Errorf("%w: no fetcher registered for %s", ErrUnsupportedSource, source)
	}

	end := today()
	if to != nil {
		end = to.UTC().Truncate(24 * time.Hour)
	}
	start := end.AddDate(0, 0, -s.lookbackDays)
	if from != nil {
		start = from.UTC().Truncate(24 * time.Hour)
	}

	mappings, err := s.instruments.ListMappingsBySource(string(source))
	if err != nil {
		return nil, fmt.Errorf("failed to load source mappings: %w", err)
	}

	result := &IngestResult{Source: string(source)}
	buffer := make([]models.StagingPriceRaw, 0, flushThreshold)

	for _, mapping := range mappings {
		bars, err := fetcher.FetchDailyBars(mapping.SourceSymbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetch failed for %s:%s: %w", source, mapping.SourceSymbol, err)
		}
		if len(bars) == 0 {
			continue
		}
		result.Instruments++

		for _, bar := range bars {
			buffer = append(buffer, stagingRowFromBar(source, mapping.SourceSymbol, bar))
			result.Rows++
			if len(buffer) >= flushThreshold {
				if err := s.staging.BatchUpsert(buffer); err != nil {
					return nil, fmt.Errorf("staging upsert failed: %w", err)
				}
				buffer = buffer[:0]
			}
		}
	}

	if err := s.staging.BatchUpsert(buffer); err != nil {
		return nil, fmt.Errorf("staging upsert failed: %w", err)
	}

	return result, nil
}

func stagingRowFromBar(source Source, symbol string, bar RawBar) models.StagingPriceRaw {
	return models.StagingPriceRaw{
		Source:       string(source),
		SourceSymbol: symbol,
		Date:         bar.Date.UTC().Truncate(24 * time.Hour),
		Open:         nullDecimal(bar.Open),
		High:         nullDecimal(bar.High),
		Low:          nullDecimal(bar.Low),
		Close:        nullDecimal(bar.Close),
		Volume:       bar.Volume,
		RawPayload:   datatypes.JSON(bar.RawPayload),
	}
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*v), Valid: true}
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
