package etl

import (
	"fmt"
	"time"

	"marketetl/models"
)

// NormalizeResult summarizes one normalize invocation.
type NormalizeResult struct {
	Inserted       int64 `json:"inserted"`
	Updated        int64 `json:"updated"`
	Unmapped       int64 `json:"unmapped"`
	StagingDeleted int64 `json:"staging_deleted"`
}

// NormalizeService reconciles staged bars into the canonical price fact.
type NormalizeService struct {
	staging       StagingStore
	instruments   InstrumentStore
	calendars     CalendarStore
	prices        PriceStore
	lookbackDays  int
	retentionDays int
}

func NewNormalizeService(staging StagingStore, instruments InstrumentStore, calendars CalendarStore, prices PriceStore, lookbackDays, retentionDays int) *NormalizeService {
	return &NormalizeService{
		staging:       staging,
		instruments:   instruments,
		calendars:     calendars,
		prices:        prices,
		lookbackDays:  lookbackDays,
		retentionDays: retentionDays,
	}
}

type priceKey struct {
	instrumentID uint
	calendarID   uint
}

// Normalize resolves staged rows over the date range to instruments and
// calendar dates, picks a winner per (instrument, calendar) by source
// priority, upserts the canonical price fact and purges stale staging rows.
// Unmapped staging rows are counted and skipped, never fatal.
func (s *NormalizeService) Normalize(from, to *time.Time) (*NormalizeResult, error) {
	end := today()
	if to != nil {
		end = to.UTC().Truncate(24 * time.Hour)
	}
	start := end.AddDate(0, 0, -s.lookbackDays)
	if from != nil {
		start = from.UTC().Truncate(24 * time.Hour)
	}

	rows, err := s.staging.FindRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load staging rows: %w", err)
	}

	mappings, err := s.instruments.ListMappings()
	if err != nil {
		return nil, fmt.Errorf("failed to load source mappings: %w", err)
	}
	mapped := make(map[string]uint, len(mappings))
	for _, m := range mappings {
		mapped[m.Source+"|"+m.SourceSymbol] = m.InstrumentID
	}

	result := &NormalizeResult{}

	// Fold staging rows in (date, id) order: a later row replaces the
	// current winner when its source priority is >= the winner's, so equal
	// priorities resolve last-write-wins within the pass.
	calendarCache := make(map[time.Time]*models.CalendarDate)
	winners := make(map[priceKey]models.StagingPriceRaw)
	order := make([]priceKey, 0, len(rows))
	for _, row := range rows {
		instrumentID, ok := mapped[row.Source+"|"+row.SourceSymbol]
		if !ok {
			result.Unmapped++
			continue
		}

		date := row.Date.UTC().Truncate(24 * time.Hour)
		cal, ok2 := calendarCache[date]
		if !ok2 {
			cal, err = s.calendars.GetOrCreate(date)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve calendar for %s: %w", date.Format("2006-01-02"), err)
			}
			calendarCache[date] = cal
		}

		key := priceKey{instrumentID: instrumentID, calendarID: cal.ID}
		current, exists := winners[key]
		if !exists {
			winners[key] = row
			order = append(order, key)
			continue
		}
		if Source(row.Source).Priority() >= Source(current.Source).Priority() {
			winners[key] = row
		}
	}

	calendarIDs := make([]uint, 0, len(calendarCache))
	for _, cal := range calendarCache {
		calendarIDs = append(calendarIDs, cal.ID)
	}
	existingRows, err := s.prices.FindByCalendarIDs(calendarIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing prices: %w", err)
	}
	existing := make(map[priceKey]models.PriceDaily, len(existingRows))
	for _, p := range existingRows {
		existing[priceKey{instrumentID: p.InstrumentID, calendarID: p.CalendarID}] = p
	}

	upserts := make([]models.PriceDaily, 0, len(winners))
	for _, key := range order {
		row := winners[key]
		incumbent, found := existing[key]
		if found && Source(row.Source).Priority() < Source(incumbent.SourcePrimary).Priority() {
			continue // incumbent came from a stronger source
		}

		upserts = append(upserts, models.PriceDaily{
			InstrumentID:  key.instrumentID,
			CalendarID:    key.calendarID,
			Open:          row.Open,
			High:          row.High,
			Low:           row.Low,
			Close:         row.Close,
			AdjClose:      row.Close,
			Volume:        row.Volume,
			SourcePrimary: row.Source,
		})
		if found {
			result.Updated++
		} else {
			result.Inserted++
		}
	}

	if err := s.prices.BatchUpsert(upserts); err != nil {
		return nil, fmt.Errorf("price upsert failed: %w", err)
	}

	cutoff := today().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.staging.DeleteOlderThan(cutoff)
	if err != nil {
		return nil, fmt.Errorf("staging purge failed: %w", err)
	}
	result.StagingDeleted = deleted

	return result, nil
}
