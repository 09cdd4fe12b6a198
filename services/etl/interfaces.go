package etl

import (
	"time"

	"marketetl/models"
)

// The stages consume narrow repository interfaces so they can be exercised
// against in-memory fakes; the gorm implementations live in repository/.

// InstrumentStore resolves the instrument universe and its source mappings.
type InstrumentStore interface {
	ListActive(limit int) ([]models.Instrument, error)
	ListMappingsBySource(source string) ([]models.InstrumentSourceMap, error)
	ListMappings() ([]models.InstrumentSourceMap, error)
}

// StagingStore persists raw staged bars.
type StagingStore interface {
	BatchUpsert(rows []models.StagingPriceRaw) error
	FindRange(from, to time.Time) ([]models.StagingPriceRaw, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// CalendarStore manages the trading-calendar dimension.
type CalendarStore interface {
	GetOrCreate(date time.Time) (*models.CalendarDate, error)
	FindLatestOnOrBefore(date time.Time) (*models.CalendarDate, error)
}

// PriceStore persists the canonical price fact.
type PriceStore interface {
	BatchUpsert(rows []models.PriceDaily) error
	FindByCalendarIDs(calendarIDs []uint) ([]models.PriceDaily, error)
	FindHistory(instrumentID uint, from time.Time) ([]models.PriceDaily, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// IndicatorStore persists the derived indicator fact.
type IndicatorStore interface {
	BatchUpsert(rows []models.IndicatorDaily) error
	FindByCalendarID(calendarID uint) ([]models.IndicatorDaily, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// SignalStore persists the derived signal fact.
type SignalStore interface {
	BatchUpsert(rows []models.SignalDaily) error
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// RunStore persists the run audit log.
type RunStore interface {
	Start(jobName string) (*models.EtlRun, error)
	Finish(run *models.EtlRun) error
}
