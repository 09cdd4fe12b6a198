package repository

import (
	"time"

	"marketetl/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceRepository manages the canonical daily price fact.
type PriceRepository struct {
	db *gorm.DB
}

func NewPriceRepository(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// BatchUpsert writes price facts keyed by (instrument_id, calendar_id).
func (r *PriceRepository) BatchUpsert(rows []models.PriceDaily) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instrument_id"}, {Name: "calendar_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "high", "low", "close", "adj_close", "volume", "source_primary", "updated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
}

// FindByCalendarIDs returns the price facts for the given calendar rows.
func (r *PriceRepository) FindByCalendarIDs(calendarIDs []uint) ([]models.PriceDaily, error) {
	if len(calendarIDs) == 0 {
		return nil, nil
	}
	var rows []models.PriceDaily
	if err := r.db.Where("calendar_id IN ?", calendarIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindHistory returns an instrument's price facts with calendar preloaded,
// from the given date onward, in ascending calendar-date order.
func (r *PriceRepository) FindHistory(instrumentID uint, from time.Time) ([]models.PriceDaily, error) {
	var rows []models.PriceDaily
	err := r.db.Joins("Calendar").
		Where(`price_dailies.instrument_id = ? AND "Calendar".date >= ?`, instrumentID, from).
		Order(`"Calendar".date ASC`).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan purges price facts whose calendar date is before the
// cutoff and reports how many were removed.
func (r *PriceRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	sub := r.db.Model(&models.CalendarDate{}).Select("id").Where("date < ?", cutoff)
	res := r.db.Where("calendar_id IN (?)", sub).Delete(&models.PriceDaily{})
	return res.RowsAffected, res.Error
}
