package repository

import (
	"time"

	"marketetl/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IndicatorRepository manages the derived daily indicator fact.
type IndicatorRepository struct {
	db *gorm.DB
}

func NewIndicatorRepository(db *gorm.DB) *IndicatorRepository {
	return &IndicatorRepository{db: db}
}

// BatchUpsert writes indicator rows keyed by (instrument_id, calendar_id).
func (r *IndicatorRepository) BatchUpsert(rows []models.IndicatorDaily) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instrument_id"}, {Name: "calendar_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sma20", "sma50", "sma200", "rsi14", "volatility20", "updated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
}

// FindByCalendarID returns all indicator rows for one trading day.
func (r *IndicatorRepository) FindByCalendarID(calendarID uint) ([]models.IndicatorDaily, error) {
	var rows []models.IndicatorDaily
	if err := r.db.Where("calendar_id = ?", calendarID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan purges indicator rows whose calendar date is before the
// cutoff and reports how many were removed.
func (r *IndicatorRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	sub := r.db.Model(&models.CalendarDate{}).Select("id").Where("date < ?", cutoff)
	res := r.db.Where("calendar_id IN (?)", sub).Delete(&models.IndicatorDaily{})
	return res.RowsAffected, res.Error
}
