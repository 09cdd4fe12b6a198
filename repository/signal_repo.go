package repository

import (
	"time"

	"marketetl/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignalRepository manages the derived daily signal fact.
type SignalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// BatchUpsert writes signal rows keyed by (instrument_id, calendar_id, signal_type).
func (r *SignalRepository) BatchUpsert(rows []models.SignalDaily) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instrument_id"}, {Name: "calendar_id"}, {Name: "signal_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "label", "details", "updated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
}

// FindByCalendarID returns all signal rows for one trading day.
func (r *SignalRepository) FindByCalendarID(calendarID uint) ([]models.SignalDaily, error) {
	var rows []models.SignalDaily
	if err := r.db.Where("calendar_id = ?", calendarID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan purges signal rows whose calendar date is before the
// cutoff and reports how many were removed.
func (r *SignalRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	sub := r.db.Model(&models.CalendarDate{}).Select("id").Where("date < ?", cutoff)
	res := r.db.Where("calendar_id IN (?)", sub).Delete(&models.SignalDaily{})
	return res.RowsAffected, res.Error
}
