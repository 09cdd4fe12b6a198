package repository

import (
	"errors"
	"time"

	"marketetl/models"

	"gorm.io/gorm"
)

// CalendarRepository manages the trading-calendar dimension.
type CalendarRepository struct {
	db *gorm.DB
}

func NewCalendarRepository(db *gorm.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// GetOrCreate returns the calendar row for the given date, creating it with
// derived attributes if it does not exist yet.
func (r *CalendarRepository) GetOrCreate(date time.Time) (*models.CalendarDate, error) {
	cal := models.NewCalendarDate(date)

	var existing models.CalendarDate
	err := r.db.Where("date = ?", cal.Date).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.Create(&cal).Error; err != nil {
		return nil, err
	}
	return &cal, nil
}

// FindLatestOnOrBefore returns the most recent calendar date <= the given
// date, or nil when the calendar has no such row.
func (r *CalendarRepository) FindLatestOnOrBefore(date time.Time) (*models.CalendarDate, error) {
	var cal models.CalendarDate
	err := r.db.Where("date <= ?", date.UTC().Truncate(24*time.Hour)).
		Order("date DESC").
		First(&cal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cal, nil
}
