package models

import (
	"time"

	"gorm.io/gorm"
)

// Instrument represents a canonical tradable entity
type Instrument struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"uniqueIndex;not null" json:"symbol"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`   // stock, etf, index
	Region    string    `json:"region"` // VN, US, ...
	Currency  string    `json:"currency"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InstrumentSourceMap maps a provider's symbol to a canonical instrument.
// Many mappings may point at the same instrument.
type InstrumentSourceMap struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Source       string     `gorm:"uniqueIndex:idx_source_symbol;not null" json:"source"`
	SourceSymbol string     `gorm:"uniqueIndex:idx_source_symbol;not null" json:"source_symbol"`
	InstrumentID uint       `gorm:"index" json:"instrument_id"`
	Instrument   Instrument `gorm:"foreignKey:InstrumentID" json:"instrument,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CalendarDate is the trading-calendar dimension. Rows are created lazily
// by the normalize stage (get-or-create).
type CalendarDate struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Date         time.Time `gorm:"uniqueIndex;not null" json:"date"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Day          int       `json:"day"`
	Week         int       `json:"week"` // ISO week number
	IsTradingDay bool      `json:"is_trading_day"`
	IsMonthEnd   bool      `json:"is_month_end"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewCalendarDate derives the calendar attributes for a trading date.
func NewCalendarDate(date time.Time) CalendarDate {
	d := date.UTC().Truncate(24 * time.Hour)
	_, week := d.ISOWeek()
	return CalendarDate{
		Date:         d,
		Year:         d.Year(),
		Month:        int(d.Month()),
		Day:          d.Day(),
		Week:         week,
		IsTradingDay: true,
		IsMonthEnd:   d.AddDate(0, 0, 1).Month() != d.Month(),
	}
}

// MigrateMarketModels runs database migrations for market dimension models
func MigrateMarketModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Instrument{},
		&InstrumentSourceMap{},
		&CalendarDate{},
	)
}
