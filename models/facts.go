package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StagingPriceRaw is a raw, source-tagged daily bar awaiting reconciliation.
// Rows are transient and purged after the staging retention window.
type StagingPriceRaw struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	Source       string              `gorm:"uniqueIndex:idx_staging_key;not null" json:"source"`
	SourceSymbol string              `gorm:"uniqueIndex:idx_staging_key;not null" json:"source_symbol"`
	Date         time.Time           `gorm:"uniqueIndex:idx_staging_key;not null" json:"date"`
	Open         decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"open"`
	High         decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"high"`
	Low          decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"low"`
	Close        decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"close"`
	Volume       int64               `json:"volume"`
	RawPayload   datatypes.JSON      `json:"raw_payload"`
	CreatedAt    time.Time           `json:"created_at"`
}

// PriceDaily is the canonical reconciled price fact, one row per
// instrument per trading day. Only mutated by upsert or retention purge.
type PriceDaily struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	InstrumentID  uint                `gorm:"uniqueIndex:idx_price_instr_cal;not null" json:"instrument_id"`
	CalendarID    uint                `gorm:"uniqueIndex:idx_price_instr_cal;not null" json:"calendar_id"`
	Instrument    Instrument          `gorm:"foreignKey:InstrumentID" json:"instrument,omitempty"`
	Calendar      CalendarDate        `gorm:"foreignKey:CalendarID" json:"calendar,omitempty"`
	Open          decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"open"`
	High          decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"high"`
	Low           decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"low"`
	Close         decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"close"`
	AdjClose      decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"adj_close"`
	Volume        int64               `json:"volume"`
	SourcePrimary string              `json:"source_primary"` // winning source for this row
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// IndicatorDaily holds the rolling indicators derived from PriceDaily.
// Values are nil when the rolling window could not be fully populated.
type IndicatorDaily struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	InstrumentID uint      `gorm:"uniqueIndex:idx_ind_instr_cal;not null" json:"instrument_id"`
	CalendarID   uint      `gorm:"uniqueIndex:idx_ind_instr_cal;not null" json:"calendar_id"`
	Sma20        *float64  `json:"sma_20"`
	Sma50        *float64  `json:"sma_50"`
	Sma200       *float64  `json:"sma_200"`
	Rsi14        *float64  `json:"rsi_14"`
	Volatility20 *float64  `json:"volatility_20"` // annualized
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SignalDaily is a derived trading signal for an instrument on a trading day.
type SignalDaily struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	InstrumentID uint           `gorm:"uniqueIndex:idx_sig_instr_cal_type;not null" json:"instrument_id"`
	CalendarID   uint           `gorm:"uniqueIndex:idx_sig_instr_cal_type;not null" json:"calendar_id"`
	SignalType   string         `gorm:"uniqueIndex:idx_sig_instr_cal_type;not null" json:"signal_type"`
	Score        int            `json:"score"` // 0-100
	Label        string         `json:"label"` // BUY, HOLD, SELL, RISKY, ILLQ
	Details      datatypes.JSON `json:"details"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// MigrateFactModels runs database migrations for pipeline fact models
func MigrateFactModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&StagingPriceRaw{},
		&PriceDaily{},
		&IndicatorDaily{},
		&SignalDaily{},
		&EtlRun{},
	)
}
