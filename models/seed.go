package models

import (
	"errors"

	"gorm.io/gorm"
)

// SeedDefaultInstruments seeds a starter instrument universe with source
// mappings for every provider. Safe to call on every boot; existing symbols
// are left untouched.
func SeedDefaultInstruments(db *gorm.DB) error {
	instruments := []Instrument{
		{Symbol: "VNM", Name: "Vinamilk", Type: "stock", Region: "VN", Currency: "VND", Active: true},
		{Symbol: "VIC", Name: "Vingroup", Type: "stock", Region: "VN", Currency: "VND", Active: true},
		{Symbol: "HPG", Name: "Hoa Phat Group", Type: "stock", Region: "VN", Currency: "VND", Active: true},
		{Symbol: "VCB", Name: "Vietcombank", Type: "stock", Region: "VN", Currency: "VND", Active: true},
		{Symbol: "FPT", Name: "FPT Corporation", Type: "stock", Region: "VN", Currency: "VND", Active: true},
		{Symbol: "GAS", Name: "PetroVietnam Gas", Type: "stock", Region: "VN", Currency: "VND", Active: true},
	}

	sources := []string{"VNDIRECT", "TCBS", "SSI"}

	for _, instrument := range instruments {
		var existing Instrument
		err := db.Where("symbol = ?", instrument.Symbol).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&instrument).Error; err != nil {
			return err
		}

		// Providers all quote Vietnamese stocks by the exchange symbol.
		for _, source := range sources {
			mapping := InstrumentSourceMap{
				Source:       source,
				SourceSymbol: instrument.Symbol,
				InstrumentID: instrument.ID,
			}
			if err := db.Create(&mapping).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
