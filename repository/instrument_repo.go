package repository

import (
	"marketetl/models"

	"gorm.io/gorm"
)

// InstrumentRepository manages instruments and their source-symbol mappings.
type InstrumentRepository struct {
	db *gorm.DB
}

func NewInstrumentRepository(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

// ListActive returns active instruments ordered by symbol. A limit <= 0
// means no limit.
func (r *InstrumentRepository) ListActive(limit int) ([]models.Instrument, error) {
	var instruments []models.Instrument
	q := r.db.Where("active = ?", true).Order("symbol ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&instruments).Error; err != nil {
		return nil, err
	}
	return instruments, nil
}

// ListMappingsBySource returns all source-symbol mappings for one provider.
func (r *InstrumentRepository) ListMappingsBySource(source string) ([]models.InstrumentSourceMap, error) {
	var mappings []models.InstrumentSourceMap
	if err := r.db.Where("source = ?", source).Order("source_symbol ASC").Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

// ListMappings returns every source-symbol mapping.
func (r *InstrumentRepository) ListMappings() ([]models.InstrumentSourceMap, error) {
	var mappings []models.InstrumentSourceMap
	if err := r.db.Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}
