package repository

import (
	"time"

	"marketetl/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StagingRepository manages raw staged price bars.
type StagingRepository struct {
	db *gorm.DB
}

func NewStagingRepository(db *gorm.DB) *StagingRepository {
	return &StagingRepository{db: db}
}

// BatchUpsert writes staging rows keyed by (source, source_symbol, date),
// overwriting any previously staged bar for the same key. Writes go out in
// chunks to bound statement size.
func (r *StagingRepository) BatchUpsert(rows []models.StagingPriceRaw) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source"}, {Name: "source_symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "high", "low", "close", "volume", "raw_payload",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
}

// FindRange returns staged rows within [from, to] in (date, id) order so a
// normalize pass processes rows in ingestion order.
func (r *StagingRepository) FindRange(from, to time.Time) ([]models.StagingPriceRaw, error) {
	var rows []models.StagingPriceRaw
	err := r.db.Where("date >= ? AND date <= ?", from, to).
		Order("date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan purges staged rows with a bar date before the cutoff and
// reports how many were removed.
func (r *StagingRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("date < ?", cutoff).Delete(&models.StagingPriceRaw{})
	return res.RowsAffected, res.Error
}
