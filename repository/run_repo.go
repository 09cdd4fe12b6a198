package repository

import (
	"time"

	"marketetl/models"

	"gorm.io/gorm"
)

// RunRepository persists the append-only ETL run audit log.
type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Start records the beginning of a job invocation.
func (r *RunRepository) Start(jobName string) (*models.EtlRun, error) {
	run := &models.EtlRun{
		JobName:   jobName,
		StartedAt: time.Now().UTC(),
		Status:    models.RunStatusRunning,
	}
	if err := r.db.Create(run).Error; err != nil {
		return run, err
	}
	return run, nil
}

// Finish persists the terminal state of a run.
func (r *RunRepository) Finish(run *models.EtlRun) error {
	return r.db.Save(run).Error
}

// Recent returns the latest runs, newest first.
func (r *RunRepository) Recent(limit int) ([]models.EtlRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.EtlRun
	err := r.db.Order("started_at DESC, id DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
