package models

import "time"

// Run statuses. Every run reaches exactly one terminal status (OK or ERROR).
const (
	RunStatusRunning = "RUNNING"
	RunStatusOK      = "OK"
	RunStatusError   = "ERROR"
)

// EtlRun is an append-only audit row for one pipeline job invocation.
type EtlRun struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	JobName      string     `gorm:"index;not null" json:"job_name"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	Status       string     `json:"status"`
	RowsAffected int64      `json:"rows_affected"`
	Message      string     `gorm:"size:500" json:"message"`
}
