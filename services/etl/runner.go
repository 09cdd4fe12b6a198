package etl

import (
	"fmt"
	"time"

	"marketetl/logger"
	"marketetl/models"
)

// maxRunMessageLen caps the message stored on a run record.
const maxRunMessageLen = 500

// StageFunc is one stage invocation. It reports how many rows it affected.
type StageFunc func() (int64, error)

// Runner wraps stage invocations with start/finish run tracking. It never
// re-throws: any error (or panic) from the stage is swallowed into a
// terminal ERROR record after logging, so callers always receive a finished
// run object.
type Runner struct {
	runs RunStore
}

func NewRunner(runs RunStore) *Runner {
	return &Runner{runs: runs}
}

// Run executes fn under the given job name and returns the terminal run.
func (r *Runner) Run(jobName string, fn StageFunc) *models.EtlRun {
	run, err := r.runs.Start(jobName)
	if err != nil {
		// The run proceeds with an unsaved record; Finish retries the write.
		logger.Log.Error().Err(err).Str("job", jobName).Msg("failed to persist run start")
	}

	rows, err := execute(fn)

	now := time.Now().UTC()
	run.FinishedAt = &now
	if err != nil {
		logger.Log.Error().Err(err).Str("job", jobName).Msg("etl job failed")
		run.Status = models.RunStatusError
		run.RowsAffected = 0
		run.Message = truncate(err.Error(), maxRunMessageLen)
	} else {
		run.Status = models.RunStatusOK
		run.RowsAffected = rows
		run.Message = "completed"
		logger.Log.Info().Str("job", jobName).Int64("rows", rows).Msg("etl job finished")
	}

	if err := r.runs.Finish(run); err != nil {
		logger.Log.Error().Err(err).Str("job", jobName).Msg("failed to persist run finish")
	}
	return run
}

// execute runs the stage, converting a panic into an error so the runner
// can record it like any other failure.
func execute(fn StageFunc) (rows int64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			rows = 0
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
