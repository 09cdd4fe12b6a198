package etl

import (
	"errors"
	"strings"
	"testing"

	"marketetl/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerRecordsSuccess(t *testing.T) {
	runs := &fakeRunStore{}
	runner := NewRunner(runs)

	run := runner.Run("normalize_prices", func() (int64, error) {
		return 42, nil
	})

	assert.Equal(t, models.RunStatusOK, run.Status)
	assert.Equal(t, int64(42), run.RowsAffected)
	assert.Equal(t, "completed", run.Message)
	require.NotNil(t, run.FinishedAt)
	require.Len(t, runs.finished, 1)
	assert.Equal(t, "normalize_prices", runs.finished[0].JobName)
}

func TestRunnerSwallowsStageError(t *testing.T) {
	runs := &fakeRunStore{}
	runner := NewRunner(runs)

	run := runner.Run("ingest_vndirect", func() (int64, error) {
		return 17, errors.New("provider unavailable")
	})

	assert.Equal(t, models.RunStatusError, run.Status)
	assert.Equal(t, int64(0), run.RowsAffected) // partial counts are discarded
	assert.Equal(t, "provider unavailable", run.Message)
	require.NotNil(t, run.FinishedAt)
	require.Len(t, runs.finished, 1)
}

func TestRunnerTruncatesLongMessages(t *testing.T) {
	runs := &fakeRunStore{}
	runner := NewRunner(runs)

	long := strings.Repeat("x", 900)
	run := runner.Run("recalc_indicators", func() (int64, error) {
		return 0, errors.New(long)
	})

	assert.Equal(t, models.RunStatusError, run.Status)
	assert.Len(t, run.Message, maxRunMessageLen)
	assert.Equal(t, long[:maxRunMessageLen], run.Message)
}

func TestRunnerRecoversFromPanic(t *testing.T) {
	runs := &fakeRunStore{}
	runner := NewRunner(runs)

	run := runner.Run("generate_signals", func() (int64, error) {
		panic("nil indicator row")
	})

	assert.Equal(t, models.RunStatusError, run.Status)
	assert.Contains(t, run.Message, "panic")
	assert.Contains(t, run.Message, "nil indicator row")
	require.Len(t, runs.finished, 1)
}
