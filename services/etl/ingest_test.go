package etl

import (
	"errors"
	"testing"
	"time"

	"marketetl/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestFixture(source *fakeBarSource) (*IngestService, *fakeStagingStore) {
	staging := &fakeStagingStore{}
	instruments := &fakeInstrumentStore{
		mappings: []models.InstrumentSourceMap{
			{Source: "VNDIRECT", SourceSymbol: "VNM", InstrumentID: 1},
			{Source: "VNDIRECT", SourceSymbol: "HPG", InstrumentID: 2},
			{Source: "TCBS", SourceSymbol: "VNM", InstrumentID: 1},
		},
	}
	sources := map[Source]RawBarSource{SourceVNDirect: source}
	return NewIngestService(sources, instruments, staging, 7), staging
}

func TestIngestRejectsUnknownSource(t *testing.T) {
	svc, _ := newIngestFixture(&fakeBarSource{})

	_, err := svc.Ingest("BLOOMBERG", nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestIngestRejectsUnregisteredSource(t *testing.T) {
	// TCBS is a valid source name but this service only has VNDIRECT wired
	svc, _ := newIngestFixture(&fakeBarSource{})

	_, err := svc.Ingest("tcbs", nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestIngestStagesBarsPerMapping(t *testing.T) {
	d1 := day(2024, time.March, 14)
	d2 := day(2024, time.March, 15)
	source := &fakeBarSource{bars: map[string][]RawBar{
		"VNM": {
			{Date: d1, Open: fptr(80), Close: fptr(81), Volume: 1000, RawPayload: []byte(`{"c":81}`)},
			{Date: d2, Open: fptr(81), Close: fptr(82), Volume: 1100, RawPayload: []byte(`{"c":82}`)},
		},
		"HPG": {
			{Date: d1, Close: fptr(25), Volume: 500, RawPayload: []byte(`{"c":25}`)},
			{Date: d2, Close: fptr(26), Volume: 600, RawPayload: []byte(`{"c":26}`)},
		},
	}}
	svc, staging := newIngestFixture(source)

	res, err := svc.Ingest("VNDIRECT", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "VNDIRECT", res.Source)
	assert.Equal(t, int64(4), res.Rows)
	assert.Equal(t, int64(2), res.Instruments)
	assert.Len(t, staging.rows, 4)
	for _, row := range staging.rows {
		assert.Equal(t, "VNDIRECT", row.Source)
		assert.True(t, row.Close.Valid)
		assert.NotEmpty(t, row.RawPayload)
	}
}

func TestIngestKeepsMissingFieldsNull(t *testing.T) {
	d := day(2024, time.March, 15)
	source := &fakeBarSource{bars: map[string][]RawBar{
		"VNM": {{Date: d, Close: nil, Volume: 0, RawPayload: []byte(`{}`)}},
	}}
	svc, staging := newIngestFixture(source)

	res, err := svc.Ingest("VNDIRECT", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Rows)
	require.Len(t, staging.rows, 1)
	assert.False(t, staging.rows[0].Open.Valid)
	assert.False(t, staging.rows[0].Close.Valid)
}

func TestIngestDefaultsToLookbackWindow(t *testing.T) {
	source := &fakeBarSource{}
	svc, _ := newIngestFixture(source)

	_, err := svc.Ingest("vndirect", nil, nil)
	require.NoError(t, err)

	expectedTo := time.Now().UTC().Truncate(24 * time.Hour)
	assert.True(t, source.lastTo.Equal(expectedTo))
	assert.True(t, source.lastFrom.Equal(expectedTo.AddDate(0, 0, -7)))
}

func TestIngestHonorsExplicitRange(t *testing.T) {
	source := &fakeBarSource{}
	svc, _ := newIngestFixture(source)

	from := day(2024, time.January, 1)
	to := day(2024, time.January, 31)
	_, err := svc.Ingest("VNDIRECT", &from, &to)
	require.NoError(t, err)

	assert.True(t, source.lastFrom.Equal(from))
	assert.True(t, source.lastTo.Equal(to))
}

func TestIngestPropagatesFetchFailure(t *testing.T) {
	fetchErr := errors.New("provider unavailable")
	svc, staging := newIngestFixture(&fakeBarSource{err: fetchErr})

	_, err := svc.Ingest("VNDIRECT", nil, nil)
	assert.ErrorIs(t, err, fetchErr)
	assert.Empty(t, staging.rows)
}

func TestIngestUpsertsOnRepeatedRuns(t *testing.T) {
	d := day(2024, time.March, 15)
	source := &fakeBarSource{bars: map[string][]RawBar{
		"VNM": {{Date: d, Close: fptr(81), Volume: 1000, RawPayload: []byte(`{"c":81}`)}},
	}}
	svc, staging := newIngestFixture(source)

	_, err := svc.Ingest("VNDIRECT", nil, nil)
	require.NoError(t, err)

	// Provider revises the close; re-ingest replaces rather than duplicates
	source.bars["VNM"][0].Close = fptr(83)
	res, err := svc.Ingest("VNDIRECT", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Rows)
	require.Len(t, staging.rows, 1)
	assert.Equal(t, "83", staging.rows[0].Close.Decimal.String())
}
