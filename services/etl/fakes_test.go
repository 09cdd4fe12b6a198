package etl

import (
	"fmt"
	"sort"
	"time"

	"marketetl/models"
)

// In-memory stand-ins for the repository interfaces, shared by the stage
// tests. Upsert semantics mirror the natural-key behavior of the real
// gorm repositories.

type fakeInstrumentStore struct {
	instruments []models.Instrument
	mappings    []models.InstrumentSourceMap
}

func (f *fakeInstrumentStore) ListActive(limit int) ([]models.Instrument, error) {
	var out []models.Instrument
	for _, in := range f.instruments {
		if !in.Active {
			continue
		}
		out = append(out, in)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeInstrumentStore) ListMappingsBySource(source string) ([]models.InstrumentSourceMap, error) {
	var out []models.InstrumentSourceMap
	for _, m := range f.mappings {
		if m.Source == source {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeInstrumentStore) ListMappings() ([]models.InstrumentSourceMap, error) {
	return f.mappings, nil
}

type fakeStagingStore struct {
	rows   []models.StagingPriceRaw
	nextID uint
}

func stagingKey(r models.StagingPriceRaw) string {
	return fmt.Sprintf("%s|%s|%s", r.Source, r.SourceSymbol, r.Date.Format("2006-01-02"))
}

func (f *fakeStagingStore) BatchUpsert(rows []models.StagingPriceRaw) error {
	for _, row := range rows {
		replaced := false
		for i, existing := range f.rows {
			if stagingKey(existing) == stagingKey(row) {
				row.ID = existing.ID
				f.rows[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			f.nextID++
			row.ID = f.nextID
			f.rows = append(f.rows, row)
		}
	}
	return nil
}

func (f *fakeStagingStore) FindRange(from, to time.Time) ([]models.StagingPriceRaw, error) {
	var out []models.StagingPriceRaw
	for _, r := range f.rows {
		if !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStagingStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var kept []models.StagingPriceRaw
	var deleted int64
	for _, r := range f.rows {
		if r.Date.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

type fakeCalendarStore struct {
	byDate map[time.Time]*models.CalendarDate
	nextID uint
}

func newFakeCalendarStore() *fakeCalendarStore {
	return &fakeCalendarStore{byDate: make(map[time.Time]*models.CalendarDate)}
}

func (f *fakeCalendarStore) GetOrCreate(date time.Time) (*models.CalendarDate, error) {
	d := date.UTC().Truncate(24 * time.Hour)
	if cal, ok := f.byDate[d]; ok {
		return cal, nil
	}
	cal := models.NewCalendarDate(d)
	f.nextID++
	cal.ID = f.nextID
	f.byDate[d] = &cal
	return &cal, nil
}

func (f *fakeCalendarStore) FindLatestOnOrBefore(date time.Time) (*models.CalendarDate, error) {
	d := date.UTC().Truncate(24 * time.Hour)
	var best *models.CalendarDate
	for _, cal := range f.byDate {
		if cal.Date.After(d) {
			continue
		}
		if best == nil || cal.Date.After(best.Date) {
			best = cal
		}
	}
	return best, nil
}

func (f *fakeCalendarStore) dateOf(calendarID uint) (time.Time, bool) {
	for _, cal := range f.byDate {
		if cal.ID == calendarID {
			return cal.Date, true
		}
	}
	return time.Time{}, false
}

type fakePriceStore struct {
	calendars *fakeCalendarStore
	rows      map[priceKey]models.PriceDaily
}

func newFakePriceStore(calendars *fakeCalendarStore) *fakePriceStore {
	return &fakePriceStore{calendars: calendars, rows: make(map[priceKey]models.PriceDaily)}
}

func (f *fakePriceStore) BatchUpsert(rows []models.PriceDaily) error {
	for _, row := range rows {
		f.rows[priceKey{instrumentID: row.InstrumentID, calendarID: row.CalendarID}] = row
	}
	return nil
}

func (f *fakePriceStore) FindByCalendarIDs(calendarIDs []uint) ([]models.PriceDaily, error) {
	wanted := make(map[uint]bool, len(calendarIDs))
	for _, id := range calendarIDs {
		wanted[id] = true
	}
	var out []models.PriceDaily
	for _, row := range f.rows {
		if wanted[row.CalendarID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakePriceStore) FindHistory(instrumentID uint, from time.Time) ([]models.PriceDaily, error) {
	var out []models.PriceDaily
	for _, row := range f.rows {
		if row.InstrumentID != instrumentID {
			continue
		}
		date, ok := f.calendars.dateOf(row.CalendarID)
		if !ok || date.Before(from) {
			continue
		}
		row.Calendar = models.CalendarDate{ID: row.CalendarID, Date: date}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Calendar.Date.Before(out[j].Calendar.Date) })
	return out, nil
}

func (f *fakePriceStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var deleted int64
	for key, row := range f.rows {
		if date, ok := f.calendars.dateOf(row.CalendarID); ok && date.Before(cutoff) {
			delete(f.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

type indicatorKey struct {
	instrumentID uint
	calendarID   uint
}

type fakeIndicatorStore struct {
	calendars *fakeCalendarStore
	rows      map[indicatorKey]models.IndicatorDaily
}

func newFakeIndicatorStore(calendars *fakeCalendarStore) *fakeIndicatorStore {
	return &fakeIndicatorStore{calendars: calendars, rows: make(map[indicatorKey]models.IndicatorDaily)}
}

func (f *fakeIndicatorStore) BatchUpsert(rows []models.IndicatorDaily) error {
	for _, row := range rows {
		f.rows[indicatorKey{instrumentID: row.InstrumentID, calendarID: row.CalendarID}] = row
	}
	return nil
}

func (f *fakeIndicatorStore) FindByCalendarID(calendarID uint) ([]models.IndicatorDaily, error) {
	var out []models.IndicatorDaily
	for _, row := range f.rows {
		if row.CalendarID == calendarID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeIndicatorStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var deleted int64
	for key, row := range f.rows {
		if date, ok := f.calendars.dateOf(row.CalendarID); ok && date.Before(cutoff) {
			delete(f.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

type signalKey struct {
	instrumentID uint
	calendarID   uint
	signalType   string
}

type fakeSignalStore struct {
	calendars *fakeCalendarStore
	rows      map[signalKey]models.SignalDaily
}

func newFakeSignalStore(calendars *fakeCalendarStore) *fakeSignalStore {
	return &fakeSignalStore{calendars: calendars, rows: make(map[signalKey]models.SignalDaily)}
}

func (f *fakeSignalStore) BatchUpsert(rows []models.SignalDaily) error {
	for _, row := range rows {
		f.rows[signalKey{instrumentID: row.InstrumentID, calendarID: row.CalendarID, signalType: row.SignalType}] = row
	}
	return nil
}

func (f *fakeSignalStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var deleted int64
	for key, row := range f.rows {
		if date, ok := f.calendars.dateOf(row.CalendarID); ok && date.Before(cutoff) {
			delete(f.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

type fakeRunStore struct {
	started  []*models.EtlRun
	finished []*models.EtlRun
	nextID   uint
}

func (f *fakeRunStore) Start(jobName string) (*models.EtlRun, error) {
	f.nextID++
	run := &models.EtlRun{
		ID:        f.nextID,
		JobName:   jobName,
		StartedAt: time.Now().UTC(),
		Status:    models.RunStatusRunning,
	}
	f.started = append(f.started, run)
	return run, nil
}

func (f *fakeRunStore) Finish(run *models.EtlRun) error {
	f.finished = append(f.finished, run)
	return nil
}

// fakeBarSource replays canned bars and records the requested ranges.
type fakeBarSource struct {
	bars map[string][]RawBar
	err  error

	lastFrom time.Time
	lastTo   time.Time
}

func (f *fakeBarSource) FetchDailyBars(symbol string, from, to time.Time) ([]RawBar, error) {
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[symbol], nil
}

func fptr(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
