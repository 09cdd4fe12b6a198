package scheduler

// Package scheduler wires the daily pipeline onto a cron schedule.
// After market close it runs, in order:
// - Ingest for every supported provider
// - Normalize to reconcile staging into the canonical price fact
// - Indicator recalculation over the trailing window
// - Signal generation plus fact retention purge
//
// The jobs are implemented in jobs.go; every invocation goes through the
// etl.Runner so failures end up in the run audit log instead of crashing
// the scheduler loop.
