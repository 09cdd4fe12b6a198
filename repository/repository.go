// Package repository provides GORM-backed persistence for the pipeline
// entities. Every repository exposes the same four capability shapes the
// stages depend on: find-by-key, find-by-range, batch-upsert and
// delete-older-than. Upserts are keyed by the natural business key of each
// table so repeated runs converge instead of duplicating rows.
package repository

// upsertBatchSize bounds statement size and memory for all batch writes.
const upsertBatchSize = 500
