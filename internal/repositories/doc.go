// Package repositories implements SQLite persistence for the run ledger.
//
// [SyncRunRepository] implements models.Repository for [models.SyncRun] and stores the
// per-film [models.SyncRunItem] rows of each run. Items are deleted with their run.
//
// The ledger is written during a sync and read by "history"; it is never consulted
// when deciding which films to write.
//
// Sequence numbers provide stable, human-readable ordering (run #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
