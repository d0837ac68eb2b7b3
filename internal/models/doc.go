// Package models defines the entities passed between the sync stages and the run ledger.
//
// Run-scoped values:
//   - [WatchlistEntry] : one film from the watchlist, keyed by slug, with genres and services
//   - [WatchlistCollection] : slug-keyed entries in discovery order
//   - [RemoteRecord] : the page written to the Notion database, built by [RecordBuilder]
//
// Ledger entities implement [Model] and are stored through a [Repository]:
//   - [SyncRun] : one sync invocation with its counters and final status
//   - [SyncRunItem] : the outcome for one film within a run
package models
