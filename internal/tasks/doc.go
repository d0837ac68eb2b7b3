// Package tasks runs the watchlist sync with real-time progress reporting.
//
// # Sync Run
//
// [SyncEngine.Run] executes four sequential steps:
//
//  1. Listing : read every watchlist page through a [services.ListingSource]
//     - a listing failure ends the run with nothing written
//  2. Enrichment : look up genres and streaming services for each film
//     - lookups are paced by a [Pacer] (golang.org/x/time/rate)
//     - a failed lookup leaves the film with empty tags
//  3. Reconciliation : read the titles already in the database and drop matching films with [Reconcile]
//     - a failed read falls back to treating every film as new
//  4. Write : build a record per remaining film and create it
//     - a failed write is counted and the run continues
//
// With [RunOptions.Strict] set, any listing, database read or write failure is
// returned as [shared.ErrPartialFailure].
//
// # Progress Reporting
//
// Updates are sent as [ProgressUpdate] values on an optional channel. Sends never block;
// updates are dropped when the channel is full.
//
// # Run History
//
// An optional [RunRecorder] (repositories.SyncRunRepository) stores one row per run and
// one row per written, planned or failed film. Ledger errors are logged and never stop a sync.
package tasks
