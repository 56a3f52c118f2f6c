// Package repositories implements SQLite persistence for Harmony's domain entities.
//
// [UserRepository], [TrackRepository], [PlaylistRepository], and
// [SyncJobRepository] each handle CRUD for one entity, soft-deleting via
// deleted_at timestamps and excluding deleted rows from queries by default.
//
// Every insert draws a number from a per-table counter through
// [NextSequence], giving entities a stable human-readable ordering (track
// #42, sync job #15) independent of UUIDs and creation timestamps.
//
// [TrackCacheAdapter] and [SyncJobRepository] additionally satisfy the
// tasks package's TrackCache and SyncJournal interfaces, wiring scan caching
// and sync journaling into the engine.
package repositories
