// Package tasks orchestrates playlist operations between music services with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines three operations:
//
//  1. [SyncEngine.Run] : Full source → destination transfer
//     - Fetches the source playlist (by ID, falling back to name lookup)
//     - Searches each track on the destination (ISRC or fuzzy match)
//     - Creates the destination playlist with matched tracks
//     - Queues downloads for tracks missing from the destination library
//
//  2. [SyncEngine.Diff] : Compare playlists across services
//     - Exports both source and destination playlists
//     - Matches tracks via ISRC (preferred) or normalized title/artist
//     - Reports matched count, missing tracks, and extra tracks
//
//  3. [SyncEngine.Scan] : Walk the media server library
//     - Discovers music sections and reads every track
//     - Caches tracks locally for offline matching
//
// [PlaylistEngine.BulkExport] additionally exports many playlists concurrently
// through a bounded worker pool with rate limiting and a JSON manifest.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Sync History
//
// The optional [SyncJournal] interface records each Run as a sync job with its
// final counts or failure reason. Journal errors are ignored so persistence
// problems never abort a transfer.
//
// # Implementation
//
// [PlaylistEngine] implements [SyncEngine] with dependencies on:
//   - [services.Service] : source and destination API clients
//   - [Downloader] : peer-to-peer download queue for missing tracks
//   - [LibraryScanner] : media server section and track reader
//   - [TrackCache] : optional persistence layer (repositories.TrackCacheAdapter)
//   - [SyncJournal] : optional sync history (repositories.SyncJobRepository)
package tasks
