// Package models defines domain entities and persistence interfaces for the Harmony media-library sync backend.
//
// Two kinds of types live here. Transfer types mirror what the external
// music services return: [Playlist] for bare metadata, [PlaylistExport] for a
// playlist with its full track listing, and [Track] for song metadata
// carrying an ISRC for cross-service matching.
//
// Persistent entities are the database-backed records: [User] for accounts
// on this self-hosted instance, [LibraryTrack] for cached library tracks,
// [PersistedPlaylist] for cached playlists, and [SyncJob] for the history of
// sync runs. Each implements [Model] (UUID identity, timestamps, validation,
// soft delete) and is stored through a [Repository] implementation from the
// repositories package.
package models
