package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harmonysync/harmony/internal/models"
	"github.com/harmonysync/harmony/internal/shared"
)

// PlaylistRepository implements models.Repository[*models.PersistedPlaylist]
// for playlist caching, plus track membership via the playlist_tracks junction.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new [models.PersistedPlaylist] into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.PersistedPlaylist) error {
	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	playlist.SetID(id)
	playlist.SetSequence(sequence)

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlists (id, sequence, service, service_id, name, description, track_count, public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		playlist.Service(),
		playlist.ServiceID(),
		playlist.Name(),
		playlist.Description(),
		playlist.TrackCount(),
		playlist.Public(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.PersistedPlaylist, error) {
	query := playlistSelect + ` WHERE id = ? AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByServiceID retrieves a playlist by service and service_id
func (r *PlaylistRepository) GetByServiceID(service, serviceID string) (*models.PersistedPlaylist, error) {
	query := playlistSelect + ` WHERE service = ? AND service_id = ? AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRow(query, service, serviceID))
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	playlist.SetUpdatedAt(now)

	query := `
		UPDATE playlists
		SET name = ?, description = ?, track_count = ?, public = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		playlist.Name(),
		playlist.Description(),
		playlist.TrackCount(),
		playlist.Public(),
		now,
		playlist.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist not found or already deleted: %s", playlist.ID())
	}

	return nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.PersistedPlaylist, error) {
	query := playlistSelect + ` WHERE deleted_at IS NULL`

	args := []any{}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.PersistedPlaylist
	for rows.Next() {
		playlist, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// SetTracks replaces the playlist's track membership in one transaction,
// preserving the given ordering.
func (r *PlaylistRepository) SetTracks(playlistID string, trackIDs []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ?", playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist tracks: %w", err)
	}

	for position, trackID := range trackIDs {
		_, err := tx.Exec(
			"INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)",
			playlistID, trackID, position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert playlist track: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist tracks: %w", err)
	}

	return nil
}

// TrackIDs returns the playlist's track IDs in playlist order.
func (r *PlaylistRepository) TrackIDs(playlistID string) ([]string, error) {
	rows, err := r.db.Query(
		"SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position ASC",
		playlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

const playlistSelect = `
	SELECT id, sequence, service, service_id, name, description, track_count, public, created_at, updated_at, deleted_at
	FROM playlists`

type playlistColumns struct {
	id          string
	sequence    int
	service     string
	serviceID   string
	name        string
	description string
	trackCount  int
	public      bool
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   sql.NullTime
}

func (c *playlistColumns) build() *models.PersistedPlaylist {
	dto := models.Playlist{
		ID:          c.serviceID,
		Name:        c.name,
		Description: c.description,
		TrackCount:  c.trackCount,
		Public:      c.public,
	}

	playlist := models.NewPersistedPlaylist(c.sequence, c.service, c.serviceID, dto)
	playlist.SetID(c.id)
	playlist.SetCreatedAt(c.createdAt)
	playlist.SetUpdatedAt(c.updatedAt)
	if c.deletedAt.Valid {
		playlist.SetDeletedAt(&c.deletedAt.Time)
	}

	return playlist
}

// scanOne scans a single [sql.Row] into a [models.PersistedPlaylist]
func (r *PlaylistRepository) scanOne(row *sql.Row) (*models.PersistedPlaylist, error) {
	var c playlistColumns

	err := row.Scan(&c.id, &c.sequence, &c.service, &c.serviceID, &c.name, &c.description, &c.trackCount, &c.public, &c.createdAt, &c.updatedAt, &c.deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("playlist not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	return c.build(), nil
}

// scanRow scans a [sql.Rows] cursor position into a [models.PersistedPlaylist]
func (r *PlaylistRepository) scanRow(rows *sql.Rows) (*models.PersistedPlaylist, error) {
	var c playlistColumns

	err := rows.Scan(&c.id, &c.sequence, &c.service, &c.serviceID, &c.name, &c.description, &c.trackCount, &c.public, &c.createdAt, &c.updatedAt, &c.deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	return c.build(), nil
}
