package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harmonysync/harmony/internal/models"
	"github.com/harmonysync/harmony/internal/shared"
)

// TrackRepository implements models.Repository[*models.LibraryTrack] for track caching.
//
// Handles automatic track caching with soft delete support and service-specific lookups.
// Tracks are cached on every library scan or playlist fetch to enable
// cross-service matching via ISRC.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.LibraryTrack] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.LibraryTrack) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	track.SetID(id)
	track.SetSequence(sequence)

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (id, sequence, service, service_id, title, artist, album, duration, isrc, file_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		track.Service(),
		track.ServiceID(),
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
		track.ISRC(),
		track.FilePath(),
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.LibraryTrack, error) {
	query := trackSelect + ` WHERE id = ? AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByServiceID retrieves a track by service and service_id
func (r *TrackRepository) GetByServiceID(service, serviceID string) (*models.LibraryTrack, error) {
	query := trackSelect + ` WHERE service = ? AND service_id = ? AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRow(query, service, serviceID))
}

// GetByISRC retrieves a track by ISRC code across any service
func (r *TrackRepository) GetByISRC(isrc string) (*models.LibraryTrack, error) {
	query := trackSelect + ` WHERE isrc = ? AND deleted_at IS NULL LIMIT 1`

	return r.scanOne(r.db.QueryRow(query, isrc))
}

// Update modifies an existing track in the database
func (r *TrackRepository) Update(track *models.LibraryTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	query := `
		UPDATE tracks
		SET title = ?, artist = ?, album = ?, duration = ?, isrc = ?, file_path = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
		track.ISRC(),
		track.FilePath(),
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("track not found or already deleted: %s", track.ID())
	}

	return nil
}

// Delete soft-deletes a track by ID
func (r *TrackRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE tracks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("track not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all tracks matching the given criteria, excluding soft-deleted tracks
func (r *TrackRepository) List(criteria map[string]any) ([]*models.LibraryTrack, error) {
	query := trackSelect + ` WHERE deleted_at IS NULL`

	args := []any{}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}

	if isrc, ok := criteria["isrc"].(string); ok && isrc != "" {
		query += " AND isrc = ?"
		args = append(args, isrc)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.LibraryTrack
	for rows.Next() {
		track, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

const trackSelect = `
	SELECT id, sequence, service, service_id, title, artist, album, duration, isrc, file_path, created_at, updated_at, deleted_at
	FROM tracks`

type trackColumns struct {
	id        string
	sequence  int
	service   string
	serviceID string
	title     string
	artist    string
	album     string
	duration  int
	isrc      string
	filePath  string
	createdAt time.Time
	updatedAt time.Time
	deletedAt sql.NullTime
}

func (c *trackColumns) build() *models.LibraryTrack {
	dto := models.Track{
		ID:       c.serviceID,
		Title:    c.title,
		Artist:   c.artist,
		Album:    c.album,
		Duration: c.duration,
		ISRC:     c.isrc,
		FilePath: c.filePath,
	}

	track := models.NewLibraryTrack(c.sequence, c.service, c.serviceID, dto)
	track.SetID(c.id)
	track.SetCreatedAt(c.createdAt)
	track.SetUpdatedAt(c.updatedAt)
	if c.deletedAt.Valid {
		track.SetDeletedAt(&c.deletedAt.Time)
	}

	return track
}

// scanOne scans a single [sql.Row] into a [models.LibraryTrack]
func (r *TrackRepository) scanOne(row *sql.Row) (*models.LibraryTrack, error) {
	var c trackColumns

	err := row.Scan(&c.id, &c.sequence, &c.service, &c.serviceID, &c.title, &c.artist, &c.album, &c.duration, &c.isrc, &c.filePath, &c.createdAt, &c.updatedAt, &c.deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("track not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	return c.build(), nil
}

// scanRow scans a [sql.Rows] cursor position into a [models.LibraryTrack]
func (r *TrackRepository) scanRow(rows *sql.Rows) (*models.LibraryTrack, error) {
	var c trackColumns

	err := rows.Scan(&c.id, &c.sequence, &c.service, &c.serviceID, &c.title, &c.artist, &c.album, &c.duration, &c.isrc, &c.filePath, &c.createdAt, &c.updatedAt, &c.deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	return c.build(), nil
}
