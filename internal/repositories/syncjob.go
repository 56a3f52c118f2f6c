package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harmonysync/harmony/internal/models"
	"github.com/harmonysync/harmony/internal/shared"
)

// SyncJobRepository implements models.Repository[*models.SyncJob] for sync history.
//
// Handles sync job CRUD operations with soft delete support and status-based queries.
type SyncJobRepository struct {
	db *sql.DB
}

// NewSyncJobRepository creates a new SyncJobRepository with the given database connection
func NewSyncJobRepository(db *sql.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

// Create inserts a new sync job into the database with generated ID and sequence
func (r *SyncJobRepository) Create(job *models.SyncJob) error {
	sequence, err := NextSequence(r.db, "sync_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	job.SetID(id)
	job.SetSequence(sequence)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_jobs (
			id, sequence, source_service, source_playlist_id, dest_service, dest_playlist_id,
			status, total_tracks, matched_tracks, missing_tracks, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		job.SourceService(),
		job.SourcePlaylistID(),
		job.DestService(),
		job.DestPlaylistID(),
		job.Status(),
		job.TotalTracks(),
		job.MatchedTracks(),
		job.MissingTracks(),
		job.ErrorMessage(),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync job: %w", err)
	}

	return nil
}

// Get retrieves a sync job by ID, excluding soft-deleted jobs
func (r *SyncJobRepository) Get(id string) (*models.SyncJob, error) {
	query := syncJobSelect + ` WHERE id = ? AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing sync job in the database
func (r *SyncJobRepository) Update(job *models.SyncJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE sync_jobs
		SET dest_playlist_id = ?, status = ?, total_tracks = ?, matched_tracks = ?, missing_tracks = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		job.DestPlaylistID(),
		job.Status(),
		job.TotalTracks(),
		job.MatchedTracks(),
		job.MissingTracks(),
		job.ErrorMessage(),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync job not found or already deleted: %s", job.ID())
	}

	return nil
}

// Delete soft-deletes a sync job by ID
func (r *SyncJobRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE sync_jobs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync job not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all sync jobs matching the given criteria, excluding soft-deleted jobs
func (r *SyncJobRepository) List(criteria map[string]any) ([]*models.SyncJob, error) {
	query := syncJobSelect + ` WHERE deleted_at IS NULL`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if source, ok := criteria["source_service"].(string); ok && source != "" {
		query += " AND source_service = ?"
		args = append(args, source)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.SyncJob
	for rows.Next() {
		job, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

const syncJobSelect = `
	SELECT id, sequence, source_service, source_playlist_id, dest_service, dest_playlist_id,
		status, total_tracks, matched_tracks, missing_tracks, error, created_at, updated_at, deleted_at
	FROM sync_jobs`

type syncJobColumns struct {
	id               string
	sequence         int
	sourceService    string
	sourcePlaylistID string
	destService      string
	destPlaylistID   string
	status           string
	totalTracks      int
	matchedTracks    int
	missingTracks    int
	errMessage       string
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        sql.NullTime
}

func (c *syncJobColumns) build() *models.SyncJob {
	job := models.NewSyncJob(c.sequence, c.sourceService, c.sourcePlaylistID, c.destService)
	job.SetID(c.id)
	job.SetDestPlaylistID(c.destPlaylistID)
	job.SetStatus(c.status)
	job.SetCounts(c.totalTracks, c.matchedTracks, c.missingTracks)
	job.SetErrorMessage(c.errMessage)
	job.SetCreatedAt(c.createdAt)
	job.SetUpdatedAt(c.updatedAt)
	if c.deletedAt.Valid {
		job.SetDeletedAt(&c.deletedAt.Time)
	}
	return job
}

// scanOne scans a single [sql.Row] into a [models.SyncJob]
func (r *SyncJobRepository) scanOne(row *sql.Row) (*models.SyncJob, error) {
	var c syncJobColumns

	err := row.Scan(&c.id, &c.sequence, &c.sourceService, &c.sourcePlaylistID, &c.destService, &c.destPlaylistID,
		&c.status, &c.totalTracks, &c.matchedTracks, &c.missingTracks, &c.errMessage, &c.createdAt, &c.updatedAt, &c.deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync job: %w", err)
	}

	return c.build(), nil
}

// scanRow scans a [sql.Rows] cursor position into a [models.SyncJob]
func (r *SyncJobRepository) scanRow(rows *sql.Rows) (*models.SyncJob, error) {
	var c syncJobColumns

	err := rows.Scan(&c.id, &c.sequence, &c.sourceService, &c.sourcePlaylistID, &c.destService, &c.destPlaylistID,
		&c.status, &c.totalTracks, &c.matchedTracks, &c.missingTracks, &c.errMessage, &c.createdAt, &c.updatedAt, &c.deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync job: %w", err)
	}

	return c.build(), nil
}
