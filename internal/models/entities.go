package models

import (
	"fmt"
	"time"
)

// SyncJob lifecycle states.
const (
	SyncStatusPending   = "pending"
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// entity carries the persistence bookkeeping shared by all models.
type entity struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func newEntity(sequence int) entity {
	now := time.Now().UTC()
	return entity{sequence: sequence, createdAt: now, updatedAt: now}
}

func (e *entity) ID() string                { return e.id }
func (e *entity) SetID(id string)           { e.id = id }
func (e *entity) Sequence() int             { return e.sequence }
func (e *entity) SetSequence(n int)         { e.sequence = n }
func (e *entity) CreatedAt() time.Time      { return e.createdAt }
func (e *entity) SetCreatedAt(t time.Time)  { e.createdAt = t }
func (e *entity) UpdatedAt() time.Time      { return e.updatedAt }
func (e *entity) SetUpdatedAt(t time.Time)  { e.updatedAt = t }
func (e *entity) DeletedAt() *time.Time     { return e.deletedAt }
func (e *entity) SetDeletedAt(t *time.Time) { e.deletedAt = t }

// User is an account on this self-hosted instance.
type User struct {
	entity
	email       string
	displayName string
}

// NewUser creates a User with the given sequence, email and display name.
func NewUser(sequence int, email, displayName string) *User {
	return &User{entity: newEntity(sequence), email: email, displayName: displayName}
}

func (u *User) Email() string       { return u.email }
func (u *User) DisplayName() string { return u.displayName }

func (u *User) Validate() error {
	if u.email == "" {
		return fmt.Errorf("user email is required")
	}
	if u.displayName == "" {
		return fmt.Errorf("user display name is required")
	}
	return nil
}

// LibraryTrack is a cached track from a music service, keyed by
// (service, service ID) with ISRC retained for cross-service matching.
type LibraryTrack struct {
	entity
	service   string
	serviceID string
	track     Track
}

// NewLibraryTrack creates a LibraryTrack caching the given DTO for a service.
func NewLibraryTrack(sequence int, service, serviceID string, dto Track) *LibraryTrack {
	return &LibraryTrack{entity: newEntity(sequence), service: service, serviceID: serviceID, track: dto}
}

func (t *LibraryTrack) Service() string   { return t.service }
func (t *LibraryTrack) ServiceID() string { return t.serviceID }
func (t *LibraryTrack) Title() string     { return t.track.Title }
func (t *LibraryTrack) Artist() string    { return t.track.Artist }
func (t *LibraryTrack) Album() string     { return t.track.Album }
func (t *LibraryTrack) Duration() int     { return t.track.Duration }
func (t *LibraryTrack) ISRC() string      { return t.track.ISRC }
func (t *LibraryTrack) FilePath() string  { return t.track.FilePath }

// DTO returns the underlying transfer object.
func (t *LibraryTrack) DTO() Track { return t.track }

func (t *LibraryTrack) SetTrack(dto Track) { t.track = dto }

func (t *LibraryTrack) Validate() error {
	if t.service == "" {
		return fmt.Errorf("track service is required")
	}
	if t.serviceID == "" {
		return fmt.Errorf("track service ID is required")
	}
	if t.track.Title == "" {
		return fmt.Errorf("track title is required")
	}
	if t.track.Artist == "" {
		return fmt.Errorf("track artist is required")
	}
	return nil
}

// PersistedPlaylist caches playlist metadata from a music service.
type PersistedPlaylist struct {
	entity
	service   string
	serviceID string
	playlist  Playlist
}

// NewPersistedPlaylist creates a PersistedPlaylist caching the given DTO.
func NewPersistedPlaylist(sequence int, service, serviceID string, dto Playlist) *PersistedPlaylist {
	return &PersistedPlaylist{entity: newEntity(sequence), service: service, serviceID: serviceID, playlist: dto}
}

func (p *PersistedPlaylist) Service() string     { return p.service }
func (p *PersistedPlaylist) ServiceID() string   { return p.serviceID }
func (p *PersistedPlaylist) Name() string        { return p.playlist.Name }
func (p *PersistedPlaylist) Description() string { return p.playlist.Description }
func (p *PersistedPlaylist) TrackCount() int     { return p.playlist.TrackCount }
func (p *PersistedPlaylist) Public() bool        { return p.playlist.Public }

// DTO returns the underlying transfer object.
func (p *PersistedPlaylist) DTO() Playlist { return p.playlist }

func (p *PersistedPlaylist) SetPlaylist(dto Playlist) { p.playlist = dto }

func (p *PersistedPlaylist) Validate() error {
	if p.service == "" {
		return fmt.Errorf("playlist service is required")
	}
	if p.serviceID == "" {
		return fmt.Errorf("playlist service ID is required")
	}
	if p.playlist.Name == "" {
		return fmt.Errorf("playlist name is required")
	}
	return nil
}

// SyncJob records one playlist sync operation and its outcome.
type SyncJob struct {
	entity
	sourceService    string
	sourcePlaylistID string
	destService      string
	destPlaylistID   string
	status           string
	totalTracks      int
	matchedTracks    int
	missingTracks    int
	errMessage       string
}

// NewSyncJob creates a pending SyncJob from source playlist to destination service.
func NewSyncJob(sequence int, sourceService, sourcePlaylistID, destService string) *SyncJob {
	return &SyncJob{
		entity:           newEntity(sequence),
		sourceService:    sourceService,
		sourcePlaylistID: sourcePlaylistID,
		destService:      destService,
		status:           SyncStatusPending,
	}
}

func (j *SyncJob) SourceService() string    { return j.sourceService }
func (j *SyncJob) SourcePlaylistID() string { return j.sourcePlaylistID }
func (j *SyncJob) DestService() string      { return j.destService }
func (j *SyncJob) DestPlaylistID() string   { return j.destPlaylistID }
func (j *SyncJob) Status() string           { return j.status }
func (j *SyncJob) TotalTracks() int         { return j.totalTracks }
func (j *SyncJob) MatchedTracks() int       { return j.matchedTracks }
func (j *SyncJob) MissingTracks() int       { return j.missingTracks }
func (j *SyncJob) ErrorMessage() string     { return j.errMessage }

func (j *SyncJob) SetDestPlaylistID(id string) { j.destPlaylistID = id }

// Start marks the job running.
func (j *SyncJob) Start() { j.status = SyncStatusRunning }

// Complete records final counts and marks the job completed.
func (j *SyncJob) Complete(total, matched, missing int) {
	j.totalTracks = total
	j.matchedTracks = matched
	j.missingTracks = missing
	j.status = SyncStatusCompleted
}

// Fail marks the job failed with a reason.
func (j *SyncJob) Fail(reason string) {
	j.errMessage = reason
	j.status = SyncStatusFailed
}

// SetCounts restores persisted counters when loading from the database.
func (j *SyncJob) SetCounts(total, matched, missing int) {
	j.totalTracks = total
	j.matchedTracks = matched
	j.missingTracks = missing
}

// SetStatus restores a persisted status when loading from the database.
func (j *SyncJob) SetStatus(status string) { j.status = status }

// SetErrorMessage restores a persisted failure reason.
func (j *SyncJob) SetErrorMessage(msg string) { j.errMessage = msg }

func (j *SyncJob) Validate() error {
	if j.sourceService == "" || j.destService == "" {
		return fmt.Errorf("sync job services are required")
	}
	if j.sourcePlaylistID == "" {
		return fmt.Errorf("sync job source playlist is required")
	}
	switch j.status {
	case SyncStatusPending, SyncStatusRunning, SyncStatusCompleted, SyncStatusFailed:
	default:
		return fmt.Errorf("invalid sync job status: %s", j.status)
	}
	return nil
}
