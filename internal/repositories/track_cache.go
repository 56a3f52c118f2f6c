package repositories

import (
	"fmt"
	"strings"

	"github.com/harmonysync/harmony/internal/models"
)

// TrackCacheAdapter exposes [TrackRepository] as a tasks.TrackCache,
// deduplicating on the (service, service_id) pair.
type TrackCacheAdapter struct {
	repo *TrackRepository
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter with the given repository
func NewTrackCacheAdapter(repo *TrackRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo}
}

// CacheTrack stores a track seen during a library scan. Already-cached
// tracks are a no-op, not an error.
func (a *TrackCacheAdapter) CacheTrack(service, serviceID string, track models.Track) error {
	if cached, err := a.repo.GetByServiceID(service, serviceID); err == nil && cached != nil {
		return nil
	}

	if err := a.repo.Create(models.NewLibraryTrack(0, service, serviceID, track)); err != nil {
		// Concurrent scans can race past the existence check; the UNIQUE
		// constraint turns the losing insert into a duplicate.
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache track: %w", err)
	}
	return nil
}
