// package tasks implements playlist transfer operations between music services.
//
// The core abstraction is SyncEngine, which orchestrates playlist transfers, comparisons, and library scans.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/harmonysync/harmony/internal/models"
	"github.com/harmonysync/harmony/internal/services"
	"github.com/harmonysync/harmony/internal/shared"
)

// TrackMatchResult represents the result of attempting to match a single track.
type TrackMatchResult struct {
	Original models.Track  // Original track from source
	Matched  *models.Track // Matched track (nil if not found)
	Error    error         // Error if match failed
}

// TransferRunResult contains all data from a full transfer operation.
type TransferRunResult struct {
	SourcePlaylist  *models.PlaylistExport // Source playlist with tracks
	DestPlaylist    *models.Playlist       // Created destination playlist
	TrackMatches    []TrackMatchResult     // Individual track match results
	SuccessCount    int                    // Number of successfully matched tracks
	FailedCount     int                    // Number of failed matches
	TotalTracks     int                    // Total tracks processed
	MatchPercentage float64                // Success rate as percentage
	MissingTracks   []models.Track         // Tracks absent from the destination library
	QueuedDownloads int                    // Missing tracks handed to the downloader
}

// ComparisonResult contains track comparison details between two playlists.
type ComparisonResult struct {
	SourcePlaylist *models.PlaylistExport // Source playlist
	DestPlaylist   *models.PlaylistExport // Destination playlist
	MatchedCount   int                    // Tracks found in both
	MissingInDest  []models.Track         // Tracks in source but not in dest
	ExtraInDest    []models.Track         // Tracks in dest but not in source
}

// TransferDiffResult contains the results of comparing two playlists.
type TransferDiffResult struct {
	Comparison ComparisonResult
}

// ScanResult summarizes a media library scan.
type ScanResult struct {
	Sections      int      // Music sections discovered
	TracksScanned int      // Tracks read from the library
	TracksCached  int      // Tracks written to the local cache
	Errors        []error  // Per-track cache failures
	SectionTitles []string // Section names, in scan order
}

// LibraryScanner reads music sections and their tracks from a media server.
// *services.PlexService satisfies this interface.
type LibraryScanner interface {
	MusicSections(ctx context.Context) ([]services.PlexDirectory, error)
	LibraryTracks(ctx context.Context, sectionKey string) ([]models.Track, error)
}

// Downloader locates and queues downloads for tracks missing from the
// destination library. *services.SoulseekService satisfies this interface.
type Downloader interface {
	SearchTrack(ctx context.Context, title, artist string) (string, *services.SoulseekFile, error)
	Download(ctx context.Context, username string, file services.SoulseekFile) error
}

// TrackCache persists scanned tracks for offline matching.
// *repositories.TrackCacheAdapter satisfies this interface.
type TrackCache interface {
	CacheTrack(service, serviceID string, track models.Track) error
}

// SyncJournal records sync job lifecycle transitions.
// *repositories.SyncJobRepository satisfies this interface.
type SyncJournal interface {
	Create(job *models.SyncJob) error
	Update(job *models.SyncJob) error
}

// SyncEngine defines operations for syncing playlists between services.
type SyncEngine interface {
	// Run performs a full source → destination sync: fetches the source playlist,
	// matches tracks against the destination, creates the destination playlist,
	// and queues downloads for anything missing.
	Run(ctx context.Context, srcIDOrName string, progress chan<- ProgressUpdate) (*TransferRunResult, error)

	// Diff compares two playlists across services by identifying matched tracks, missing tracks, and extra tracks.
	Diff(ctx context.Context, sourceSvc, destSvc services.Service, sourceID, destID string, progress chan<- ProgressUpdate) (*TransferDiffResult, error)

	// Scan walks the media server's music sections and caches every track locally.
	Scan(ctx context.Context, progress chan<- ProgressUpdate) (*ScanResult, error)
}

// PlaylistEngine implements SyncEngine for playlist operations.
// Contains dependencies on music services, the downloader, and optional persistence.
type PlaylistEngine struct {
	source     services.Service
	dest       services.Service
	downloader Downloader
	scanner    LibraryScanner
	cache      TrackCache
	journal    SyncJournal
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided services.
// The downloader may be nil, in which case missing tracks are reported but not queued.
func NewPlaylistEngine(source, dest services.Service, downloader Downloader) *PlaylistEngine {
	return &PlaylistEngine{
		source:     source,
		dest:       dest,
		downloader: downloader,
	}
}

// SetScanner attaches a media library scanner, enabling Scan.
func (e *PlaylistEngine) SetScanner(s LibraryScanner) { e.scanner = s }

// SetTrackCache attaches a local track cache for Scan results.
func (e *PlaylistEngine) SetTrackCache(c TrackCache) { e.cache = c }

// SetJournal attaches a sync job journal. When set, Run records each sync
// and its outcome.
func (e *PlaylistEngine) SetJournal(j SyncJournal) { e.journal = j }

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run performs a full source → destination playlist sync.
//
// srcIDOrName is resolved first as a playlist ID; when the export fails, the
// source library is searched for a playlist with a matching name.
func (e *PlaylistEngine) Run(ctx context.Context, srcIDOrName string, progress chan<- ProgressUpdate) (*TransferRunResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: source service not initialized", shared.ErrServiceUnavailable)
	}
	if e.dest == nil {
		return nil, fmt.Errorf("%w: destination service not initialized", shared.ErrServiceUnavailable)
	}

	result := &TransferRunResult{}

	e.sendProgress(progress, fetchingSourceUpdate(1, 1, e.source.Name()))

	srcPlaylist, err := e.source.ExportPlaylist(ctx, srcIDOrName)
	if err != nil {
		playlists, playlistsErr := e.source.GetPlaylists(ctx)
		if playlistsErr != nil {
			return nil, fmt.Errorf("%w: failed to get playlists: %v", shared.ErrAPIRequest, playlistsErr)
		}

		var matchedID string
		for _, pl := range playlists {
			if pl.Name == srcIDOrName {
				matchedID = pl.ID
				break
			}
		}

		if matchedID == "" {
			return nil, fmt.Errorf("%w: no playlist found with name '%s'", shared.ErrPlaylistNotFound, srcIDOrName)
		}

		srcPlaylist, err = e.source.ExportPlaylist(ctx, matchedID)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to export playlist: %v", shared.ErrAPIRequest, err)
		}
	}

	job := e.startJob(srcPlaylist.Playlist.ID)

	total := len(srcPlaylist.Tracks)
	result.SourcePlaylist = srcPlaylist
	result.TotalTracks = total

	e.sendProgress(progress, foundPlaylistUpdate(1, 1, srcPlaylist))
	e.sendProgress(progress, searchTracksUpdate(0, total, nil, e.dest.Name()))

	matches := make([]TrackMatchResult, total)
	successCount := 0

	for i, track := range srcPlaylist.Tracks {
		e.sendProgress(progress, searchTracksUpdate(i+1, total, &track, e.dest.Name()))

		destTrack, err := e.dest.SearchTrack(ctx, track.Title, track.Artist)
		matches[i] = TrackMatchResult{
			Original: track,
			Matched:  destTrack,
			Error:    err,
		}

		if err == nil {
			successCount++
		} else {
			result.MissingTracks = append(result.MissingTracks, track)
		}
	}

	result.TrackMatches = matches
	result.SuccessCount = successCount
	result.FailedCount = total - successCount
	if result.TotalTracks > 0 {
		result.MatchPercentage = float64(successCount) / float64(result.TotalTracks) * 100
	}

	result.QueuedDownloads = e.queueDownloads(ctx, progress, result.MissingTracks)

	if successCount == 0 {
		e.failJob(job, "no tracks were matched")
		return result, fmt.Errorf("no tracks were matched - cannot create empty playlist")
	}

	e.sendProgress(progress, createDestinationUpdate(1, 1, e.dest.Name()))

	matchedTracks := make([]models.Track, 0, successCount)
	for _, match := range matches {
		if match.Matched != nil {
			matchedTracks = append(matchedTracks, *match.Matched)
		}
	}
	destExport := &models.PlaylistExport{
		Playlist: models.Playlist{
			Name:        srcPlaylist.Playlist.Name,
			Description: fmt.Sprintf("Synced from %s: %s", e.source.Name(), srcPlaylist.Playlist.Name),
			Public:      false,
		},
		Tracks: matchedTracks,
	}

	importedPl, err := e.dest.ImportPlaylist(ctx, destExport)
	if err != nil {
		e.failJob(job, err.Error())
		return result, fmt.Errorf("%w: failed to create playlist: %v", shared.ErrAPIRequest, err)
	}

	result.DestPlaylist = importedPl
	e.completeJob(job, importedPl.ID, total, successCount, len(result.MissingTracks))
	e.sendProgress(progress, createPlaylistUpdate(1, 1, importedPl))
	return result, nil
}

// queueDownloads hands missing tracks to the downloader, returning the number queued.
// Lookup and queue failures are skipped; the tracks remain in MissingTracks either way.
func (e *PlaylistEngine) queueDownloads(ctx context.Context, progress chan<- ProgressUpdate, missing []models.Track) int {
	if e.downloader == nil || len(missing) == 0 {
		return 0
	}

	queued := 0
	for i, track := range missing {
		e.sendProgress(progress, queueDownloadUpdate(i+1, len(missing), &track))

		username, file, err := e.downloader.SearchTrack(ctx, track.Title, track.Artist)
		if err != nil {
			continue
		}
		if err := e.downloader.Download(ctx, username, *file); err != nil {
			continue
		}
		queued++
	}

	e.sendProgress(progress, downloadsQueuedUpdate(len(missing), queued))
	return queued
}

// startJob opens a sync job record when a journal is attached.
func (e *PlaylistEngine) startJob(sourcePlaylistID string) *models.SyncJob {
	if e.journal == nil {
		return nil
	}
	job := models.NewSyncJob(0, e.source.Name(), sourcePlaylistID, e.dest.Name())
	if err := e.journal.Create(job); err != nil {
		return nil
	}
	job.Start()
	_ = e.journal.Update(job)
	return job
}

func (e *PlaylistEngine) completeJob(job *models.SyncJob, destPlaylistID string, total, matched, missing int) {
	if e.journal == nil || job == nil {
		return
	}
	job.SetDestPlaylistID(destPlaylistID)
	job.Complete(total, matched, missing)
	_ = e.journal.Update(job)
}

func (e *PlaylistEngine) failJob(job *models.SyncJob, reason string) {
	if e.journal == nil || job == nil {
		return
	}
	job.Fail(reason)
	_ = e.journal.Update(job)
}

// Diff compares two playlists and identifies differences.
func (e *PlaylistEngine) Diff(ctx context.Context, sourceSvc, destSvc services.Service, sourceID, destID string, progress chan<- ProgressUpdate) (*TransferDiffResult, error) {
	if sourceSvc == nil || destSvc == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	result := &TransferDiffResult{}

	e.sendProgress(progress, fetchSourceUpdate(1, 2, sourceSvc.Name()))
	sourceExport, err := sourceSvc.ExportPlaylist(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to export source playlist: %v", shared.ErrPlaylistNotFound, err)
	}

	e.sendProgress(progress, fetchDestUpdate(2, 2, destSvc.Name()))
	destExport, err := destSvc.ExportPlaylist(ctx, destID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to export destination playlist: %v", shared.ErrPlaylistNotFound, err)
	}

	result.Comparison.SourcePlaylist = sourceExport
	result.Comparison.DestPlaylist = destExport

	e.sendProgress(progress, buildDestMapUpdate(1, 2))
	destTrackMap := make(map[string]models.Track)
	destISRCMap := make(map[string]models.Track)

	for _, track := range destExport.Tracks {
		normalizedKey := shared.NormalizeTrackKey(track.Title, track.Artist)
		destTrackMap[normalizedKey] = track
		if track.ISRC != "" {
			destISRCMap[track.ISRC] = track
		}
	}

	e.sendProgress(progress, missingTrackUpdate(2, 2))
	var missingInDest []models.Track
	matchedCount := 0

	for _, srcTrack := range sourceExport.Tracks {
		matched := false

		if srcTrack.ISRC != "" {
			if _, found := destISRCMap[srcTrack.ISRC]; found {
				matched = true
			}
		}

		if !matched {
			normalizedKey := shared.NormalizeTrackKey(srcTrack.Title, srcTrack.Artist)
			if _, found := destTrackMap[normalizedKey]; found {
				matched = true
			}
		}

		if matched {
			matchedCount++
		} else {
			missingInDest = append(missingInDest, srcTrack)
		}
	}

	sourceTrackMap := make(map[string]models.Track)
	sourceISRCMap := make(map[string]models.Track)

	for _, track := range sourceExport.Tracks {
		normalizedKey := shared.NormalizeTrackKey(track.Title, track.Artist)
		sourceTrackMap[normalizedKey] = track
		if track.ISRC != "" {
			sourceISRCMap[track.ISRC] = track
		}
	}

	var extraInDest []models.Track
	for _, destTrack := range destExport.Tracks {
		matched := false

		if destTrack.ISRC != "" {
			if _, found := sourceISRCMap[destTrack.ISRC]; found {
				matched = true
			}
		}

		if !matched {
			normalizedKey := shared.NormalizeTrackKey(destTrack.Title, destTrack.Artist)
			if _, found := sourceTrackMap[normalizedKey]; found {
				matched = true
			}
		}

		if !matched {
			extraInDest = append(extraInDest, destTrack)
		}
	}

	result.Comparison.MatchedCount = matchedCount
	result.Comparison.MissingInDest = missingInDest
	result.Comparison.ExtraInDest = extraInDest

	return result, nil
}

// Scan walks every music section on the media server and caches each track.
// Cache failures are collected per track rather than aborting the scan.
func (e *PlaylistEngine) Scan(ctx context.Context, progress chan<- ProgressUpdate) (*ScanResult, error) {
	if e.scanner == nil {
		return nil, fmt.Errorf("%w: library scanner not initialized", shared.ErrServiceUnavailable)
	}

	result := &ScanResult{}

	e.sendProgress(progress, scanSectionsUpdate(0, 0, ""))
	sections, err := e.scanner.MusicSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list music sections: %v", shared.ErrAPIRequest, err)
	}

	result.Sections = len(sections)
	for i, section := range sections {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		result.SectionTitles = append(result.SectionTitles, section.Title)
		e.sendProgress(progress, scanSectionsUpdate(i+1, len(sections), section.Title))

		tracks, err := e.scanner.LibraryTracks(ctx, section.Key)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("section %s: %w", section.Title, err))
			continue
		}

		result.TracksScanned += len(tracks)
		if e.cache == nil {
			continue
		}

		for _, track := range tracks {
			if err := e.cache.CacheTrack("plex", track.ID, track); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("track %s: %w", track.Title, err))
				continue
			}
			result.TracksCached++
		}
	}

	e.sendProgress(progress, scanCompletedUpdate(result.TracksScanned, result.TracksCached))
	return result, nil
}
