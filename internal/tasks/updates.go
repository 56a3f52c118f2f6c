package tasks

import (
	"fmt"

	"github.com/harmonysync/harmony/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	FetchDest
	Compare
	SearchTracks
	CreatePlaylist
	QueueDownloads
	ScanLibrary
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case FetchDest:
		return "fetch_dest"
	case Compare:
		return "compare"
	case SearchTracks:
		return "search_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case QueueDownloads:
		return "queue_downloads"
	case ScanLibrary:
		return "scan_library"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func fetchingSourceUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching source playlist from %s...", name),
	}
}

func fetchSourceUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching source playlist (%s)...", name),
	}
}

func fetchDestUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDest,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching destination playlist (%s)...", name),
	}
}

func buildDestMapUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    step,
		Total:   total,
		Message: "Building track comparison maps...",
	}
}

func missingTrackUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    step,
		Total:   total,
		Message: "Comparing tracks...",
	}
}

func createPlaylistUpdate(step, total int, pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func createDestinationUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Creating playlist on %s...", name),
	}
}

func searchTracksUpdate(step, total int, tr *models.Track, name string) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   SearchTracks,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("Searching for tracks on %s...", name),
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func foundPlaylistUpdate(step, total int, export *models.PlaylistExport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", export.Playlist.Name, len(export.Tracks)),
		Data:    export,
	}
}

func queueDownloadUpdate(step, total int, tr *models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QueueDownloads,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Searching peers: %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func downloadsQueuedUpdate(missing, queued int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QueueDownloads,
		Step:    queued,
		Total:   missing,
		Message: fmt.Sprintf("Queued %d of %d missing tracks for download", queued, missing),
	}
}

func scanSectionsUpdate(step, total int, title string) ProgressUpdate {
	if title == "" {
		return ProgressUpdate{
			Phase:   ScanLibrary,
			Step:    step,
			Total:   total,
			Message: "Discovering music sections...",
		}
	}
	return ProgressUpdate{
		Phase:   ScanLibrary,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Scanning section: %s", step, total, title),
	}
}

func scanCompletedUpdate(scanned, cached int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanLibrary,
		Step:    scanned,
		Total:   scanned,
		Message: fmt.Sprintf("Scan complete: %d tracks read, %d cached", scanned, cached),
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
