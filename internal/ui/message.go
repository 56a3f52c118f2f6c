package ui

import (
	"github.com/harmonysync/harmony/internal/models"
	"github.com/harmonysync/harmony/internal/tasks"
)

// playlistsFetchedMsg carries the source playlist listing into the model.
type playlistsFetchedMsg struct {
	playlists []models.Playlist
	err       error
}

// tracksFetchedMsg carries one exported playlist with its tracks.
type tracksFetchedMsg struct {
	playlist *models.PlaylistExport
	err      error
}

// progressUpdateMsg wraps engine progress for the transfer view.
type progressUpdateMsg tasks.ProgressUpdate

// transferCompleteMsg signals the end of a sync run.
type transferCompleteMsg struct {
	result *tasks.TransferRunResult
	err    error
}
